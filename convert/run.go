package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"ussconv/archive"
	"ussconv/convert/uss"
	"ussconv/convert/uxml"
	"ussconv/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite, env.USSOnly = cmd.Bool("nodirs"), cmd.Bool("overwrite"), cmd.Bool("uss-only")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	if err := env.PrepareConversion(); err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return newConverter(env, dst, log).process(ctx, src)
}

// converter holds what is shared by all files of a single run.
type converter struct {
	env    *state.LocalEnv
	log    *zap.Logger
	dst    string
	engine *uss.Engine
	markup *uxml.Converter
}

func newConverter(env *state.LocalEnv, dst string, log *zap.Logger) *converter {
	engine := env.Engine()
	return &converter{
		env:    env,
		log:    log,
		dst:    dst,
		engine: engine,
		markup: env.MarkupConverter(engine),
	}
}

// process determines the input type (directory, archive, or single file) and
// processes accordingly. Source could point inside of archive.
func (c *converter) process(ctx context.Context, src string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := c.processDir(ctx, head); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			return nil
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			inside := filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := c.processArchive(ctx, head, inside, ""); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			return nil
		}

		kind, err := isSourceFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if kind != kindUnknown && len(tail) == 0 {
			// source file cannot have tail
			file, err := os.Open(head)
			if err != nil {
				return fmt.Errorf("unable to process file: %w", err)
			}
			defer file.Close()
			return c.processSource(ctx, file, kind, filepath.Base(head))
		}
		return fmt.Errorf("input was not recognized as stylesheet or markup (%s)", head)
	}
	return fmt.Errorf("input source was not found (%s)", src)
}

// processDir walks directory tree in natural name order finding stylesheets,
// markup and archives. Failures of individual files do not stop the walk and
// are returned together.
func (c *converter) processDir(ctx context.Context, dir string) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			c.log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	paths, err := listFiles(dir, c.log)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if er := ctx.Err(); er != nil {
			return multierr.Append(err, er)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		isArchive, er := isArchiveFile(path)
		if er != nil {
			c.log.Warn("Skipping file", zap.String("file", path), zap.Error(er))
			continue
		}
		if isArchive {
			count++
			if er := c.processArchive(ctx, path, "", filepath.Dir(rel)); er != nil {
				c.log.Error("Unable to process archive", zap.String("file", path), zap.Error(er))
				err = multierr.Append(err, er)
			}
			continue
		}

		kind := detectKind(path)
		if kind == kindUnknown {
			c.log.Debug("Skipping file, not recognized as source or archive", zap.String("file", path))
			continue
		}
		count++

		if er := c.processPath(ctx, path, rel, kind); er != nil {
			c.log.Error("Unable to process file", zap.String("file", path), zap.Error(er))
			err = multierr.Append(err, er)
		}
	}
	return err
}

func (c *converter) processPath(ctx context.Context, path, rel string, kind sourceKind) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return c.processSource(ctx, file, kind, rel)
}

// listFiles returns regular files under dir, each directory level sorted in
// natural order. Symbolic links are not followed.
func listFiles(dir string, log *zap.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Sort(natural.StringSlice(names))

	var files []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		fi, err := os.Lstat(path)
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			continue
		}
		switch {
		case fi.IsDir():
			sub, err := listFiles(path, log)
			if err != nil {
				log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
				continue
			}
			files = append(files, sub...)
		case fi.Mode().IsRegular():
			files = append(files, path)
		}
	}
	return files, nil
}

// processArchive walks all files inside archive, finds sources under "pathIn"
// and processes them. "pathOut" is archive location relative to processed
// directory.
func (c *converter) processArchive(ctx context.Context, path, pathIn, pathOut string) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			c.log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	walkErr := archive.Walk(path, pathIn, func(name string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		kind := isSourceInArchive(f)
		if kind == kindUnknown {
			c.log.Debug("Skipping file, not recognized as source", zap.String("archive", name), zap.String("file", f.Name))
			return nil
		}
		count++

		if er := c.processArchived(ctx, f, kind, filepath.Join(pathOut, filepath.FromSlash(c.entryName(f)))); er != nil {
			c.log.Error("Unable to process file in archive",
				zap.String("archive", name), zap.String("file", f.Name), zap.Error(er))
			err = multierr.Append(err, er)
		}
		return nil
	})
	return multierr.Append(walkErr, err)
}

// entryName decodes legacy archive file names when code page is forced.
func (c *converter) entryName(f *zip.File) string {
	cp := c.env.CodePage
	if cp == nil || !f.NonUTF8 {
		return f.Name
	}
	n, err := cp.NewDecoder().String(f.Name)
	if err != nil {
		cs, _ := ianaindex.IANA.Name(cp)
		c.log.Warn("Unable to convert archive name from specified encoding",
			zap.String("charset", cs), zap.String("path", f.Name), zap.Error(err))
		return f.Name
	}
	return n
}

func (c *converter) processArchived(ctx context.Context, f *zip.File, kind sourceKind, src string) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	return c.processSource(ctx, r, kind, src)
}

// processSource converts single stylesheet or markup file. "src" is part of
// the source path (always including file name) relative to the original path.
// When actual file was specified it will be just base file name without a
// path. When looking inside archive or directory it will be relative path
// inside archive or directory (including base file name).
func (c *converter) processSource(ctx context.Context, r io.Reader, kind sourceKind, src string) (rerr error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	var outputs []string

	c.log.Info("Conversion starting", zap.String("from", src), zap.Stringer("kind", kind))
	defer func(start time.Time) {
		// if multiple files are being processed we do not want to stop.
		if r := recover(); r != nil {
			c.log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("from", src), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else if rerr == nil {
			c.log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.Strings("to", outputs))
		}
	}(time.Now())

	switch kind {
	case kindStylesheet:
		data, err := io.ReadAll(stylesheetReader(r))
		if err != nil {
			return fmt.Errorf("unable to read stylesheet (%s): %w", src, err)
		}
		name, err := c.writeStylesheet(c.engine.Convert(data, src), src)
		if err != nil {
			return err
		}
		outputs = append(outputs, name)
	case kindMarkup:
		doc, err := c.markup.Convert(r, "text/html")
		if err != nil {
			return fmt.Errorf("unable to parse markup (%s): %w", src, err)
		}
		for _, href := range doc.Links {
			if strings.EqualFold(path.Ext(href), ".css") {
				doc.AddStyle(replaceExt(href, c.env.Cfg.Document.StylesheetExt))
			}
		}
		markupName := buildOutputPath(src, c.dst, c.env.Cfg.Document.MarkupExt, kind, c.env)
		if len(doc.Styles) > 0 {
			res := c.engine.Convert(bytes.Join(doc.Styles, []byte("\n")), src+"#style")
			name, err := c.writeStylesheet(res, src)
			if err != nil {
				return err
			}
			outputs = append(outputs, name)
			if rel, err := filepath.Rel(filepath.Dir(markupName), name); err == nil {
				doc.AddStyle(filepath.ToSlash(rel))
			}
		}
		if c.env.USSOnly {
			break
		}
		if err := c.writeOutput(markupName, doc); err != nil {
			return err
		}
		outputs = append(outputs, markupName)
	default:
		return fmt.Errorf("unsupported source kind for %s", src)
	}
	return nil
}

func (c *converter) writeStylesheet(res *uss.Result, src string) (string, error) {
	name := buildOutputPath(src, c.dst, c.env.Cfg.Document.StylesheetExt, kindStylesheet, c.env)
	if len(res.Dropped) > 0 || len(res.Unsupported) > 0 || len(res.NotImplemented) > 0 {
		c.log.Debug("Stylesheet converted with losses", zap.String("from", src),
			zap.Int("rules", len(res.Rules)), zap.Int("dropped", len(res.Dropped)),
			zap.Strings("unsupported", res.Unsupported), zap.Strings("not implemented", res.NotImplemented))
	}
	return name, c.writeOutput(name, res)
}

// writeOutput checks destination and writes converted result.
func (c *converter) writeOutput(name string, content io.WriterTo) error {
	if _, err := os.Stat(name); err == nil {
		if !c.env.Overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		c.log.Warn("Overwriting existing file", zap.String("file", name))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	if _, err := content.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("unable to write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	// Store conversion result for debugging
	if c.env.Rpt != nil {
		if rel, err := filepath.Rel(c.dst, name); err == nil {
			c.env.Rpt.Store("results/"+filepath.ToSlash(rel), name)
		}
	}
	return nil
}
