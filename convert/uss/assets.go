package uss

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gosimple/slug"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"ussconv/css"
)

// AssetResolver maps font and image references found in stylesheets to
// target resource paths.
type AssetResolver interface {
	Font(name string) (string, bool)
	Image(ref string) (string, bool)
}

type noAssets struct{}

func (noAssets) Font(string) (string, bool)  { return "", false }
func (noAssets) Image(string) (string, bool) { return "", false }

var fontExtensions = map[string]string{
	".ttf":   "ttf",
	".otf":   "otf",
	".woff":  "woff",
	".woff2": "woff2",
	".asset": "",
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".tga":  true,
	".psd":  true,
}

// Assets is asset name to resource path lookup. It is populated once and is
// read-only afterwards.
type Assets struct {
	log    *zap.Logger
	fonts  map[string]string
	images map[string]string
}

// NewAssets creates empty asset lookup.
func NewAssets(log *zap.Logger) *Assets {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assets{
		log:    log.Named("assets"),
		fonts:  make(map[string]string),
		images: make(map[string]string),
	}
}

// assetKey normalizes asset name so that "Open Sans", "open-sans.ttf" and
// "fonts/OpenSans.ttf" produce comparable keys.
func assetKey(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := path.Ext(name)
	if _, ok := fontExtensions[strings.ToLower(ext)]; ok || imageExtensions[strings.ToLower(ext)] {
		name = strings.TrimSuffix(name, ext)
	}
	return slug.Make(name)
}

// compactKey drops separators: "open-sans" and "opensans" are the same font.
func compactKey(key string) string {
	return strings.ReplaceAll(key, "-", "")
}

// AddFont registers font under name.
func (a *Assets) AddFont(name, resource string) {
	key := compactKey(assetKey(name))
	if key == "" {
		return
	}
	a.fonts[key] = resource
	if base, ok := strings.CutSuffix(key, "regular"); ok && base != "" {
		if _, exists := a.fonts[base]; !exists {
			a.fonts[base] = resource
		}
	}
}

// AddImage registers image under name.
func (a *Assets) AddImage(name, resource string) {
	if key := assetKey(name); key != "" {
		a.images[key] = resource
	}
}

// Font implements AssetResolver.
func (a *Assets) Font(name string) (string, bool) {
	r, ok := a.fonts[compactKey(assetKey(css.Unquote(name)))]
	return r, ok
}

// Image implements AssetResolver.
func (a *Assets) Image(ref string) (string, bool) {
	r, ok := a.images[assetKey(css.Unquote(ref))]
	return r, ok
}

// Len returns number of registered fonts and images.
func (a *Assets) Len() (int, int) {
	return len(a.fonts), len(a.images)
}

// Scan walks root registering every font and image matching any of the glob
// patterns. Resource paths are relative to the nearest Resources directory
// (or root) without extension.
func (a *Assets) Scan(root string, patterns []string) error {
	fsys := os.DirFS(root)
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("bad asset pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return fmt.Errorf("unable to scan assets with %q: %w", pattern, err)
		}
		for _, name := range matches {
			a.register(fsys, name)
		}
	}
	fonts, images := a.Len()
	a.log.Debug("Assets scanned", zap.String("root", root), zap.Int("fonts", fonts), zap.Int("images", images))
	return nil
}

func (a *Assets) register(fsys fs.FS, name string) {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case imageExtensions[ext]:
		a.AddImage(name, resourcePath(name))
	default:
		kind, ok := fontExtensions[ext]
		if !ok {
			return
		}
		if kind != "" && !isFont(fsys, name, kind) {
			a.log.Warn("Skipping font with unexpected content", zap.String("file", name))
			return
		}
		a.AddFont(name, resourcePath(name))
	}
}

func isFont(fsys fs.FS, name, kind string) bool {
	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && n == 0 {
		return false
	}
	return filetype.Is(head[:n], kind)
}

// resourcePath builds target resource path from a slash separated file name.
func resourcePath(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	if i := strings.LastIndex(name, "Resources/"); i >= 0 && (i == 0 || name[i-1] == '/') {
		name = name[i+len("Resources/"):]
	}
	return name
}

// withFontFaces returns resolver which also knows families declared by
// @font-face rules of a single stylesheet.
func withFontFaces(base AssetResolver, faces []css.FontFace) AssetResolver {
	if len(faces) == 0 {
		return base
	}
	families := make(map[string]string)
	for _, ff := range faces {
		m := urlPattern.FindStringSubmatch(ff.Src)
		if m == nil {
			continue
		}
		if r, ok := base.Font(css.Unquote(m[1])); ok {
			families[compactKey(assetKey(ff.Family))] = r
		}
	}
	if len(families) == 0 {
		return base
	}
	return &faceResolver{AssetResolver: base, families: families}
}

type faceResolver struct {
	AssetResolver
	families map[string]string
}

func (r *faceResolver) Font(name string) (string, bool) {
	if res, ok := r.families[compactKey(assetKey(css.Unquote(name)))]; ok {
		return res, true
	}
	return r.AssetResolver.Font(name)
}
