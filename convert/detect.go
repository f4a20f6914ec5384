package convert

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sourceKind is type of input recognized by conversion.
type sourceKind int

const (
	kindUnknown sourceKind = iota
	kindStylesheet
	kindMarkup
)

func (k sourceKind) String() string {
	switch k {
	case kindStylesheet:
		return "stylesheet"
	case kindMarkup:
		return "markup"
	default:
		return "unknown"
	}
}

// header size filetype needs to recognize everything it knows.
const sniffLen = 262

// isArchiveFile checks extension first and then file signature.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// detectKind decides by name what conversion applies.
func detectKind(name string) sourceKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".css":
		return kindStylesheet
	case ".html", ".htm", ".xhtml":
		return kindMarkup
	default:
		return kindUnknown
	}
}

// isSourceFile stats path and reports what kind of source it is.
func isSourceFile(path string) (sourceKind, error) {
	if _, err := os.Stat(path); err != nil {
		return kindUnknown, err
	}
	return detectKind(path), nil
}

// isSourceInArchive reports kind of archived file.
func isSourceInArchive(f *zip.File) sourceKind {
	if f.FileInfo().IsDir() {
		return kindUnknown
	}
	return detectKind(f.Name)
}

// stylesheetReader strips byte order mark and converts UTF-16 stylesheets to
// UTF-8. Markup encoding is handled by html charset detection.
func stylesheetReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
