package uss_test

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"ussconv/convert/uss"
)

func writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAssets_Lookup(t *testing.T) {
	a := testAssets()

	for _, name := range []string{"Open Sans", `"Open Sans"`, "open-sans", "OpenSans-Regular", "fonts/OpenSans-Regular.ttf"} {
		if r, ok := a.Font(name); !ok || r != "Fonts/OpenSans-Regular" {
			t.Errorf("Font(%q) = %q, %v", name, r, ok)
		}
	}
	if _, ok := a.Font("Roboto"); ok {
		t.Error("unexpected font Roboto")
	}
	if r, ok := a.Image("../images/bg.png?v=2"); !ok || r != "UI/bg" {
		t.Errorf("Image() = %q, %v", r, ok)
	}
}

func TestAssets_Scan(t *testing.T) {
	root := t.TempDir()
	ttf := append([]byte{0x00, 0x01, 0x00, 0x00, 0x00}, make([]byte, 64)...)
	writeFile(t, filepath.Join(root, "Assets", "Resources", "Fonts", "Roboto-Regular.ttf"), ttf)
	writeFile(t, filepath.Join(root, "Assets", "Fonts", "Broken.ttf"), []byte("not a font at all"))
	writeFile(t, filepath.Join(root, "Assets", "UI", "icon.png"), []byte("png"))
	writeFile(t, filepath.Join(root, "Assets", "UI", "notes.txt"), []byte("txt"))

	a := uss.NewAssets(zap.NewNop())
	if err := a.Scan(root, []string{"**/*.ttf", "**/*.{png,txt}"}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if r, ok := a.Font("Roboto"); !ok || r != "Fonts/Roboto-Regular" {
		t.Errorf("Font(Roboto) = %q, %v", r, ok)
	}
	if _, ok := a.Font("Broken"); ok {
		t.Error("font with wrong content must be skipped")
	}
	if r, ok := a.Image("icon.png"); !ok || r != "Assets/UI/icon" {
		t.Errorf("Image(icon.png) = %q, %v", r, ok)
	}
	fonts, images := a.Len()
	if fonts != 2 || images != 1 {
		t.Errorf("Len() = %d, %d", fonts, images)
	}
}

func TestAssets_ScanBadPattern(t *testing.T) {
	a := uss.NewAssets(zap.NewNop())
	if err := a.Scan(t.TempDir(), []string{"[unclosed"}); err == nil {
		t.Error("expected error for bad pattern")
	}
}
