package convert

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/unicode"

	"ussconv/config"
	"ussconv/state"
)

const (
	sampleCSS = "body { font-size: 2em; }\n.menu::before { content: 'x'; }\n.title { color: red; float: left; }\n"
	sampleUSS = ":root {\n  font-size: 32px;\n}\n\n.title {\n  color: red;\n}\n"

	samplePage = `<html><head>
<link rel="stylesheet" href="css/menu.css">
<style>.title { font-size: 2em; }</style>
</head><body><h1 class="title">Menu</h1></body></html>`
)

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	if err := env.PrepareConversion(); err != nil {
		t.Fatalf("prepare conversion: %v", err)
	}
	return ctx, env
}

func writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("expected output %s: %v", name, err)
	}
	return string(data)
}

func runProcess(t *testing.T, ctx context.Context, env *state.LocalEnv, src, dst string) error {
	t.Helper()
	return newConverter(env, dst, env.Log).process(ctx, src)
}

func TestProcess_Stylesheet(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "menu.css")
	writeFile(t, src, []byte(sampleCSS))
	dst := t.TempDir()

	if err := runProcess(t, ctx, env, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "menu.uss")); got != sampleUSS {
		t.Errorf("menu.uss = %q, want %q", got, sampleUSS)
	}
}

func TestProcess_StylesheetUTF16(t *testing.T) {
	ctx, env := setupTestEnv(t)
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(sampleCSS))
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "menu.css")
	writeFile(t, src, encoded)
	dst := t.TempDir()

	if err := runProcess(t, ctx, env, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "menu.uss")); got != sampleUSS {
		t.Errorf("menu.uss = %q, want %q", got, sampleUSS)
	}
}

func TestProcess_Markup(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "page.html")
	writeFile(t, src, []byte(samplePage))
	dst := t.TempDir()

	if err := runProcess(t, ctx, env, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	if got, want := readFile(t, filepath.Join(dst, "page.uss")), ".title {\n  font-size: 32px;\n}\n"; got != want {
		t.Errorf("page.uss = %q, want %q", got, want)
	}
	markup := readFile(t, filepath.Join(dst, "page.uxml"))
	linked := strings.Index(markup, `<Style src="css/menu.uss"/>`)
	embedded := strings.Index(markup, `<Style src="page.uss"/>`)
	if linked < 0 || embedded < linked {
		t.Errorf("style references missing or out of order\n%s", markup)
	}
	if !strings.Contains(markup, `<ui:Label class="title" text="Menu"/>`) {
		t.Errorf("markup not converted\n%s", markup)
	}
}

func TestProcess_MarkupUSSOnly(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.USSOnly = true
	src := filepath.Join(t.TempDir(), "page.html")
	writeFile(t, src, []byte(samplePage))
	dst := t.TempDir()

	if err := runProcess(t, ctx, env, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	readFile(t, filepath.Join(dst, "page.uss"))
	if _, err := os.Stat(filepath.Join(dst, "page.uxml")); !os.IsNotExist(err) {
		t.Error("markup must not be produced")
	}
}

func TestProcess_Directory(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "menu.css"), []byte(sampleCSS))
	writeFile(t, filepath.Join(src, "screens", "hud.css"), []byte(".hud { opacity: .5; }"))
	writeFile(t, filepath.Join(src, "notes.txt"), []byte("ignored"))

	t.Run("keep dirs", func(t *testing.T) {
		dst := t.TempDir()
		if err := runProcess(t, ctx, env, src, dst); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		readFile(t, filepath.Join(dst, "menu.uss"))
		if got, want := readFile(t, filepath.Join(dst, "screens", "hud.uss")), ".hud {\n  opacity: 0.5;\n}\n"; got != want {
			t.Errorf("hud.uss = %q, want %q", got, want)
		}
		if _, err := os.Stat(filepath.Join(dst, "notes.uss")); !os.IsNotExist(err) {
			t.Error("unknown files must be skipped")
		}
	})

	t.Run("no dirs", func(t *testing.T) {
		env.NoDirs = true
		defer func() { env.NoDirs = false }()

		dst := t.TempDir()
		if err := runProcess(t, ctx, env, src, dst); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		readFile(t, filepath.Join(dst, "hud.uss"))
	})
}

func TestProcess_ExistingOutput(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.css"), []byte(sampleCSS))
	writeFile(t, filepath.Join(src, "b.css"), []byte(sampleCSS))
	dst := t.TempDir()
	writeFile(t, filepath.Join(dst, "a.uss"), []byte("old"))

	err := runProcess(t, ctx, env, src, dst)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("process() error = %v, want existing output error", err)
	}
	// failure of one file does not stop the others
	readFile(t, filepath.Join(dst, "b.uss"))
	if got := readFile(t, filepath.Join(dst, "a.uss")); got != "old" {
		t.Errorf("a.uss overwritten without permission: %q", got)
	}

	env.Overwrite = true
	if err := runProcess(t, ctx, env, src, dst); err != nil {
		t.Fatalf("process() with overwrite error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "a.uss")); got != sampleUSS {
		t.Errorf("a.uss = %q after overwrite", got)
	}
}

func makeTestZip(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "bundle.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(zipFile)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	zipFile.Close()
	return zipPath
}

func TestProcess_Archive(t *testing.T) {
	ctx, env := setupTestEnv(t)
	zipPath := makeTestZip(t, map[string]string{
		"styles/menu.css":  sampleCSS,
		"styles/extra.css": ".x { color: blue; }",
		"pages/page.html":  samplePage,
		"readme.txt":       "ignored",
	})

	t.Run("whole archive", func(t *testing.T) {
		dst := t.TempDir()
		if err := runProcess(t, ctx, env, zipPath, dst); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		if got := readFile(t, filepath.Join(dst, "styles", "menu.uss")); got != sampleUSS {
			t.Errorf("menu.uss = %q", got)
		}
		readFile(t, filepath.Join(dst, "styles", "extra.uss"))
		readFile(t, filepath.Join(dst, "pages", "page.uxml"))
	})

	t.Run("file inside archive", func(t *testing.T) {
		dst := t.TempDir()
		if err := runProcess(t, ctx, env, filepath.Join(zipPath, "styles", "menu.css"), dst); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		readFile(t, filepath.Join(dst, "styles", "menu.uss"))
		if _, err := os.Stat(filepath.Join(dst, "styles", "extra.uss")); !os.IsNotExist(err) {
			t.Error("only requested file must be converted")
		}
	})

	t.Run("archive in directory", func(t *testing.T) {
		src := t.TempDir()
		data, err := os.ReadFile(zipPath)
		if err != nil {
			t.Fatal(err)
		}
		writeFile(t, filepath.Join(src, "ui", "bundle.zip"), data)

		dst := t.TempDir()
		if err := runProcess(t, ctx, env, src, dst); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		readFile(t, filepath.Join(dst, "ui", "styles", "menu.uss"))
	})
}

func TestProcess_Errors(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("text"))

	tests := map[string]string{
		"missing":        filepath.Join(dir, "missing.css"),
		"not recognized": filepath.Join(dir, "notes.txt"),
		"file with tail": filepath.Join(dir, "notes.txt", "inside.css"),
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if err := runProcess(t, ctx, env, src, t.TempDir()); err == nil {
				t.Error("expected error")
			}
		})
	}

	t.Run("cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if err := runProcess(t, cancelled, env, dir, t.TempDir()); err == nil {
			t.Error("expected context error")
		}
	})
}
