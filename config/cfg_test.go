package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	doc := cfg.Document
	if doc.RootSelector != ":root" {
		t.Errorf("RootSelector = %q, want :root", doc.RootSelector)
	}
	if doc.InlineRule != ".inline" {
		t.Errorf("InlineRule = %q, want .inline", doc.InlineRule)
	}
	if !slices.Equal(doc.BreakingSelectors, []string{"[", "+", "~", "|", "@"}) {
		t.Errorf("BreakingSelectors = %v", doc.BreakingSelectors)
	}
	if doc.StylesheetExt != ".uss" || doc.MarkupExt != ".uxml" {
		t.Errorf("extensions = %q %q", doc.StylesheetExt, doc.MarkupExt)
	}
	if doc.PropertiesPath != "" || doc.FallbacksPath != "" {
		t.Error("embedded tables must be used by default")
	}
	if len(cfg.Assets.Patterns) == 0 {
		t.Error("default asset patterns expected")
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" || cfg.Logging.FileLogger.Level != "none" {
		t.Errorf("logging levels = %q %q", cfg.Logging.ConsoleLogger.Level, cfg.Logging.FileLogger.Level)
	}
	if cfg.Reporting.Destination == "" {
		t.Error("report destination must be set")
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tables := filepath.Join(t.TempDir(), "properties.yaml")
	if err := os.WriteFile(tables, []byte("- name: color\n  support: native\n"), 0644); err != nil {
		t.Fatal(err)
	}

	configPath := writeConfig(t, `version: 1
document:
  root_selector: ".screen"
  uppercase_labels: true
  breaking_selectors: ["[", "@"]
  properties_path: `+tables+`
assets:
  resources_root: Assets
  fonts:
    Open Sans: Fonts/OpenSans-Regular
logging:
  console:
    level: debug
  file:
    level: debug
    destination: `+filepath.Join(t.TempDir(), "test.log")+`
    mode: append
reporting:
  destination: `+filepath.Join(t.TempDir(), "test-report.zip")+`
`)

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Document.RootSelector != ".screen" {
		t.Errorf("RootSelector = %q, want .screen", cfg.Document.RootSelector)
	}
	if !cfg.Document.UppercaseLabels {
		t.Error("Expected UppercaseLabels to be true")
	}
	if len(cfg.Document.BreakingSelectors) != 2 {
		t.Errorf("BreakingSelectors = %v, want 2 entries", cfg.Document.BreakingSelectors)
	}
	if cfg.Assets.Fonts["Open Sans"] != "Fonts/OpenSans-Regular" {
		t.Errorf("Fonts = %v", cfg.Assets.Fonts)
	}
	// defaults survive partial override
	if cfg.Document.InlineRule != ".inline" {
		t.Errorf("InlineRule = %q, want default", cfg.Document.InlineRule)
	}

	props, fallbacks, err := cfg.Document.ReadTables()
	if err != nil {
		t.Fatalf("ReadTables() error = %v", err)
	}
	if !strings.Contains(string(props), "color") {
		t.Errorf("properties table = %q", props)
	}
	if fallbacks != nil {
		t.Error("fallbacks table must stay embedded")
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := map[string]string{
		"invalid yaml":     "version: 1\ndocument:\n  root_selector: x\n  invalid indent\n",
		"unknown field":    "version: 1\nunknown_field: value\n",
		"bad version":      "version: 2\n",
		"missing table":    "version: 1\ndocument:\n  fallbacks_path: /nonexistent/fallbacks.yaml\n",
		"bad extension":    "version: 1\ndocument:\n  stylesheet_ext: uss\n",
		"bad log level":    "version: 1\nlogging:\n  console:\n    level: loud\n",
		"empty breaking":   "version: 1\ndocument:\n  breaking_selectors: [\"\"]\n",
		"empty font alias": "version: 1\nassets:\n  fonts:\n    Arial: \"\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Document.OutputNameTemplate = "{{ .Kind }}/{{ .Name }}"
	cfg.Assets.Images = map[string]string{"logo.png": "UI/logo"}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	cfg2, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Document.OutputNameTemplate != cfg.Document.OutputNameTemplate {
		t.Errorf("OutputNameTemplate = %q after reload", cfg2.Document.OutputNameTemplate)
	}
	if cfg2.Assets.Images["logo.png"] != "UI/logo" {
		t.Errorf("Images = %v after reload", cfg2.Assets.Images)
	}
}

func TestUnmarshalConfig_WrapsValidationError(t *testing.T) {
	_, err := unmarshalConfig([]byte("version: 99\n"), &Config{}, true)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validation") {
		t.Errorf("expected error to mention validation, got: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("expected wrapped error, got bare error: %v", err)
	}
}
