package uss_test

import (
	"slices"
	"strings"
	"testing"

	"ussconv/convert/uss"
)

func TestDefaultPolicy(t *testing.T) {
	p, err := uss.DefaultPolicy()
	if err != nil {
		t.Fatalf("DefaultPolicy() error = %v", err)
	}

	tests := []struct {
		prop    string
		support uss.Support
		known   bool
	}{
		{"color", uss.SupportNative, true},
		{"-unity-font-definition", uss.SupportNative, true},
		{"display", uss.SupportFallback, true},
		{"OPACITY", uss.SupportFallback, true},
		{"float", uss.SupportUnsupported, true},
		{"made-up", uss.SupportUnsupported, false},
	}
	for _, tt := range tests {
		info, ok := p.Lookup(tt.prop)
		if ok != tt.known {
			t.Errorf("Lookup(%q) known = %v, want %v", tt.prop, ok, tt.known)
			continue
		}
		if ok && info.Support != tt.support {
			t.Errorf("Lookup(%q) support = %s, want %s", tt.prop, info.Support, tt.support)
		}
	}

	props := p.Properties()
	if !slices.IsSortedFunc(props, func(a, b uss.PropertyInfo) int { return strings.Compare(a.Name, b.Name) }) {
		t.Error("Properties() must be sorted by name")
	}
}

func TestPolicy_Breaking(t *testing.T) {
	p, err := uss.LoadPolicy(nil, nil, []string{" .Legacy ", ""})
	if err != nil {
		t.Fatalf("LoadPolicy() error = %v", err)
	}
	if b, ok := p.Breaking("div.legacy-box"); !ok || b != ".legacy" {
		t.Errorf("Breaking() = %q, %v", b, ok)
	}
	if _, ok := p.Breaking("a[href]"); ok {
		t.Error("custom denylist must replace defaults")
	}
	if got := p.BreakingSelectors(); len(got) != 1 {
		t.Errorf("BreakingSelectors() = %v", got)
	}
}

func TestLoadPolicy_Errors(t *testing.T) {
	tests := []struct {
		name       string
		properties string
		fallbacks  string
	}{
		{"bad support", "properties:\n  - name: color\n    support: maybe\n", "fallbacks: []\n"},
		{"unknown field", "properties:\n  - name: color\n    level: native\n", "fallbacks: []\n"},
		{"no name", "properties:\n  - support: native\n", "fallbacks: []\n"},
		{"empty emit", "properties: []\n", "fallbacks:\n  - property: display\n"},
		{"bad template", "properties: []\n", "fallbacks:\n  - property: opacity\n    emit:\n      - property: opacity\n        value: \"{{ .Value \"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := uss.LoadPolicy([]byte(tt.properties), []byte(tt.fallbacks), nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPolicy_Synthesize(t *testing.T) {
	properties := "properties:\n  - name: gap\n    support: fallback\n  - name: margin\n    support: native\n"
	fallbacks := `fallbacks:
  - property: gap
    when: [normal]
    emit:
      - property: margin
        value: "0"
  - property: gap
    emit:
      - property: margin
        value: "{{ .Value | upper }} {{ px \"4\" }}"
`
	p, err := uss.LoadPolicy([]byte(properties), []byte(fallbacks), nil)
	if err != nil {
		t.Fatalf("LoadPolicy() error = %v", err)
	}

	subs, err := p.Synthesize("gap", "normal")
	if err != nil || len(subs) != 1 || subs[0].Value != "0" {
		t.Errorf("Synthesize(normal) = %+v, %v", subs, err)
	}
	subs, err = p.Synthesize("GAP", "2em")
	if err != nil || len(subs) != 1 || subs[0].Value != "2EM 4px" {
		t.Errorf("Synthesize(2em) = %+v, %v", subs, err)
	}
	if !p.HasFallback("gap") || p.HasFallback("margin") {
		t.Error("HasFallback() mismatch")
	}
	subs, _ = p.Synthesize("margin", "1px")
	if len(subs) != 0 {
		t.Errorf("property without fallback produced %+v", subs)
	}
}

func TestParseSupport(t *testing.T) {
	tests := map[string]uss.Support{
		"native":      uss.SupportNative,
		" Supported ": uss.SupportNative,
		"FALLBACK":    uss.SupportFallback,
		"partial":     uss.SupportFallback,
		"unsupported": uss.SupportUnsupported,
		"none":        uss.SupportUnsupported,
	}
	for name, want := range tests {
		got, err := uss.ParseSupport(name)
		if err != nil || got != want {
			t.Errorf("ParseSupport(%q) = %s, %v; want %s", name, got, err, want)
		}
	}
	if _, err := uss.ParseSupport("sometimes"); err == nil {
		t.Error("expected error for unknown level")
	}
}
