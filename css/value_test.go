package css_test

import (
	"testing"

	"ussconv/css"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		kind css.ValueKind
		unit string
	}{
		{"var(--main)", css.KindVariableReference, ""},
		{"resource(\"Fonts/Roboto\")", css.KindResource, ""},
		{"url(images/bg.png)", css.KindURL, ""},
		{"URL('x.png')", css.KindURL, ""},
		{"#fff", css.KindColor, ""},
		{"rgba(0, 0, 0, .5)", css.KindColor, ""},
		{"HSL(120, 50%, 50%)", css.KindColor, ""},
		{"\"Open Sans\"", css.KindString, ""},
		{"'x'", css.KindString, ""},
		{"TRUE", css.KindBoolean, ""},
		{"false", css.KindBoolean, ""},
		{"10", css.KindInteger, ""},
		{"-3", css.KindInteger, ""},
		{"1.5", css.KindNumber, ""},
		{".5", css.KindNumber, ""},
		{"50%", css.KindPercentage, "%"},
		{"12px", css.KindLength, "px"},
		{"+2.5EM", css.KindLength, "em"},
		{"90deg", css.KindLength, "deg"},
		{"1e3", css.KindLength, "e3"},
		{"2x", css.KindLength, "x"},
		{"10 px", css.KindKeyword, ""},
		{"calc(100% - 10px)", css.KindFunction, ""},
		{"linear-gradient(red, blue)", css.KindFunction, ""},
		{"bold", css.KindKeyword, ""},
		{"1px solid red", css.KindKeyword, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			kind, unit, ok := css.Classify(tt.raw)
			if !ok {
				t.Fatalf("Classify(%q) not ok", tt.raw)
			}
			if kind != tt.kind {
				t.Errorf("Classify(%q) kind = %s, want %s", tt.raw, kind, tt.kind)
			}
			if unit != tt.unit {
				t.Errorf("Classify(%q) unit = %q, want %q", tt.raw, unit, tt.unit)
			}
		})
	}
}

func TestClassify_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		if _, _, ok := css.Classify(raw); ok {
			t.Errorf("Classify(%q) should not produce a fragment", raw)
		}
		if _, ok := css.ParseValue(raw); ok {
			t.Errorf("ParseValue(%q) should not produce a fragment", raw)
		}
	}
}

func TestParseValue_FunctionArgs(t *testing.T) {
	f, ok := css.ParseValue("rgba(10, 20, 30, .5)")
	if !ok {
		t.Fatal("expected fragment")
	}
	if f.Function != "rgba" {
		t.Errorf("function = %q, want rgba", f.Function)
	}
	if len(f.Args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(f.Args))
	}
	if f.Args[3].Kind != css.KindNumber {
		t.Errorf("last arg kind = %s, want number", f.Args[3].Kind)
	}

	f, _ = css.ParseValue("var(--accent, rgb(1, 2, 3))")
	if f.Function != "var" || len(f.Args) != 2 {
		t.Fatalf("unexpected var fragment: %+v", f)
	}
	if f.Args[1].Kind != css.KindColor {
		t.Errorf("fallback arg kind = %s, want color", f.Args[1].Kind)
	}
	if len(f.Args[1].Args) != 0 {
		t.Error("arguments must not be parsed recursively")
	}
}

func TestFragment_NumericValue(t *testing.T) {
	f, _ := css.ParseValue("-1.25em")
	v, ok := f.NumericValue()
	if !ok || v != -1.25 {
		t.Errorf("NumericValue() = %v, %v", v, ok)
	}
	f, _ = css.ParseValue("auto")
	if _, ok := f.NumericValue(); ok {
		t.Error("keyword must not have numeric value")
	}
}

func TestSplitTopLevel(t *testing.T) {
	got := css.SplitTopLevel(`rgba(0, 0, 0, .5), "a,b", red`, ',')
	want := []string{"rgba(0, 0, 0, .5)", `"a,b"`, "red"}
	if len(got) != len(want) {
		t.Fatalf("SplitTopLevel() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDeclaration_Prefixes(t *testing.T) {
	tests := []struct {
		prop   string
		custom bool
		vendor bool
	}{
		{"--main-color", true, false},
		{"-webkit-transition", false, true},
		{"-unity-font", false, true},
		{"color", false, false},
		{"-", false, false},
	}
	for _, tt := range tests {
		d := css.Declaration{Property: tt.prop}
		if d.IsCustom() != tt.custom {
			t.Errorf("%s: IsCustom() = %v", tt.prop, d.IsCustom())
		}
		if d.IsVendor() != tt.vendor {
			t.Errorf("%s: IsVendor() = %v", tt.prop, d.IsVendor())
		}
	}
}
