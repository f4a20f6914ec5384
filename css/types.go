package css

import (
	"strings"
)

// ValueKind is the semantic kind of a declaration value fragment.
type ValueKind int

const (
	KindUnknown ValueKind = iota
	KindNumber
	KindInteger
	KindLength
	KindPercentage
	KindColor
	KindKeyword
	KindVariableReference
	KindResource
	KindURL
	KindString
	KindBoolean
	KindFunction
	KindComma
	KindSlash
	KindOperator
	KindAssetReference
	KindAngle
	KindTime
)

var kindNames = [...]string{
	KindUnknown:           "unknown",
	KindNumber:            "number",
	KindInteger:           "integer",
	KindLength:            "length",
	KindPercentage:        "percentage",
	KindColor:             "color",
	KindKeyword:           "keyword",
	KindVariableReference: "variable",
	KindResource:          "resource",
	KindURL:               "url",
	KindString:            "string",
	KindBoolean:           "boolean",
	KindFunction:          "function",
	KindComma:             "comma",
	KindSlash:             "slash",
	KindOperator:          "operator",
	KindAssetReference:    "asset",
	KindAngle:             "angle",
	KindTime:              "time",
}

func (k ValueKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// IsNumeric returns true for kinds carrying a numeric component.
func (k ValueKind) IsNumeric() bool {
	switch k {
	case KindNumber, KindInteger, KindLength, KindPercentage, KindAngle, KindTime:
		return true
	}
	return false
}

// Fragment is a single classified piece of a declaration value.
type Fragment struct {
	Kind     ValueKind
	Raw      string     // Original text (e.g., "1.2em", "bold", "rgba(0,0,0,.5)")
	Unit     string     // Unit if applicable: "em", "px", "%", etc.
	Function string     // Function name for function-like kinds (e.g., "rgba", "var")
	Args     []Fragment // Function arguments, one level deep
}

// Declaration is a single property declaration inside a rule.
type Declaration struct {
	Property  string
	Value     []Fragment // zero or one fragment, multi-term values are not split
	Important bool       // original declaration carried !important
	Line      int
}

// Text returns raw value text of the declaration.
func (d Declaration) Text() string {
	parts := make([]string, 0, len(d.Value))
	for _, f := range d.Value {
		parts = append(parts, f.Raw)
	}
	return strings.Join(parts, " ")
}

// IsCustom returns true for custom properties (--name).
func (d Declaration) IsCustom() bool {
	return IsCustomProperty(d.Property)
}

// IsVendor returns true for vendor-prefixed properties (-webkit-..., -unity-...).
func (d Declaration) IsVendor() bool {
	return IsVendorProperty(d.Property)
}

// IsCustomProperty reports whether name carries the custom property prefix.
func IsCustomProperty(name string) bool {
	return strings.HasPrefix(name, "--")
}

// IsVendorProperty reports whether name carries a vendor prefix.
func IsVendorProperty(name string) bool {
	return len(name) > 1 && name[0] == '-' && name[1] != '-'
}

// Rule represents a single CSS rule: selectors plus declarations in source order.
type Rule struct {
	Selectors    []Selector
	Declarations []Declaration
	Line         int // Line number in source for error reporting
}

// SelectorText returns comma separated raw selector list.
func (r Rule) SelectorText() string {
	raws := make([]string, 0, len(r.Selectors))
	for _, s := range r.Selectors {
		raws = append(raws, s.Raw)
	}
	return strings.Join(raws, ", ")
}

// GetDeclaration returns the last declaration for a property.
func (r Rule) GetDeclaration(name string) (Declaration, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == name {
			return r.Declarations[i], true
		}
	}
	return Declaration{}, false
}

// HasDeclaration returns true if the rule declares the specified property.
func (r Rule) HasDeclaration(name string) bool {
	_, ok := r.GetDeclaration(name)
	return ok
}

// FontFace represents an @font-face declaration.
type FontFace struct {
	Family string // font-family value, unquoted
	Src    string // src value (URL or local reference)
	Style  string
	Weight string
}

// Variable describes a custom property seen in the stylesheet.
type Variable struct {
	Name    string    // including leading "--"
	Type    ValueKind // kind of the defining value
	Defined bool      // false when only referenced via var()
	Example string    // first defining value
	Lines   []int     // lines where the variable is defined or referenced
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Rules     []Rule
	FontFaces []FontFace
	Imports   []string
	Variables []Variable
	Warnings  []string // Warnings for unsupported features
}

// RulesBySelector returns all rules having given raw selector.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, r := range s.Rules {
		for _, sel := range r.Selectors {
			if sel.Raw == selector {
				matches = append(matches, r)
				break
			}
		}
	}
	return matches
}

// Variable returns variable information by name.
func (s *Stylesheet) Variable(name string) (Variable, bool) {
	for _, v := range s.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}
