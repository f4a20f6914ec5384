package css

import (
	"regexp"
	"strconv"
	"strings"
)

// numericPattern matches a whole value made of a signed decimal number and
// any non-whitespace unit glued to it. "10 px" does not match.
var numericPattern = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d+)?|\.\d+))(\S*)$`)

// Classify determines the semantic kind of a raw value and extracts its unit.
// Returns false for empty or whitespace-only input. First match wins, order
// matters because prefixes overlap.
func Classify(raw string) (ValueKind, string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return KindUnknown, "", false
	}
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "var("):
		return KindVariableReference, "", true
	case strings.HasPrefix(lower, "resource("):
		return KindResource, "", true
	case strings.HasPrefix(lower, "url("):
		return KindURL, "", true
	case strings.HasPrefix(lower, "#"), strings.HasPrefix(lower, "rgb"), strings.HasPrefix(lower, "hsl"):
		return KindColor, "", true
	case s[0] == '"' || s[0] == '\'':
		return KindString, "", true
	case lower == "true" || lower == "false":
		return KindBoolean, "", true
	}

	if m := numericPattern.FindStringSubmatch(s); m != nil {
		if _, err := strconv.ParseFloat(m[1], 64); err == nil {
			unit := strings.ToLower(m[2])
			switch {
			case unit == "" && !strings.Contains(m[1], "."):
				return KindInteger, "", true
			case unit == "":
				return KindNumber, "", true
			case unit == "%":
				return KindPercentage, unit, true
			default:
				return KindLength, unit, true
			}
		}
	}

	if strings.Contains(s, "(") && strings.HasSuffix(s, ")") {
		return KindFunction, "", true
	}
	return KindKeyword, "", true
}

// ParseValue classifies raw value and builds a fragment. Function-like values
// get their function name and a single level of arguments.
func ParseValue(raw string) (Fragment, bool) {
	kind, unit, ok := Classify(raw)
	if !ok {
		return Fragment{}, false
	}
	f := Fragment{Kind: kind, Raw: strings.TrimSpace(raw), Unit: unit}

	switch kind {
	case KindVariableReference, KindResource, KindURL, KindFunction, KindColor:
		name, body, found := splitFunction(f.Raw)
		if !found {
			break
		}
		f.Function = name
		for _, arg := range SplitTopLevel(body, ',') {
			ak, au, ok := Classify(arg)
			if !ok {
				continue
			}
			f.Args = append(f.Args, Fragment{Kind: ak, Raw: strings.TrimSpace(arg), Unit: au})
		}
	}
	return f, true
}

// NumericValue returns numeric part of a numeric fragment.
func (f Fragment) NumericValue() (float64, bool) {
	if !f.Kind.IsNumeric() {
		return 0, false
	}
	m := numericPattern.FindStringSubmatch(f.Raw)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// splitFunction splits "name(body)" into its parts.
func splitFunction(s string) (string, string, bool) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(s[:open])), s[open+1 : len(s)-1], true
}

// SplitTopLevel splits s on sep ignoring separators nested inside
// parentheses or quotes. Empty parts are dropped, parts are trimmed.
func SplitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			if p := strings.TrimSpace(s[start:i]); p != "" {
				parts = append(parts, p)
			}
			start = i + 1
		}
	}
	if start <= len(s) {
		if p := strings.TrimSpace(s[start:]); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// Unquote removes surrounding quotes from a CSS string value.
func Unquote(s string) string {
	return unquote(s)
}
