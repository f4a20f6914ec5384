package css

import (
	"strings"
)

// SegmentKind is the type of a single selector segment.
type SegmentKind int

const (
	SegmentUnknown SegmentKind = iota
	SegmentUniversal
	SegmentElement
	SegmentClass
	SegmentID
	SegmentPseudoClass
	SegmentPseudoElement
	SegmentAttribute
	SegmentCombinator
	SegmentWhitespace
)

var segmentNames = [...]string{
	SegmentUnknown:       "unknown",
	SegmentUniversal:     "universal",
	SegmentElement:       "type",
	SegmentClass:         "class",
	SegmentID:            "id",
	SegmentPseudoClass:   "pseudo-class",
	SegmentPseudoElement: "pseudo-element",
	SegmentAttribute:     "attribute",
	SegmentCombinator:    "combinator",
	SegmentWhitespace:    "whitespace",
}

func (t SegmentKind) String() string {
	if t < 0 || int(t) >= len(segmentNames) {
		return segmentNames[SegmentUnknown]
	}
	return segmentNames[t]
}

// Segment is a typed piece of a selector.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// IsCombinator returns true for segments describing document structure.
// Whitespace is the descendant combinator.
func (s Segment) IsCombinator() bool {
	return s.Kind == SegmentCombinator || s.Kind == SegmentWhitespace
}

// PseudoName returns lowercased pseudo-class or pseudo-element name without
// colons and arguments (":nth-child(2n)" -> "nth-child").
func (s Segment) PseudoName() string {
	if s.Kind != SegmentPseudoClass && s.Kind != SegmentPseudoElement {
		return ""
	}
	name := strings.TrimLeft(s.Value, ":")
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// Selector represents a parsed CSS selector: raw text and its segments.
type Selector struct {
	Raw      string
	Segments []Segment
}

// NewSelector tokenizes raw selector text.
func NewSelector(raw string) Selector {
	raw = strings.TrimSpace(raw)
	return Selector{Raw: raw, Segments: TokenizeSelector(raw)}
}

// IsRoot returns true if selector is the page root pseudo-class.
func (s Selector) IsRoot() bool {
	if strings.EqualFold(s.Raw, ":root") {
		return true
	}
	return len(s.Segments) == 1 &&
		s.Segments[0].Kind == SegmentPseudoClass && s.Segments[0].PseudoName() == "root"
}

// HasClass returns true if selector references class c. Raw text is checked
// as well in case tokenizer split the class unexpectedly.
func (s Selector) HasClass(c string) bool {
	c = strings.TrimPrefix(c, ".")
	if c == "" {
		return false
	}
	for _, seg := range s.Segments {
		if seg.Kind == SegmentClass && seg.Value == "."+c {
			return true
		}
	}
	return strings.Contains(s.Raw, "."+c)
}

// String returns selector text assembled from segments.
func (s Selector) String() string {
	var sb strings.Builder
	for _, seg := range s.Segments {
		sb.WriteString(seg.Value)
	}
	return sb.String()
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '\\' || c >= 0x80
}

func isTypeChar(c byte) bool {
	return isIdentChar(c) || c == '|' || c == '.'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// identEnd returns position after identifier run starting at i. Backslash
// escapes the next character.
func identEnd(s string, i int, accept func(byte) bool) int {
	for i < len(s) && accept(s[i]) {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		i++
	}
	return i
}

// TokenizeSelector splits selector into typed segments in a single left to
// right pass. It never fails: unexpected characters become one-character
// unknown segments.
func TokenizeSelector(sel string) []Segment {
	var segs []Segment
	i := 0
	for i < len(sel) {
		c := sel[i]
		start := i
		switch {
		case isSpace(c):
			for i < len(sel) && isSpace(sel[i]) {
				i++
			}
			segs = append(segs, Segment{Kind: SegmentWhitespace, Value: sel[start:i]})

		case c == '>' || c == '+' || c == '~':
			i++
			segs = append(segs, Segment{Kind: SegmentCombinator, Value: sel[start:i]})

		case c == '*':
			i++
			segs = append(segs, Segment{Kind: SegmentUniversal, Value: sel[start:i]})

		case (c == '.' || c == '#') && i+1 < len(sel) && isIdentChar(sel[i+1]):
			i = identEnd(sel, i+1, isIdentChar)
			typ := SegmentClass
			if c == '#' {
				typ = SegmentID
			}
			segs = append(segs, Segment{Kind: typ, Value: sel[start:i]})

		case c == ':':
			typ := SegmentPseudoClass
			i++
			if i < len(sel) && sel[i] == ':' {
				typ = SegmentPseudoElement
				i++
			}
			i = identEnd(sel, i, isIdentChar)
			if i < len(sel) && sel[i] == '(' {
				i = balancedEnd(sel, i)
			}
			segs = append(segs, Segment{Kind: typ, Value: sel[start:i]})

		case c == '[':
			i++
			for i < len(sel) && sel[i] != ']' {
				if sel[i] == '\\' && i+1 < len(sel) {
					i++
				}
				i++
			}
			if i < len(sel) {
				i++
			}
			segs = append(segs, Segment{Kind: SegmentAttribute, Value: sel[start:i]})

		case isTypeChar(c):
			i = typeEnd(sel, i)
			segs = append(segs, Segment{Kind: SegmentElement, Value: sel[start:i]})

		default:
			i++
			segs = append(segs, Segment{Kind: SegmentUnknown, Value: sel[start:i]})
		}
	}
	return segs
}

// typeEnd returns position after element name run starting at i. A dot
// followed by identifier character starts a class and ends the run.
func typeEnd(s string, i int) int {
	for i < len(s) && isTypeChar(s[i]) {
		if s[i] == '.' && i+1 < len(s) && isIdentChar(s[i+1]) {
			break
		}
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		i++
	}
	return i
}

// balancedEnd returns position right after parenthesized group starting at
// open (which must point to '('). Unbalanced input consumes the rest.
func balancedEnd(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}
