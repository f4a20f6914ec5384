package uss

import (
	"strings"

	"ussconv/css"
)

// supportedPseudoClasses are state pseudo-classes of the target toolkit.
var supportedPseudoClasses = map[string]bool{
	"hover":    true,
	"active":   true,
	"focus":    true,
	"disabled": true,
	"enabled":  true,
	"checked":  true,
	"inactive": true,
	"selected": true,
	"root":     true,
}

// legacyPseudoElements may be written with a single colon.
var legacyPseudoElements = map[string]bool{
	"before":       true,
	"after":        true,
	"first-letter": true,
	"first-line":   true,
}

// selectorRejection explains why a selector was not translated.
type selectorRejection struct {
	selector string
	reason   string
}

// translateSelector rewrites a single selector into target dialect. Returns
// false with a reason if selector uses something target cannot express.
func (c *conversion) translateSelector(sel css.Selector) (string, string, bool) {
	var (
		parts []string
		// number of parts up to and including last root selector, when
		// nothing but combinators followed it
		afterRoot = -1
	)
	for _, seg := range sel.Segments {
		switch seg.Kind {
		case css.SegmentUnknown:
			return "", "unexpected character " + seg.Value, false

		case css.SegmentPseudoElement:
			return "", "pseudo-element " + seg.Value, false

		case css.SegmentPseudoClass:
			name := seg.PseudoName()
			if legacyPseudoElements[name] {
				return "", "pseudo-element " + seg.Value, false
			}
			if !supportedPseudoClasses[name] || strings.Contains(seg.Value, "(") {
				return "", "pseudo-class " + seg.Value, false
			}
			parts = append(parts, seg.Value)

		case css.SegmentElement:
			switch {
			case IsDocumentRoot(seg.Value):
				if afterRoot >= 0 {
					// html body is the same root
					parts = parts[:afterRoot]
					continue
				}
				parts = append(parts, c.engine.rootSelector)
				afterRoot = len(parts)
				continue
			default:
				if e, ok := ElementFor(seg.Value); ok {
					parts = append(parts, e)
				} else {
					parts = append(parts, seg.Value)
				}
			}

		case css.SegmentCombinator:
			parts = append(parts, " "+seg.Value+" ")
			continue

		case css.SegmentWhitespace:
			parts = append(parts, " ")
			continue

		default:
			parts = append(parts, seg.Value)
		}
		afterRoot = -1
	}

	out := strings.Join(strings.Fields(strings.Join(parts, "")), " ")
	if out == "" {
		return "", "empty selector", false
	}
	return out, "", true
}

// translateSelectors rewrites rule selector list. Breaking selectors reject
// the whole rule, other failures remove only offending selector.
func (c *conversion) translateSelectors(rule css.Rule) ([]string, []selectorRejection) {
	for _, sel := range rule.Selectors {
		if b, ok := c.engine.policy.Breaking(sel.Raw); ok {
			return nil, []selectorRejection{{selector: rule.SelectorText(), reason: "breaking selector part " + b}}
		}
	}

	var (
		out      []string
		rejected []selectorRejection
		seen     = make(map[string]bool)
	)
	for _, sel := range rule.Selectors {
		s, reason, ok := c.translateSelector(sel)
		if !ok {
			rejected = append(rejected, selectorRejection{selector: sel.Raw, reason: reason})
			continue
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, rejected
}
