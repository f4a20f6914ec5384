package uss

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/mazznoer/csscolorparser"
	yaml "gopkg.in/yaml.v3"

	"ussconv/css"
)

// Substitute is a single declaration synthesized for a fallback-level property.
type Substitute struct {
	Property string
	Value    string
}

type emitEntry struct {
	Property string `yaml:"property"`
	Value    string `yaml:"value"`

	tmpl *template.Template
}

type fallbackRule struct {
	Property string            `yaml:"property"`
	When     []string          `yaml:"when"`
	Match    map[string]string `yaml:"match"`
	Emit     []*emitEntry      `yaml:"emit"`
}

type fallbackTable struct {
	Fallbacks []*fallbackRule `yaml:"fallbacks"`
}

// fallbackValues is what emit templates are evaluated with.
type fallbackValues struct {
	Property string
	Value    string
	Match    string
}

func fallbackFuncs() template.FuncMap {
	funcMap := sprig.FuncMap()
	funcMap["px"] = pxTerm
	funcMap["shadow"] = shadowValue
	funcMap["lengthOf"] = lengthOf
	funcMap["colorOf"] = colorOf
	return funcMap
}

func parseFallbacks(data []byte) (map[string][]*fallbackRule, error) {
	var table fallbackTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("failed to decode fallback table: %w", err)
	}

	funcMap := fallbackFuncs()
	rules := make(map[string][]*fallbackRule)
	for i, r := range table.Fallbacks {
		r.Property = strings.ToLower(strings.TrimSpace(r.Property))
		if r.Property == "" {
			return nil, fmt.Errorf("fallback entry %d has no property", i)
		}
		if len(r.Emit) == 0 {
			return nil, fmt.Errorf("fallback entry %d (%s) emits nothing", i, r.Property)
		}
		for j := range r.When {
			r.When[j] = strings.ToLower(strings.TrimSpace(r.When[j]))
		}
		if len(r.Match) > 0 {
			match := make(map[string]string, len(r.Match))
			for k, v := range r.Match {
				match[strings.ToLower(strings.TrimSpace(k))] = v
			}
			r.Match = match
		}
		for _, e := range r.Emit {
			e.Property = strings.ToLower(strings.TrimSpace(e.Property))
			if e.Property == "" {
				return nil, fmt.Errorf("fallback entry %d (%s) emits declaration without property", i, r.Property)
			}
			tmpl, err := template.New(r.Property + "->" + e.Property).Funcs(funcMap).Parse(e.Value)
			if err != nil {
				return nil, fmt.Errorf("unable to parse fallback template for %s: %w", r.Property, err)
			}
			e.tmpl = tmpl
		}
		rules[r.Property] = append(rules[r.Property], r)
	}
	return rules, nil
}

// matches reports whether rule applies to value and returns matched table
// entry if rule has one.
func (r *fallbackRule) matches(value string) (string, bool) {
	terms := strings.Fields(strings.ToLower(value))
	if len(r.Match) > 0 {
		for _, t := range terms {
			if m, ok := r.Match[t]; ok {
				return m, true
			}
		}
		return "", false
	}
	if len(r.When) == 0 {
		return "", true
	}
	for _, t := range terms {
		for _, w := range r.When {
			if t == w {
				return "", true
			}
		}
	}
	return "", false
}

// Synthesize produces substitute declarations for a fallback-level property.
// Empty result means no synthesis rule applies to this value.
func (p *Policy) Synthesize(property, value string) ([]Substitute, error) {
	rules := p.fallbacks[strings.ToLower(property)]
	value = strings.TrimSpace(value)

	for _, r := range rules {
		m, ok := r.matches(value)
		if !ok {
			continue
		}
		values := &fallbackValues{Property: r.Property, Value: value, Match: m}
		var out []Substitute
		for _, e := range r.Emit {
			buf := new(bytes.Buffer)
			if err := e.tmpl.Execute(buf, values); err != nil {
				return nil, fmt.Errorf("unable to synthesize %s from %s: %w", e.Property, property, err)
			}
			if v := strings.TrimSpace(buf.String()); v != "" {
				out = append(out, Substitute{Property: e.Property, Value: v})
			}
		}
		return out, nil
	}
	return nil, nil
}

// HasFallback returns true if synthesis table has entries for property.
func (p *Policy) HasFallback(property string) bool {
	return len(p.fallbacks[strings.ToLower(property)]) > 0
}

// pxTerm gives unitless numbers a px unit.
func pxTerm(term string) string {
	kind, _, ok := css.Classify(term)
	if !ok {
		return ""
	}
	if kind == css.KindInteger || kind == css.KindNumber {
		return term + "px"
	}
	return term
}

const shadowColor = "rgba(0, 0, 0, 0.5)"

// shadowValue approximates first box shadow with text shadow: up to three
// leading numeric terms followed by fixed translucent black.
func shadowValue(value string) string {
	parts := css.SplitTopLevel(value, ',')
	if len(parts) == 0 {
		return ""
	}
	var terms []string
	for _, t := range css.SplitTopLevel(parts[0], ' ') {
		if strings.EqualFold(t, "inset") && len(terms) == 0 {
			continue
		}
		kind, _, _ := css.Classify(t)
		if !kind.IsNumeric() || len(terms) == 3 {
			break
		}
		terms = append(terms, pxTerm(t))
	}
	if len(terms) == 0 {
		return ""
	}
	return strings.Join(terms, " ") + " " + shadowColor
}

var borderWidths = map[string]string{
	"thin":   "1px",
	"medium": "3px",
	"thick":  "5px",
}

// lengthOf returns first length-like term of a shorthand value.
func lengthOf(value string) string {
	for _, t := range css.SplitTopLevel(value, ' ') {
		if w, ok := borderWidths[strings.ToLower(t)]; ok {
			return w
		}
		kind, _, _ := css.Classify(t)
		switch kind {
		case css.KindLength, css.KindInteger, css.KindNumber:
			return pxTerm(t)
		}
	}
	return ""
}

// colorOf returns first color-like term of a shorthand value.
func colorOf(value string) string {
	for _, t := range css.SplitTopLevel(value, ' ') {
		kind, _, _ := css.Classify(t)
		switch kind {
		case css.KindColor, css.KindVariableReference:
			return t
		case css.KindKeyword:
			if _, err := csscolorparser.Parse(t); err == nil {
				return t
			}
		}
	}
	return ""
}
