package uss

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/maruel/natural"
	yaml "gopkg.in/yaml.v3"
)

//go:embed data/properties.yaml
var defaultProperties []byte

//go:embed data/fallbacks.yaml
var defaultFallbacks []byte

// DefaultBreakingSelectors are selector substrings target dialect cannot
// express at all.
var DefaultBreakingSelectors = []string{"[", "+", "~", "|", "@"}

// Support describes how a property is represented in the target dialect.
type Support int

const (
	SupportUnsupported Support = iota
	SupportFallback
	SupportNative
)

func (s Support) String() string {
	switch s {
	case SupportNative:
		return "native"
	case SupportFallback:
		return "fallback"
	default:
		return "unsupported"
	}
}

// ParseSupport returns support level by name.
func ParseSupport(name string) (Support, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "native", "supported":
		return SupportNative, nil
	case "fallback", "partial":
		return SupportFallback, nil
	case "unsupported", "none":
		return SupportUnsupported, nil
	}
	return SupportUnsupported, fmt.Errorf("unknown support level %q", name)
}

// UnmarshalYAML decodes support level from its name.
func (s *Support) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseSupport(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = v
	return nil
}

// MarshalYAML encodes support level as its name.
func (s Support) MarshalYAML() (any, error) {
	return s.String(), nil
}

// PropertyInfo is a single entry of the property support table.
type PropertyInfo struct {
	Name        string  `yaml:"name"`
	Support     Support `yaml:"support"`
	Description string  `yaml:"description,omitempty"`
}

type propertyTable struct {
	Properties []PropertyInfo `yaml:"properties"`
}

// Policy holds read-only translation tables. Once built it is never modified
// and may be shared by any number of concurrent conversions.
type Policy struct {
	properties map[string]PropertyInfo
	breaking   []string
	fallbacks  map[string][]*fallbackRule
}

// LoadPolicy builds policy from property support table and fallback synthesis
// table (both YAML). Nil data selects embedded defaults, nil breaking
// selects DefaultBreakingSelectors.
func LoadPolicy(properties, fallbacks []byte, breaking []string) (*Policy, error) {
	if properties == nil {
		properties = defaultProperties
	}
	if fallbacks == nil {
		fallbacks = defaultFallbacks
	}
	if breaking == nil {
		breaking = DefaultBreakingSelectors
	}

	p := &Policy{properties: make(map[string]PropertyInfo)}

	var table propertyTable
	dec := yaml.NewDecoder(bytes.NewReader(properties))
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("failed to decode property support table: %w", err)
	}
	for _, info := range table.Properties {
		name := strings.ToLower(strings.TrimSpace(info.Name))
		if name == "" {
			return nil, fmt.Errorf("property support table has entry without name")
		}
		info.Name = name
		p.properties[name] = info
	}

	rules, err := parseFallbacks(fallbacks)
	if err != nil {
		return nil, err
	}
	p.fallbacks = rules

	for _, b := range breaking {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			p.breaking = append(p.breaking, b)
		}
	}
	return p, nil
}

// DefaultPolicy returns policy built from embedded tables.
func DefaultPolicy() (*Policy, error) {
	return LoadPolicy(nil, nil, nil)
}

// Lookup returns support table entry for a property.
func (p *Policy) Lookup(property string) (PropertyInfo, bool) {
	info, ok := p.properties[strings.ToLower(property)]
	return info, ok
}

// IsNative returns true if property is directly representable in target dialect.
func (p *Policy) IsNative(property string) bool {
	info, ok := p.Lookup(property)
	return ok && info.Support == SupportNative
}

// Breaking returns the first denylisted substring found in selector.
func (p *Policy) Breaking(selector string) (string, bool) {
	s := strings.ToLower(selector)
	for _, b := range p.breaking {
		if strings.Contains(s, b) {
			return b, true
		}
	}
	return "", false
}

// Properties returns support table sorted by property name.
func (p *Policy) Properties() []PropertyInfo {
	out := make([]PropertyInfo, 0, len(p.properties))
	for _, info := range p.properties {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return natural.Less(out[i].Name, out[j].Name) })
	return out
}

// BreakingSelectors returns configured denylist.
func (p *Policy) BreakingSelectors() []string {
	return append([]string(nil), p.breaking...)
}
