package uss

import (
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"ussconv/css"
)

const (
	// DefaultRootSelector replaces whole document selectors.
	DefaultRootSelector = ":root"
	// DefaultStylesheetExt is used for imported stylesheets.
	DefaultStylesheetExt = ".uss"
)

// Engine converts stylesheets to target dialect. Engine keeps no state
// between calls and may be used concurrently.
type Engine struct {
	log          *zap.Logger
	policy       *Policy
	assets       AssetResolver
	rootSelector string
	importExt    string
}

// Option configures Engine.
type Option func(*Engine)

// WithRootSelector overrides selector used in place of html and body.
func WithRootSelector(sel string) Option {
	return func(e *Engine) {
		if sel = strings.TrimSpace(sel); sel != "" {
			e.rootSelector = sel
		}
	}
}

// WithStylesheetExt sets extension imported .css stylesheets are referenced
// with.
func WithStylesheetExt(ext string) Option {
	return func(e *Engine) {
		if ext = strings.TrimSpace(ext); ext != "" {
			e.importExt = ext
		}
	}
}

// NewEngine creates conversion engine. Nil assets means no font or image
// could be resolved.
func NewEngine(log *zap.Logger, policy *Policy, assets AssetResolver, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if assets == nil {
		assets = noAssets{}
	}
	e := &Engine{
		log:          log.Named("uss"),
		policy:       policy,
		assets:       assets,
		rootSelector: DefaultRootSelector,
		importExt:    DefaultStylesheetExt,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns translation tables engine was created with.
func (e *Engine) Policy() *Policy {
	return e.policy
}

// DroppedRule describes rule which produced no output.
type DroppedRule struct {
	Selector string
	Line     int
	Reason   string
}

// Result is the outcome of a single conversion.
type Result struct {
	// Imports are referenced stylesheets, written ahead of rules.
	Imports        []string
	Rules          []OutputRule
	Dropped        []DroppedRule
	Unsupported    []string
	NotImplemented []string

	// Warnings are parser notices about skipped input.
	Warnings []string
}

// conversion is per call state.
type conversion struct {
	engine         *Engine
	log            *zap.Logger
	assets         AssetResolver
	unsupported    map[string]struct{}
	notImplemented map[string]struct{}
}

// Convert parses stylesheet text and converts it.
func (e *Engine) Convert(data []byte, source string) *Result {
	sheet := css.NewParser(e.log).Parse(data, source)
	res := e.ConvertStylesheet(sheet)
	res.Warnings = sheet.Warnings
	return res
}

// ConvertStylesheet converts parsed stylesheet. Every rule is converted
// independently, output order follows source order.
func (e *Engine) ConvertStylesheet(sheet *css.Stylesheet) *Result {
	c := &conversion{
		engine:         e,
		log:            e.log,
		assets:         withFontFaces(e.assets, sheet.FontFaces),
		unsupported:    make(map[string]struct{}),
		notImplemented: make(map[string]struct{}),
	}

	res := &Result{}
	for _, imp := range sheet.Imports {
		res.Imports = append(res.Imports, e.importPath(imp))
	}
	for _, rule := range sheet.Rules {
		out, dropped, ok := c.convertRule(rule)
		if !ok {
			res.Dropped = append(res.Dropped, dropped)
			e.log.Info("Dropping rule", zap.String("selector", dropped.Selector), zap.Int("line", dropped.Line), zap.String("reason", dropped.Reason))
			continue
		}
		res.Rules = append(res.Rules, out)
	}

	res.Unsupported = sortedKeys(c.unsupported)
	res.NotImplemented = sortedKeys(c.notImplemented)
	if len(res.Unsupported) > 0 {
		e.log.Info("Unsupported properties", zap.Strings("properties", res.Unsupported))
	}
	if len(res.NotImplemented) > 0 {
		e.log.Info("Not yet implemented properties", zap.Strings("properties", res.NotImplemented))
	}
	return res
}

// importPath points imported stylesheet to its converted counterpart.
func (e *Engine) importPath(imp string) string {
	if strings.EqualFold(path.Ext(imp), ".css") {
		return strings.TrimSuffix(imp, path.Ext(imp)) + e.importExt
	}
	return imp
}

func (c *conversion) convertRule(rule css.Rule) (OutputRule, DroppedRule, bool) {
	selectors, rejected := c.translateSelectors(rule)
	for _, r := range rejected {
		c.log.Debug("Selector rejected", zap.String("selector", r.selector), zap.String("reason", r.reason))
	}
	if len(selectors) == 0 {
		reason := "no supported selectors"
		if len(rejected) > 0 {
			reason = rejected[0].reason
		}
		return OutputRule{}, DroppedRule{Selector: rule.SelectorText(), Line: rule.Line, Reason: reason}, false
	}

	decls := c.convertDeclarations(rule)
	if len(decls) == 0 {
		return OutputRule{}, DroppedRule{Selector: rule.SelectorText(), Line: rule.Line, Reason: "no supported declarations"}, false
	}
	return OutputRule{Selectors: selectors, Declarations: decls}, DroppedRule{}, true
}

func (c *conversion) convertDeclarations(rule css.Rule) []OutputDeclaration {
	var out []OutputDeclaration
	for _, decl := range rule.Declarations {
		if decl.Important {
			c.log.Debug("Ignoring !important", zap.String("property", decl.Property), zap.Int("line", decl.Line))
		}
		out = c.convertDeclaration(rule, decl, out)
	}
	return out
}

func (c *conversion) convertDeclaration(rule css.Rule, decl css.Declaration, out []OutputDeclaration) []OutputDeclaration {
	value := decl.Text()
	if decl.IsCustom() {
		if strings.TrimSpace(value) != "" {
			out = append(out, OutputDeclaration{Property: decl.Property, Value: value})
		}
		return out
	}

	prop := CanonicalProperty(decl.Property)
	info, known := c.engine.policy.Lookup(prop)
	if !known || info.Support == SupportUnsupported {
		c.unsupported[decl.Property] = struct{}{}
		return out
	}

	if info.Support == SupportFallback {
		subs, err := c.engine.policy.Synthesize(prop, value)
		if err != nil {
			c.log.Debug("Fallback synthesis failed", zap.String("property", prop), zap.Error(err))
		}
		emitted := 0
		for _, sub := range subs {
			// synthesized declaration may keep property name when target
			// accepts some of its values
			if sub.Property != prop && !c.engine.policy.IsNative(sub.Property) {
				continue
			}
			if v := c.translateValue(sub.Property, sub.Value); v != "" {
				out = append(out, OutputDeclaration{Property: sub.Property, Value: v})
				emitted++
			}
		}
		if emitted == 0 {
			c.notImplemented[decl.Property] = struct{}{}
		}
		return out
	}

	v := c.translateValue(prop, value)
	if v == "" {
		return out
	}
	out = append(out, OutputDeclaration{Property: prop, Value: v})

	if comp, ok := companions[prop]; ok && !rule.HasDeclaration(comp) && c.engine.policy.IsNative(comp) {
		if kind, _, _ := css.Classify(v); kind == css.KindResource {
			out = append(out, OutputDeclaration{Property: comp, Value: v})
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Sort(natural.StringSlice(keys))
	return keys
}
