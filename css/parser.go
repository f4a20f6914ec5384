package css

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// RawDeclaration is a property/value pair as produced by the low level grammar.
type RawDeclaration struct {
	Property string
	Value    string
	Line     int
}

// RuleSource is what model builder needs from the low level grammar parser
// for a single style rule.
type RuleSource interface {
	SelectorText() string
	Declarations() []RawDeclaration
}

// grammarRule collects a single ruleset from tdewolff grammar.
type grammarRule struct {
	selector string
	decls    []RawDeclaration
	line     int
}

func (r *grammarRule) SelectorText() string           { return r.selector }
func (r *grammarRule) Declarations() []RawDeclaration { return r.decls }

var (
	importantPattern = regexp.MustCompile(`(?i)\s*!\s*important\s*$`)
	varRefPattern    = regexp.MustCompile(`var\(\s*(--[A-Za-z0-9_\-]+)`)
)

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]Rule, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)
	lines := newLineIndex(data)

	for {
		gt, _, tok := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if errors.Is(parser.Err(), io.EOF) || parser.Err() == nil {
				p.collectVariables(sheet)
				return sheet
			}
			// grammar recovers on its own, rule in error is simply absent
			p.log.Debug("CSS parse error", zap.Error(parser.Err()))

		case css.BeginAtRuleGrammar:
			atRule := strings.ToLower(string(tok))
			switch atRule {
			case "@font-face":
				ff := p.parseFontFace(parser)
				if ff.Family != "" {
					sheet.FontFaces = append(sheet.FontFaces, ff)
				}
			default:
				p.skipAtRuleBlock(parser)
				sheet.Warnings = append(sheet.Warnings, "unsupported at-rule block: "+atRule)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.AtRuleGrammar:
			atRule := strings.ToLower(string(tok))
			if atRule == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sheet.Imports = append(sheet.Imports, url)
					p.log.Debug("Parsed @import", zap.String("url", url))
				}
			} else {
				sheet.Warnings = append(sheet.Warnings, "unsupported at-rule: "+atRule)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.BeginRulesetGrammar, css.QualifiedRuleGrammar:
			src := &grammarRule{
				selector: selectorText(tok, parser.Values()),
				line:     lines.line(input.Offset()),
			}
			if gt == css.BeginRulesetGrammar {
				src.decls = p.parseDeclarations(parser, input, data, lines)
			}
			if rule, ok := p.buildRule(src, sheet); ok {
				rule.Line = src.line
				sheet.Rules = append(sheet.Rules, rule)
			}
		}
	}
}

// buildRule turns low level rule into model rule applying two stage
// filtering: selectors first, then declarations.
func (p *Parser) buildRule(src RuleSource, sheet *Stylesheet) (Rule, bool) {
	text := strings.TrimSpace(src.SelectorText())
	if text == "" {
		return Rule{}, false
	}

	var rule Rule
	for _, s := range SplitTopLevel(text, ',') {
		sel := NewSelector(s)
		if sel.Raw == "" || len(sel.Segments) == 0 {
			continue
		}
		rule.Selectors = append(rule.Selectors, sel)
	}
	if len(rule.Selectors) == 0 {
		sheet.Warnings = append(sheet.Warnings, "rule without usable selectors: "+text)
		return Rule{}, false
	}

	for _, raw := range src.Declarations() {
		if decl, ok := newDeclaration(raw); ok {
			rule.Declarations = append(rule.Declarations, decl)
		}
	}
	if len(rule.Declarations) == 0 {
		p.log.Debug("Skipping rule without declarations", zap.String("selector", text))
		return Rule{}, false
	}
	return rule, true
}

// newDeclaration strips importance marker and classifies the remaining value.
func newDeclaration(raw RawDeclaration) (Declaration, bool) {
	name := strings.TrimSpace(raw.Property)
	if name == "" {
		return Declaration{}, false
	}
	if !IsCustomProperty(name) {
		name = strings.ToLower(name)
	}

	value := strings.TrimSpace(raw.Value)
	important := false
	if loc := importantPattern.FindStringIndex(value); loc != nil {
		important = true
		value = strings.TrimSpace(value[:loc[0]])
	}

	frag, ok := ParseValue(value)
	if !ok {
		return Declaration{}, false
	}
	return Declaration{Property: name, Value: []Fragment{frag}, Important: important, Line: raw.Line}, true
}

// selectorText builds selector string from token data.
func selectorText(data []byte, values []css.Token) string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	return sb.String()
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			s := string(t.Data)
			s = strings.TrimPrefix(s, "url(")
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
// Values are taken from source text since grammar drops whitespace around
// separators.
func (p *Parser) parseDeclarations(parser *css.Parser, input *parse.Input, src []byte, lines lineIndex) []RawDeclaration {
	var decls []RawDeclaration
	for {
		start := input.Offset()
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if errors.Is(parser.Err(), io.EOF) || parser.Err() == nil {
				return decls
			}
			p.log.Debug("CSS declaration error", zap.Error(parser.Err()))

		case css.EndRulesetGrammar:
			return decls

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			value := sourceValue(src, start, input.Offset())
			if value == "" {
				value = joinTokens(parser.Values())
			}
			if value != "" {
				decls = append(decls, RawDeclaration{
					Property: string(data),
					Value:    value,
					Line:     lines.line(input.Offset()),
				})
			}

		case css.BeginRulesetGrammar, css.BeginAtRuleGrammar:
			// nested rules are not part of the model
			p.skipAtRuleBlock(parser)
		}
	}
}

// joinTokens builds raw value string collapsing whitespace runs.
func joinTokens(tokens []css.Token) string {
	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			rawParts = append(rawParts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(rawParts, ""))
}

// sourceValue cuts declaration value out of src[start:end], which holds
// a single declaration including its terminator. Comments are removed and
// whitespace runs outside of quotes collapsed.
func sourceValue(src []byte, start, end int) string {
	if start < 0 || end > len(src) || start >= end {
		return ""
	}
	decl := stripComments(string(src[start:end]))
	decl = strings.TrimRightFunc(decl, unicode.IsSpace)
	if n := len(decl); n > 0 && (decl[n-1] == ';' || decl[n-1] == '}') {
		decl = decl[:n-1]
	}
	colon := strings.IndexByte(decl, ':')
	if colon < 0 {
		return ""
	}
	return collapseSpace(decl[colon+1:])
}

// stripComments removes /* */ comments outside of quoted strings.
func stripComments(s string) string {
	if !strings.Contains(s, "/*") {
		return s
	}
	var (
		sb    strings.Builder
		quote byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(s) {
				sb.WriteByte(c)
				i++
				c = s[i]
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return sb.String()
			}
			i += end + 3
			sb.WriteByte(' ')
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// collapseSpace trims s and replaces whitespace runs outside of quoted
// strings with a single space.
func collapseSpace(s string) string {
	var (
		sb    strings.Builder
		quote byte
		space bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote == 0 && unicode.IsSpace(rune(c)) {
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		switch {
		case quote != 0 && c == '\\' && i+1 < len(s):
			sb.WriteByte(c)
			i++
			c = s[i]
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// skipAtRuleBlock skips tokens until the matching end of a block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if errors.Is(parser.Err(), io.EOF) || parser.Err() == nil {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// parseFontFace parses an @font-face block.
func (p *Parser) parseFontFace(parser *css.Parser) FontFace {
	ff := FontFace{}

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if errors.Is(parser.Err(), io.EOF) || parser.Err() == nil {
				return ff
			}
		case css.EndAtRuleGrammar:
			return ff

		case css.DeclarationGrammar:
			valStr := joinTokens(parser.Values())
			if valStr == "" {
				continue
			}
			switch strings.ToLower(string(data)) {
			case "font-family":
				ff.Family = unquote(valStr)
			case "src":
				ff.Src = valStr
			case "font-style":
				ff.Style = valStr
			case "font-weight":
				ff.Weight = valStr
			}
		}
	}
}

// collectVariables records custom property definitions and references.
func (p *Parser) collectVariables(sheet *Stylesheet) {
	index := make(map[string]int)
	get := func(name string) *Variable {
		if i, ok := index[name]; ok {
			return &sheet.Variables[i]
		}
		index[name] = len(sheet.Variables)
		sheet.Variables = append(sheet.Variables, Variable{Name: name})
		return &sheet.Variables[len(sheet.Variables)-1]
	}

	for _, rule := range sheet.Rules {
		for _, decl := range rule.Declarations {
			if decl.IsCustom() {
				v := get(decl.Property)
				if !v.Defined {
					v.Defined = true
					v.Example = decl.Text()
					if len(decl.Value) > 0 {
						v.Type = decl.Value[0].Kind
					}
				}
				v.Lines = appendLine(v.Lines, decl.Line)
			}
			for _, m := range varRefPattern.FindAllStringSubmatch(decl.Text(), -1) {
				v := get(m[1])
				v.Lines = appendLine(v.Lines, decl.Line)
			}
		}
	}
	if len(sheet.Variables) > 0 {
		p.log.Debug("Collected CSS variables", zap.Int("count", len(sheet.Variables)))
	}
}

func appendLine(lines []int, line int) []int {
	if line <= 0 || (len(lines) > 0 && lines[len(lines)-1] == line) {
		return lines
	}
	return append(lines, line)
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(data []byte) lineIndex {
	idx := lineIndex{0}
	for i, c := range data {
		if c == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (li lineIndex) line(offset int) int {
	lo, hi := 0, len(li)
	for lo < hi {
		mid := (lo + hi) / 2
		if li[mid] <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
