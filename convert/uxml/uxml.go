// Package uxml converts HTML markup into UI Toolkit UXML documents.
package uxml

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ussconv/convert/uss"
)

const (
	uiNamespace     = "UnityEngine.UIElements"
	editorNamespace = "UnityEditor.UIElements"
)

// Options controls markup conversion.
type Options struct {
	// UppercaseLabels upper-cases text of label-like elements.
	UppercaseLabels bool
	// InlineRule is selector used to convert inline style attributes.
	InlineRule string
}

// Document is the result of markup conversion.
type Document struct {
	Tree *etree.Document
	// Styles are contents of embedded <style> elements in document order.
	Styles [][]byte
	// Links are hrefs of linked stylesheets.
	Links []string

	root *etree.Element
}

// AddStyle references stylesheet from document.
func (d *Document) AddStyle(src string) {
	style := etree.NewElement("Style")
	style.CreateAttr("src", src)
	d.root.InsertChildAt(d.styleIndex(), style)
}

// styleIndex returns position after leading Style references.
func (d *Document) styleIndex() int {
	for i, tok := range d.root.Child {
		if el, ok := tok.(*etree.Element); ok && el.Tag != "Style" {
			return i
		}
	}
	return len(d.root.Child)
}

// WriteTo writes indented UXML document.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.Tree.Indent(4)
	return d.Tree.WriteTo(w)
}

// Bytes returns serialized document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Converter translates HTML documents. It is safe for concurrent use.
type Converter struct {
	log    *zap.Logger
	engine *uss.Engine
	opts   Options
}

// NewConverter creates markup converter. Engine is used to translate inline
// style attributes and may be nil, in which case they are dropped.
func NewConverter(log *zap.Logger, engine *uss.Engine, opts Options) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.InlineRule == "" {
		opts.InlineRule = ".inline"
	}
	return &Converter{
		log:    log.Named("uxml"),
		engine: engine,
		opts:   opts,
	}
}

// Convert parses HTML from r and builds UXML document.
func (c *Converter) Convert(r io.Reader, contentType string) (*Document, error) {
	if contentType == "" {
		contentType = "text/html"
	}
	cr, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("unable to detect markup encoding: %w", err)
	}
	node, err := html.Parse(cr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse markup: %w", err)
	}

	doc := &Document{Tree: etree.NewDocument()}
	doc.Tree.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	doc.root = doc.Tree.CreateElement("ui:UXML")
	doc.root.CreateAttr("xmlns:ui", uiNamespace)
	doc.root.CreateAttr("xmlns:uie", editorNamespace)
	doc.root.CreateAttr("editor-extension-mode", "False")

	// casers keep state
	w := &walker{Converter: c, doc: doc, upper: cases.Upper(language.Und)}
	w.children(node, doc.root)

	c.log.Debug("Markup converted",
		zap.Int("elements", len(doc.root.FindElements("//*"))),
		zap.Int("styles", len(doc.Styles)),
		zap.Int("links", len(doc.Links)))
	return doc, nil
}

// walker holds per document state.
type walker struct {
	*Converter
	doc   *Document
	upper cases.Caser
}

func (w *walker) children(n *html.Node, parent *etree.Element) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		w.node(ch, parent)
	}
}

func (w *walker) node(n *html.Node, parent *etree.Element) {
	switch n.Type {
	case html.DocumentNode:
		w.children(n, parent)
	case html.TextNode:
		if text := collapseSpace(n.Data); text != "" {
			w.label(parent, text)
		}
	case html.ElementNode:
		w.element(n, parent)
	}
}

func (w *walker) element(n *html.Node, parent *etree.Element) {
	switch n.DataAtom {
	case atom.Style:
		var sb strings.Builder
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.TextNode {
				sb.WriteString(ch.Data)
			}
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			w.doc.Styles = append(w.doc.Styles, []byte(s))
		}
		return
	case atom.Link:
		if strings.EqualFold(attr(n, "rel"), "stylesheet") {
			if href := attr(n, "href"); href != "" {
				w.doc.Links = append(w.doc.Links, href)
			}
		}
		return
	case atom.Script, atom.Meta, atom.Title, atom.Noscript, atom.Template, atom.Br, atom.Hr:
		return
	case atom.Html, atom.Head, atom.Body:
		w.children(n, parent)
		return
	}

	var typ string
	switch {
	case n.DataAtom == atom.Input:
		typ = uss.InputElementFor(attr(n, "type"))
	default:
		if e, ok := uss.ElementFor(n.Data); ok {
			typ = e
		} else {
			typ = uss.ElementVisual
		}
	}

	el := parent.CreateElement("ui:" + typ)
	if id := attr(n, "id"); id != "" {
		el.CreateAttr("name", id)
	}
	if class := strings.Join(strings.Fields(attr(n, "class")), " "); class != "" {
		el.CreateAttr("class", class)
	}
	if style := w.inlineStyle(attr(n, "style")); style != "" {
		el.CreateAttr("style", style)
	}

	switch typ {
	case uss.ElementLabel, uss.ElementButton:
		if text := collapseSpace(textContent(n)); text != "" {
			if typ == uss.ElementLabel && w.opts.UppercaseLabels {
				text = w.upper.String(text)
			}
			el.CreateAttr("text", text)
		}
		return
	case uss.ElementTextField:
		if v := attr(n, "value"); v != "" {
			el.CreateAttr("value", v)
		} else if n.DataAtom == atom.Textarea {
			if text := textContent(n); text != "" {
				el.CreateAttr("value", text)
				el.CreateAttr("multiline", "true")
			}
		}
		if p := attr(n, "placeholder"); p != "" {
			el.CreateAttr("label", p)
		}
		return
	case uss.ElementToggle, uss.ElementRadioButton:
		if hasAttr(n, "checked") {
			el.CreateAttr("value", "true")
		}
		return
	case uss.ElementImage:
		if src := attr(n, "src"); src != "" {
			el.CreateAttr("style", joinStyle(el.SelectAttrValue("style", ""), "background-image: url("+src+")"))
		}
		return
	}
	w.children(n, el)
}

func (w *walker) label(parent *etree.Element, text string) {
	if w.opts.UppercaseLabels {
		text = w.upper.String(text)
	}
	parent.CreateElement("ui:" + uss.ElementLabel).CreateAttr("text", text)
}

// inlineStyle converts style attribute declarations using stylesheet engine.
func (w *walker) inlineStyle(style string) string {
	if strings.TrimSpace(style) == "" || w.engine == nil {
		return ""
	}
	res := w.engine.Convert([]byte(w.opts.InlineRule+" { "+style+" }"), "style attribute")
	if len(res.Rules) == 0 {
		return ""
	}
	parts := make([]string, 0, len(res.Rules[0].Declarations))
	for _, d := range res.Rules[0].Declarations {
		parts = append(parts, d.Property+": "+d.Value)
	}
	return strings.Join(parts, "; ")
}

func joinStyle(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				sb.WriteByte('\n')
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
