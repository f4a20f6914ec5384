package uss

import "strings"

// Element types of the target toolkit.
const (
	ElementVisual      = "VisualElement"
	ElementLabel       = "Label"
	ElementButton      = "Button"
	ElementTextField   = "TextField"
	ElementToggle      = "Toggle"
	ElementImage       = "Image"
	ElementScrollView  = "ScrollView"
	ElementDropdown    = "DropdownField"
	ElementSlider      = "Slider"
	ElementProgressBar = "ProgressBar"
	ElementFoldout     = "Foldout"
	ElementListView    = "ListView"
	ElementGroupBox    = "GroupBox"
	ElementRadioButton = "RadioButton"
)

// htmlElements maps markup element names to toolkit element types. Names
// absent here are kept verbatim in selectors and become VisualElement in
// documents.
var htmlElements = map[string]string{
	"div":        ElementVisual,
	"section":    ElementVisual,
	"article":    ElementVisual,
	"main":       ElementVisual,
	"header":     ElementVisual,
	"footer":     ElementVisual,
	"nav":        ElementVisual,
	"aside":      ElementVisual,
	"span":       ElementLabel,
	"p":          ElementLabel,
	"h1":         ElementLabel,
	"h2":         ElementLabel,
	"h3":         ElementLabel,
	"h4":         ElementLabel,
	"h5":         ElementLabel,
	"h6":         ElementLabel,
	"label":      ElementLabel,
	"a":          ElementLabel,
	"strong":     ElementLabel,
	"em":         ElementLabel,
	"b":          ElementLabel,
	"i":          ElementLabel,
	"small":      ElementLabel,
	"li":         ElementLabel,
	"td":         ElementLabel,
	"th":         ElementLabel,
	"button":     ElementButton,
	"input":      ElementTextField,
	"textarea":   ElementTextField,
	"img":        ElementImage,
	"select":     ElementDropdown,
	"progress":   ElementProgressBar,
	"details":    ElementFoldout,
	"ul":         ElementListView,
	"ol":         ElementListView,
	"fieldset":   ElementGroupBox,
	"form":       ElementVisual,
	"table":      ElementVisual,
	"tr":         ElementVisual,
	"figure":     ElementVisual,
	"blockquote": ElementVisual,
}

// inputElements maps input types to toolkit element types.
var inputElements = map[string]string{
	"checkbox": ElementToggle,
	"radio":    ElementRadioButton,
	"range":    ElementSlider,
	"button":   ElementButton,
	"submit":   ElementButton,
	"reset":    ElementButton,
	"image":    ElementImage,
}

// ElementFor returns toolkit element type for a markup element name.
func ElementFor(tag string) (string, bool) {
	e, ok := htmlElements[strings.ToLower(tag)]
	return e, ok
}

// InputElementFor returns toolkit element type for an input element of
// given type attribute.
func InputElementFor(inputType string) string {
	if e, ok := inputElements[strings.ToLower(strings.TrimSpace(inputType))]; ok {
		return e
	}
	return ElementTextField
}

// IsDocumentRoot returns true for element names denoting whole document.
func IsDocumentRoot(tag string) bool {
	switch strings.ToLower(tag) {
	case "html", "body":
		return true
	}
	return false
}
