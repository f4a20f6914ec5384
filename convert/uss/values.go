package uss

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mazznoer/csscolorparser"
	"go.uber.org/zap"

	"ussconv/css"
)

// PixelsPerEm is fixed rem/em to pixel ratio.
const PixelsPerEm = 16

var (
	leadingZeroPattern = regexp.MustCompile(`(^|[\s,(])\.(\d)`)
	viewportPattern    = regexp.MustCompile(`(?i)(\d*\.?\d+)(vw|vh|vmin|vmax)\b`)
	emPattern          = regexp.MustCompile(`(?i)(^|[\s,(/])([+-]?(?:\d+(?:\.\d+)?|\.\d+))(r?em)\b`)
	gradientPattern    = regexp.MustCompile(`(?i)\b(?:repeating-)?(?:linear|radial|conic)-gradient\(`)
	hslPattern         = regexp.MustCompile(`(?i)\bhsla?\([^()]*\)`)
	urlPattern         = regexp.MustCompile(`(?i)url\(\s*([^)]*?)\s*\)`)
)

// aliases rename shorthand properties to their target counterparts.
var aliases = map[string]string{
	"background":  "background-color",
	"font-family": "-unity-font",
}

// companions are declarations synthesized next to a resolved asset reference.
var companions = map[string]string{
	"-unity-font": "-unity-font-definition",
}

// firstTokenProperties take only the first space separated value.
var firstTokenProperties = map[string]bool{
	"border-radius":              true,
	"border-top-left-radius":     true,
	"border-top-right-radius":    true,
	"border-bottom-left-radius":  true,
	"border-bottom-right-radius": true,
}

// singleValueProperties do not accept comma separated lists.
var singleValueProperties = map[string]bool{
	"background-color":       true,
	"background-image":       true,
	"font-family":            true,
	"-unity-font":            true,
	"-unity-font-definition": true,
	"text-shadow":            true,
	"box-shadow":             true,
	"cursor":                 true,
}

// CanonicalProperty returns target name for a source property.
func CanonicalProperty(property string) string {
	if a, ok := aliases[property]; ok {
		return a
	}
	return property
}

// translateValue converts a declared value to target syntax. Empty result
// means value cannot be represented and declaration is to be omitted.
func (c *conversion) translateValue(property, raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}

	v = addLeadingZero(v)
	v = viewportToPercent(v)

	if firstTokenProperties[property] {
		if parts := css.SplitTopLevel(v, ' '); len(parts) > 0 {
			v = parts[0]
		}
	}
	if (property == "background-image" || property == "background-color") && gradientPattern.MatchString(v) {
		return "none"
	}
	if singleValueProperties[property] {
		if parts := css.SplitTopLevel(v, ','); len(parts) > 0 {
			v = parts[0]
		}
	}

	switch property {
	case "-unity-font", "-unity-font-definition":
		return c.resolveFont(v)
	case "background-image":
		v = c.resolveImages(v)
	case "letter-spacing":
		return letterSpacing(v)
	}

	v = hslToRGBA(v)
	return emToPixels(v)
}

// addLeadingZero turns ".5" into "0.5" at value, whitespace, comma or paren
// boundaries.
func addLeadingZero(v string) string {
	return leadingZeroPattern.ReplaceAllString(v, "${1}0.${2}")
}

// viewportToPercent rewrites viewport relative units as percentages.
func viewportToPercent(v string) string {
	return viewportPattern.ReplaceAllString(v, "${1}%")
}

// emToPixels converts every rem/em length to whole pixels.
func emToPixels(v string) string {
	return convertEm(v, 1)
}

func convertEm(v string, factor float64) string {
	return emPattern.ReplaceAllStringFunc(v, func(m string) string {
		sub := emPattern.FindStringSubmatch(m)
		n, err := strconv.ParseFloat(sub[2], 64)
		if err != nil {
			return m
		}
		return sub[1] + formatPixels(math.Round(n*PixelsPerEm)*factor)
	})
}

func formatPixels(px float64) string {
	if px == 0 {
		return "0px"
	}
	return strconv.FormatFloat(px, 'f', -1, 64) + "px"
}

// letterSpacing doubles converted em based spacing. Target renders spacing
// at half the browser width.
func letterSpacing(v string) string {
	if strings.EqualFold(v, "normal") {
		return "0"
	}
	if emPattern.MatchString(v) {
		return convertEm(v, 2)
	}
	return v
}

// hslToRGBA rewrites hsl()/hsla() colors which target does not accept.
func hslToRGBA(v string) string {
	if !hslPattern.MatchString(v) {
		return v
	}
	return hslPattern.ReplaceAllStringFunc(v, func(m string) string {
		col, err := csscolorparser.Parse(m)
		if err != nil {
			return m
		}
		return formatRGBA(col)
	})
}

func formatRGBA(col csscolorparser.Color) string {
	r := int(math.Round(col.R * 255))
	g := int(math.Round(col.G * 255))
	b := int(math.Round(col.B * 255))
	if col.A >= 1 {
		return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
	}
	a := math.Round(col.A*100) / 100
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(a, 'f', -1, 64))
}

// resolveFont turns font family name or url into target asset reference.
// Unresolvable fonts produce empty value.
func (c *conversion) resolveFont(v string) string {
	kind, _, _ := css.Classify(v)
	switch kind {
	case css.KindResource, css.KindVariableReference:
		return v
	case css.KindURL:
		if m := urlPattern.FindStringSubmatch(v); m != nil {
			if path, ok := c.assets.Font(css.Unquote(m[1])); ok {
				return resourceRef(path)
			}
		}
		return ""
	}
	if path, ok := c.assets.Font(css.Unquote(v)); ok {
		return resourceRef(path)
	}
	c.log.Debug("Unable to resolve font", zap.String("font", v))
	return ""
}

// resolveImages replaces resolvable url() references with asset references.
func (c *conversion) resolveImages(v string) string {
	return urlPattern.ReplaceAllStringFunc(v, func(m string) string {
		sub := urlPattern.FindStringSubmatch(m)
		if path, ok := c.assets.Image(css.Unquote(sub[1])); ok {
			return resourceRef(path)
		}
		return m
	})
}

func resourceRef(path string) string {
	return `resource("` + path + `")`
}
