package uss

import (
	"bufio"
	"io"
	"strings"
)

const indent = "  "

// OutputDeclaration is a single translated property.
type OutputDeclaration struct {
	Property string
	Value    string
}

// OutputRule is a translated rule ready to be written.
type OutputRule struct {
	Selectors    []string
	Declarations []OutputDeclaration
}

// SelectorText returns comma separated selector list.
func (r OutputRule) SelectorText() string {
	return strings.Join(r.Selectors, ", ")
}

// WriteTo writes imports followed by rules in target block syntax: one
// declaration per line, rules separated by blank line.
func (res *Result) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(s string) error {
		m, err := bw.WriteString(s)
		n += int64(m)
		return err
	}

	for _, imp := range res.Imports {
		if err := write(`@import url("` + imp + `");` + "\n"); err != nil {
			return n, err
		}
	}
	for i, r := range res.Rules {
		if i > 0 || len(res.Imports) > 0 {
			if err := write("\n"); err != nil {
				return n, err
			}
		}
		if err := write(r.SelectorText() + " {\n"); err != nil {
			return n, err
		}
		for _, d := range r.Declarations {
			if err := write(indent + d.Property + ": " + d.Value + ";\n"); err != nil {
				return n, err
			}
		}
		if err := write("}\n"); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// String returns converted stylesheet text.
func (res *Result) String() string {
	var sb strings.Builder
	_, _ = res.WriteTo(&sb)
	return sb.String()
}
