package convert

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"ussconv/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context string
	// Name is source file name without extension.
	Name string
	// Dir is slash separated source directory relative to processed path.
	Dir string
	// Kind is either "stylesheet" or "markup".
	Kind   string
	Source string
}

func newValues(name config.TemplateFieldName, src string, kind sourceKind) Values {
	slashed := filepath.ToSlash(src)
	dir := path.Dir(slashed)
	if dir == "." {
		dir = ""
	}
	return Values{
		Context: string(name),
		Name:    strings.TrimSuffix(path.Base(slashed), path.Ext(slashed)),
		Dir:     dir,
		Kind:    kind.String(),
		Source:  slashed,
	}
}

func expandTemplate(name config.TemplateFieldName, field string, src string, kind sourceKind) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, newValues(name, src, kind)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
