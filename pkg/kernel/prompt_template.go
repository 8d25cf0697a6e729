package kernel

import (
	"bytes"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

var bareVariableRegexp = regexp.MustCompile(`\{\{(-?)\s*\$([A-Za-z_][A-Za-z0-9_]*)\s*(-?)\}\}`)
var declaredVariableRegexp = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)\s*(?::=|=|,)`)

// PromptTemplate is a text/template prompt with the sprig function library.
// Bare `{{$name}}` references are accepted as argument lookups, so prompt
// bundles written for `{{$input}}` style templates load unchanged.
type PromptTemplate struct {
	source string
	tmpl   *template.Template
}

func NewPromptTemplate(name, source string) (*PromptTemplate, error) {
	rewritten := rewriteBareVariables(source)
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Parse(rewritten)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse prompt template %s", name)
	}
	return &PromptTemplate{
		source: source,
		tmpl:   tmpl,
	}, nil
}

func (t *PromptTemplate) Source() string {
	return t.source
}

func (t *PromptTemplate) Render(args Arguments) (string, error) {
	buf := &bytes.Buffer{}
	if err := t.tmpl.Execute(buf, TemplateData(t.tmpl, args)); err != nil {
		return "", errors.Wrapf(err, "could not render prompt template %s", t.tmpl.Name())
	}
	return buf.String(), nil
}

func rewriteBareVariables(source string) string {
	declared := map[string]bool{}
	for _, m := range declaredVariableRegexp.FindAllStringSubmatch(source, -1) {
		declared[m[1]] = true
	}

	return bareVariableRegexp.ReplaceAllStringFunc(source, func(match string) string {
		m := bareVariableRegexp.FindStringSubmatch(match)
		if declared[m[2]] {
			return match
		}
		var sb strings.Builder
		sb.WriteString("{{")
		if m[1] != "" {
			sb.WriteString("- ")
		}
		sb.WriteString(".")
		sb.WriteString(m[2])
		if m[3] != "" {
			sb.WriteString(" -")
		}
		sb.WriteString("}}")
		return sb.String()
	})
}
