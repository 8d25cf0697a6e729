package kernel

import (
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferencedFields(t *testing.T) {
	tmpl, err := template.New("t").Parse(
		`{{ .b }}{{ if .a }}{{ $.c.d }}{{ end }}{{ range $x := .items }}{{ $x }}{{ end }}{{ with .e }}{{ . }}{{ end }}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "e", "items"}, ReferencedFields(tmpl))
}

func TestPromptTemplateMissingVariableRendersEmpty(t *testing.T) {
	pt, err := NewPromptTemplate("travel", "Where should someone from {{$country}} travel?")
	require.NoError(t, err)

	rendered, err := pt.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "Where should someone from  travel?", rendered)

	rendered, err = pt.Render(Arguments{"country": "Chile"})
	require.NoError(t, err)
	assert.Equal(t, "Where should someone from Chile travel?", rendered)
}

func TestTemplateDataKeepsArguments(t *testing.T) {
	tmpl, err := template.New("t").Parse(`{{ .a }}{{ .b | printf "%v" }}`)
	require.NoError(t, err)

	data := TemplateData(tmpl, Arguments{"a": 1, "z": "extra"})
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "", "z": "extra"}, data)
}
