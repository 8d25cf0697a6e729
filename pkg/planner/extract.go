package planner

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var planBlockLanguages = map[string]bool{
	"gotemplate":  true,
	"go-template": true,
	"gotmpl":      true,
	"tmpl":        true,
	"template":    true,
}

// ExtractPlanTemplate returns the contents of the first fenced code block
// tagged with a template language. Untagged blocks are used as a fallback.
func ExtractPlanTemplate(markdownText string) (string, bool) {
	source := []byte(markdownText)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var tagged, untagged string
	foundTagged, foundUntagged := false, false

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		cb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		code := blockContent(cb, source)
		lang := strings.ToLower(string(cb.Language(source)))
		switch {
		case planBlockLanguages[lang]:
			tagged, foundTagged = code, true
			return ast.WalkStop, nil
		case lang == "" && !foundUntagged:
			untagged, foundUntagged = code, true
		}
		return ast.WalkContinue, nil
	})

	if foundTagged {
		return strings.TrimSpace(tagged), true
	}
	if foundUntagged {
		return strings.TrimSpace(untagged), true
	}
	return "", false
}

func blockContent(cb *ast.FencedCodeBlock, source []byte) string {
	lines := cb.Lines()
	if lines.Len() == 0 {
		return ""
	}
	start := lines.At(0).Start
	stop := lines.At(lines.Len() - 1).Stop
	return string(source[start:stop])
}
