package kernel

import (
	"sort"
	"text/template"
	"text/template/parse"
)

// WalkTemplate calls visit for every parse node of every template defined
// in t.
func WalkTemplate(t *template.Template, visit func(parse.Node)) {
	for _, tt := range t.Templates() {
		if tt.Tree == nil || tt.Tree.Root == nil {
			continue
		}
		walkNode(tt.Tree.Root, visit)
	}
}

// ReferencedFields returns the top-level data keys t reads as `.name` or
// `$.name`, sorted.
func ReferencedFields(t *template.Template) []string {
	seen := map[string]bool{}
	WalkTemplate(t, func(n parse.Node) {
		switch n := n.(type) {
		case *parse.FieldNode:
			if len(n.Ident) > 0 {
				seen[n.Ident[0]] = true
			}
		case *parse.VariableNode:
			if len(n.Ident) > 1 && n.Ident[0] == "$" {
				seen[n.Ident[1]] = true
			}
		}
	})

	ret := make([]string, 0, len(seen))
	for name := range seen {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// TemplateData builds the data map for t from args. Fields the template
// reads but args lack are set to "" so they do not render as "<no value>".
func TemplateData(t *template.Template, args Arguments) map[string]interface{} {
	data := map[string]interface{}{}
	for _, name := range ReferencedFields(t) {
		data[name] = ""
	}
	for k, v := range args {
		data[k] = v
	}
	return data
}

func walkNode(n parse.Node, visit func(parse.Node)) {
	visit(n)
	switch n := n.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			walkNode(c, visit)
		}
	case *parse.ActionNode:
		if n.Pipe != nil {
			walkNode(n.Pipe, visit)
		}
	case *parse.PipeNode:
		for _, d := range n.Decl {
			walkNode(d, visit)
		}
		for _, c := range n.Cmds {
			walkNode(c, visit)
		}
	case *parse.CommandNode:
		for _, a := range n.Args {
			walkNode(a, visit)
		}
	case *parse.ChainNode:
		walkNode(n.Node, visit)
	case *parse.TemplateNode:
		if n.Pipe != nil {
			walkNode(n.Pipe, visit)
		}
	case *parse.IfNode:
		walkBranch(&n.BranchNode, visit)
	case *parse.WithNode:
		walkBranch(&n.BranchNode, visit)
	case *parse.RangeNode:
		walkBranch(&n.BranchNode, visit)
	}
}

func walkBranch(b *parse.BranchNode, visit func(parse.Node)) {
	if b.Pipe != nil {
		walkNode(b.Pipe, visit)
	}
	if b.List != nil {
		walkNode(b.List, visit)
	}
	if b.ElseList != nil {
		walkNode(b.ElseList, visit)
	}
}
