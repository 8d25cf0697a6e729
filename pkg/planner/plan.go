package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Plan is a text/template program whose functions are the kernel's plugin
// functions. The prompt that produced it is kept for diagnostics but not
// serialized.
type Plan struct {
	ID         uuid.UUID `json:"id"`
	Goal       string    `json:"goal"`
	Template   string    `json:"template"`
	AllowLoops bool      `json:"allow_loops"`
	CreatedAt  time.Time `json:"created_at"`

	Prompt string `json:"-"`
}

func NewPlan(goal, planTemplate string, allowLoops bool) *Plan {
	return &Plan{
		ID:         uuid.New(),
		Goal:       goal,
		Template:   planTemplate,
		AllowLoops: allowLoops,
		CreatedAt:  time.Now().UTC(),
	}
}

// ParsePlan reads a plan serialized with MarshalIndent or json.Marshal.
func ParsePlan(b []byte) (*Plan, error) {
	p := &Plan{}
	if err := json.Unmarshal(b, p); err != nil {
		return nil, errors.Wrap(err, "could not parse plan")
	}
	if strings.TrimSpace(p.Template) == "" {
		return nil, errors.New("plan has no template")
	}
	return p, nil
}

func (p *Plan) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

func (p *Plan) String() string {
	return p.Template
}

// Invoke runs the plan against the kernel. args are available to the
// template as `.name`. ctx is handed to every function call.
func (p *Plan) Invoke(ctx context.Context, k *kernel.Kernel, args kernel.Arguments) (string, error) {
	tmpl, err := p.parse(newFuncMap(ctx, k, nil))
	if err != nil {
		return "", err
	}

	args = args.Clone()
	if _, ok := args["goal"]; !ok {
		args["goal"] = p.Goal
	}
	data := kernel.TemplateData(tmpl, args)

	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, data); err != nil {
		return "", errors.Wrap(err, "plan execution failed")
	}
	return strings.TrimSpace(buf.String()), nil
}

func (p *Plan) parse(funcs template.FuncMap) (*template.Template, error) {
	tmpl, err := template.New("plan").Funcs(funcs).Parse(p.Template)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse plan template")
	}
	if !p.AllowLoops && usesLoops(tmpl) {
		return nil, ErrLoopsNotAllowed
	}
	return tmpl, nil
}

// ReferencedFunctions lists the kernel functions the plan calls, sorted.
func (p *Plan) ReferencedFunctions(k *kernel.Kernel) ([]string, error) {
	funcs := newFuncMap(context.Background(), k, nil)
	tmpl, err := template.New("plan").Funcs(funcs).Parse(p.Template)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse plan template")
	}

	kernelFuncs := map[string]bool{}
	for _, md := range k.Plugins().FunctionsMetadata() {
		kernelFuncs[md.FullyQualifiedName()] = true
	}

	seen := map[string]bool{}
	kernel.WalkTemplate(tmpl, func(n parse.Node) {
		if id, ok := n.(*parse.IdentifierNode); ok && kernelFuncs[id.Ident] {
			seen[id.Ident] = true
		}
	})
	ret := make([]string, 0, len(seen))
	for name := range seen {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret, nil
}

// helperNames are the plan helpers advertised to the model on top of the
// kernel functions.
var helperNames = []string{
	"json", "toPrettyJson", "join", "list", "dict", "first", "last", "len", "index",
	"printf", "upper", "lower", "trim", "contains", "replace", "split", "eq", "ne",
	"add", "sub", "default", "empty",
}

// newFuncMap exposes kernel functions as Plugin_Function. A non-nil allowed
// set restricts which ones are visible.
func newFuncMap(ctx context.Context, k *kernel.Kernel, allowed map[string]bool) template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["json"] = func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	for _, p := range k.Plugins().List() {
		for _, f := range p.Functions() {
			name := f.Metadata().FullyQualifiedName()
			if allowed != nil && !allowed[name] {
				continue
			}
			funcs[name] = func(params ...interface{}) (interface{}, error) {
				args, err := argumentsFromParams(f.Metadata(), params)
				if err != nil {
					return nil, err
				}
				res, err := k.Invoke(ctx, f, args)
				if err != nil {
					return nil, err
				}
				return res.Value, nil
			}
		}
	}
	return funcs
}

// argumentsFromParams accepts a single positional value (bound to the first
// parameter, usually `input`), a single map, or key/value pairs.
func argumentsFromParams(md kernel.FunctionMetadata, params []interface{}) (kernel.Arguments, error) {
	args := kernel.Arguments{}
	switch {
	case len(params) == 0:
		return args, nil
	case len(params) == 1:
		if m, ok := params[0].(map[string]interface{}); ok {
			for k, v := range m {
				args[k] = v
			}
			return args, nil
		}
		name := "input"
		if len(md.Parameters) > 0 && !hasParameter(md, "input") {
			name = md.Parameters[0].Name
		}
		args[name] = params[0]
		return args, nil
	case len(params)%2 != 0:
		return nil, errors.Errorf("%s: expected key/value pairs, got %d arguments", md.FullyQualifiedName(), len(params))
	}

	for i := 0; i < len(params); i += 2 {
		key, ok := params[i].(string)
		if !ok {
			return nil, errors.Errorf("%s: argument name at position %d is not a string", md.FullyQualifiedName(), i)
		}
		args[key] = params[i+1]
	}
	return args, nil
}

func hasParameter(md kernel.FunctionMetadata, name string) bool {
	for _, p := range md.Parameters {
		if p.Name == name {
			return true
		}
	}
	return false
}

func usesLoops(tmpl *template.Template) bool {
	found := false
	kernel.WalkTemplate(tmpl, func(n parse.Node) {
		if _, ok := n.(*parse.RangeNode); ok {
			found = true
		}
	})
	return found
}
