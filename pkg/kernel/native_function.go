package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// NativeFunction is a kernel function backed by a Go func. Supported
// signatures are
//
//	func() R
//	func(context.Context) R
//	func(Input) R
//	func(context.Context, Input) R
//
// where R is either a single value or (value, error). Input must be a struct;
// its JSON schema describes the function parameters.
type NativeFunction struct {
	pluginName  string
	name        string
	description string
	schema      *jsonschema.Schema
	fn          reflect.Value
	fnType      reflect.Type
	withContext bool
	inputType   reflect.Type
}

var _ Function = (*NativeFunction)(nil)

func NewNativeFunction(name, description string, fn interface{}) (*NativeFunction, error) {
	if name == "" {
		return nil, errors.New("native function name cannot be empty")
	}
	funcType := reflect.TypeOf(fn)
	if funcType == nil || funcType.Kind() != reflect.Func {
		return nil, errors.Errorf("native function %s: provided value is not a function", name)
	}

	if funcType.NumOut() == 0 || funcType.NumOut() > 2 {
		return nil, errors.Errorf("native function %s: must return (result) or (result, error)", name)
	}
	if funcType.NumOut() == 2 && !funcType.Out(1).Implements(errorType) {
		return nil, errors.Errorf("native function %s: second return value must be an error", name)
	}

	ret := &NativeFunction{
		name:        name,
		description: description,
		fn:          reflect.ValueOf(fn),
		fnType:      funcType,
	}

	switch funcType.NumIn() {
	case 0:
	case 1:
		if funcType.In(0) == contextType {
			ret.withContext = true
		} else {
			ret.inputType = funcType.In(0)
		}
	case 2:
		if funcType.In(0) != contextType {
			return nil, errors.Errorf("native function %s: two-arg function must be (context.Context, Input)", name)
		}
		ret.withContext = true
		ret.inputType = funcType.In(1)
	default:
		return nil, errors.Errorf("native function %s: takes at most (context.Context, Input)", name)
	}

	if ret.inputType != nil && ret.inputType.Kind() != reflect.Struct {
		return nil, errors.Errorf("native function %s: input must be a struct, got %s", name, ret.inputType)
	}

	ret.schema = generateSchema(ret.inputType)
	return ret, nil
}

// MustNativeFunction panics on invalid signatures. Meant for plugin
// constructors whose signatures are fixed at compile time.
func MustNativeFunction(name, description string, fn interface{}) *NativeFunction {
	f, err := NewNativeFunction(name, description, fn)
	if err != nil {
		panic(err)
	}
	return f
}

func generateSchema(inputType reflect.Type) *jsonschema.Schema {
	if inputType == nil {
		return &jsonschema.Schema{Type: "object"}
	}

	reflector := jsonschema.Reflector{
		// Expand definitions inline instead of using $refs
		DoNotReference: true,
	}
	schema := reflector.Reflect(reflect.New(inputType).Elem().Interface())
	if schema.Type == "" && schema.Ref == "" {
		schema.Type = "object"
	}
	return schema
}

func (f *NativeFunction) setPluginName(name string) {
	f.pluginName = name
}

func (f *NativeFunction) Schema() *jsonschema.Schema {
	return f.schema
}

func (f *NativeFunction) Metadata() FunctionMetadata {
	md := FunctionMetadata{
		PluginName:  f.pluginName,
		Name:        f.name,
		Description: f.description,
	}
	if f.schema == nil || f.schema.Properties == nil {
		return md
	}

	required := map[string]bool{}
	for _, r := range f.schema.Required {
		required[r] = true
	}
	for pair := f.schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		p := ParameterMetadata{
			Name:        pair.Key,
			Description: pair.Value.Description,
			Type:        pair.Value.Type,
			Required:    required[pair.Key],
		}
		if pair.Value.Default != nil {
			p.Default = fmt.Sprint(pair.Value.Default)
		}
		md.Parameters = append(md.Parameters, p)
	}
	return md
}

func (f *NativeFunction) Invoke(ctx context.Context, _ *Kernel, args Arguments) (*FunctionResult, error) {
	in := []reflect.Value{}
	if f.withContext {
		in = append(in, reflect.ValueOf(ctx))
	}

	if f.inputType != nil {
		b, err := json.Marshal(f.coerceArguments(args))
		if err != nil {
			return nil, errors.Wrapf(err, "could not marshal arguments for %s", f.name)
		}
		input := reflect.New(f.inputType)
		if err := json.Unmarshal(b, input.Interface()); err != nil {
			log.Debug().
				Err(err).
				Str("function", f.name).
				Str("args", string(b)).
				Msg("failed to decode native function arguments")
			return nil, errors.Wrapf(err, "could not decode arguments for %s", f.name)
		}
		in = append(in, input.Elem())
	}

	results := f.fn.Call(in)
	value, err := extractResults(results)
	if err != nil {
		return nil, err
	}

	return &FunctionResult{
		PluginName:   f.pluginName,
		FunctionName: f.name,
		Value:        value,
	}, nil
}

// coerceArguments converts string arguments into the scalar types the input
// schema declares. Plans and prompt templates only ever produce strings.
func (f *NativeFunction) coerceArguments(args Arguments) Arguments {
	ret := Arguments{}
	types := map[string]string{}
	if f.schema != nil && f.schema.Properties != nil {
		for pair := f.schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			types[pair.Key] = pair.Value.Type
		}
	}

	for k, v := range args {
		s, ok := v.(string)
		if !ok {
			ret[k] = v
			continue
		}
		s = strings.TrimSpace(s)
		switch types[k] {
		case "integer":
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				ret[k] = i
				continue
			}
		case "number":
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				ret[k] = n
				continue
			}
		case "boolean":
			if b, err := strconv.ParseBool(s); err == nil {
				ret[k] = b
				continue
			}
		}
		ret[k] = v
	}
	return ret
}

func extractResults(results []reflect.Value) (interface{}, error) {
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0].Interface(), nil
}
