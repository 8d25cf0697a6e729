package kernel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huandu/go-clone"
)

// Arguments holds the named inputs passed to a kernel function.
type Arguments map[string]interface{}

// Clone returns a deep copy, so that callers can add defaults without
// touching the caller's map.
func (a Arguments) Clone() Arguments {
	if a == nil {
		return Arguments{}
	}
	return clone.Clone(a).(Arguments)
}

// String returns the argument as a string, formatting non-string values.
func (a Arguments) String(name string) (string, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

type ParameterMetadata struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
}

type FunctionMetadata struct {
	PluginName  string              `json:"plugin_name" yaml:"plugin_name"`
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  []ParameterMetadata `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// FullyQualifiedName is the plugin-qualified function name, used by the
// planner as a template function identifier.
func (m FunctionMetadata) FullyQualifiedName() string {
	if m.PluginName == "" {
		return m.Name
	}
	return m.PluginName + "_" + m.Name
}

// Function is a callable unit registered with the kernel, either backed by
// a prompt template or by Go code.
type Function interface {
	Metadata() FunctionMetadata
	Invoke(ctx context.Context, k *Kernel, args Arguments) (*FunctionResult, error)
}

// pluginScoped is implemented by functions that get told which plugin they
// belong to when the plugin is assembled.
type pluginScoped interface {
	setPluginName(name string)
}

type FunctionResult struct {
	PluginName   string                 `json:"plugin_name"`
	FunctionName string                 `json:"function_name"`
	Value        interface{}            `json:"value"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// String renders the value the way it is printed on the console: strings
// verbatim, Stringers through String, everything else as JSON.
func (r *FunctionResult) String() string {
	if r == nil || r.Value == nil {
		return ""
	}
	switch v := r.Value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	}
	b, err := json.Marshal(r.Value)
	if err != nil {
		return fmt.Sprint(r.Value)
	}
	return string(b)
}
