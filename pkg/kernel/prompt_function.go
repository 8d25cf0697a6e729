package kernel

import (
	"context"

	"github.com/pkg/errors"
)

type InputVariable struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	IsRequired  bool   `json:"is_required,omitempty" yaml:"is_required,omitempty"`
}

// PromptTemplateConfig is the per-function config file of a prompt plugin
// directory (config.json or config.yaml).
type PromptTemplateConfig struct {
	Schema            int                           `json:"schema,omitempty" yaml:"schema,omitempty"`
	Name              string                        `json:"name,omitempty" yaml:"name,omitempty"`
	Description       string                        `json:"description,omitempty" yaml:"description,omitempty"`
	InputVariables    []InputVariable               `json:"input_variables,omitempty" yaml:"input_variables,omitempty"`
	ExecutionSettings map[string]*ExecutionSettings `json:"execution_settings,omitempty" yaml:"execution_settings,omitempty"`
}

const DefaultExecutionSettingsKey = "default"

func (c *PromptTemplateConfig) DefaultExecutionSettings() *ExecutionSettings {
	if c == nil || c.ExecutionSettings == nil {
		return nil
	}
	return c.ExecutionSettings[DefaultExecutionSettingsKey]
}

// PromptFunction renders its template with the call arguments and sends the
// result to the kernel's chat completion service as a single user message.
type PromptFunction struct {
	pluginName string
	name       string
	config     PromptTemplateConfig
	template   *PromptTemplate
}

var _ Function = (*PromptFunction)(nil)

func NewPromptFunction(name string, templateSource string, config PromptTemplateConfig) (*PromptFunction, error) {
	if name == "" {
		name = config.Name
	}
	if name == "" {
		return nil, errors.New("prompt function needs a name")
	}
	tmpl, err := NewPromptTemplate(name, templateSource)
	if err != nil {
		return nil, err
	}
	config.Name = name
	return &PromptFunction{
		name:     name,
		config:   config,
		template: tmpl,
	}, nil
}

func (f *PromptFunction) setPluginName(name string) {
	f.pluginName = name
}

func (f *PromptFunction) Config() PromptTemplateConfig {
	return f.config
}

func (f *PromptFunction) Template() *PromptTemplate {
	return f.template
}

func (f *PromptFunction) Metadata() FunctionMetadata {
	md := FunctionMetadata{
		PluginName:  f.pluginName,
		Name:        f.name,
		Description: f.config.Description,
	}
	for _, v := range f.config.InputVariables {
		md.Parameters = append(md.Parameters, ParameterMetadata{
			Name:        v.Name,
			Description: v.Description,
			Type:        "string",
			Default:     v.Default,
			Required:    v.IsRequired,
		})
	}
	return md
}

// RenderPrompt applies input variable defaults and renders the template.
func (f *PromptFunction) RenderPrompt(args Arguments) (string, error) {
	vars := args.Clone()
	for _, v := range f.config.InputVariables {
		if s, ok := vars.String(v.Name); ok && s != "" {
			continue
		}
		if v.Default != "" {
			vars[v.Name] = v.Default
			continue
		}
		if v.IsRequired {
			return "", &MissingArgumentError{Function: f.name, Name: v.Name}
		}
		vars[v.Name] = ""
	}
	return f.template.Render(vars)
}

func (f *PromptFunction) Invoke(ctx context.Context, k *Kernel, args Arguments) (*FunctionResult, error) {
	prompt, err := f.RenderPrompt(args)
	if err != nil {
		return nil, err
	}

	chat, err := k.ChatCompletion()
	if err != nil {
		return nil, err
	}

	settings := f.config.DefaultExecutionSettings().Clone()
	reply, err := chat.GetChatMessageContent(ctx, []ChatMessage{
		{Role: RoleUser, Content: prompt},
	}, settings)
	if err != nil {
		return nil, errors.Wrapf(err, "prompt function %s failed", f.name)
	}

	return &FunctionResult{
		PluginName:   f.pluginName,
		FunctionName: f.name,
		Value:        reply.Content,
		Metadata: map[string]interface{}{
			"rendered_prompt": prompt,
			"model_id":        reply.ModelID,
			"usage":           reply.Metadata["usage"],
		},
	}, nil
}
