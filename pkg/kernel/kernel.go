package kernel

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Kernel owns the registered plugins and the chat completion service. It is
// created once at startup and handed to whoever needs to register plugins or
// create and run plans.
type Kernel struct {
	plugins   *PluginCollection
	chat      ChatCompletionService
	logger    zerolog.Logger
	publisher message.Publisher
	topic     string
}

type Option func(*Kernel)

func WithChatCompletion(chat ChatCompletionService) Option {
	return func(k *Kernel) {
		k.chat = chat
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(k *Kernel) {
		k.logger = logger
	}
}

// WithPublisher publishes InvocationEvents to the given topic.
func WithPublisher(publisher message.Publisher, topic string) Option {
	return func(k *Kernel) {
		k.publisher = publisher
		if topic == "" {
			topic = DefaultEventTopic
		}
		k.topic = topic
	}
}

func New(options ...Option) *Kernel {
	k := &Kernel{
		plugins: NewPluginCollection(),
		logger:  log.Logger.With().Str("component", "kernel").Logger(),
		topic:   DefaultEventTopic,
	}
	for _, o := range options {
		o(k)
	}
	return k
}

func (k *Kernel) Plugins() *PluginCollection {
	return k.plugins
}

func (k *Kernel) ChatCompletion() (ChatCompletionService, error) {
	if k.chat == nil {
		return nil, ErrNoChatCompletionService
	}
	return k.chat, nil
}

func (k *Kernel) AddPlugin(p *Plugin) error {
	if err := k.plugins.Add(p); err != nil {
		return err
	}
	k.logger.Debug().
		Str("plugin", p.Name).
		Int("functions", len(p.functions)).
		Msg("registered plugin")
	return nil
}

// ImportPluginFromPromptDirectory loads a prompt plugin directory and
// registers it under the directory's base name.
func (k *Kernel) ImportPluginFromPromptDirectory(ctx context.Context, dir string) (*Plugin, error) {
	p, err := LoadPromptPlugin(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := k.AddPlugin(p); err != nil {
		return nil, err
	}
	return p, nil
}

// FunctionProvider is implemented by native plugin objects.
type FunctionProvider interface {
	KernelFunctions() ([]Function, error)
}

// PluginNamer lets a FunctionProvider pick its default plugin name.
type PluginNamer interface {
	PluginName() string
}

// PluginDescriber lets a FunctionProvider describe itself.
type PluginDescriber interface {
	PluginDescription() string
}

// ImportPluginFromObject registers the functions of a native plugin object.
// An empty name falls back to PluginName() and then to the Go type name.
func (k *Kernel) ImportPluginFromObject(provider FunctionProvider, name string) (*Plugin, error) {
	if provider == nil {
		return nil, errors.New("cannot import nil plugin object")
	}
	if name == "" {
		name = defaultPluginName(provider)
	}
	description := ""
	if d, ok := provider.(PluginDescriber); ok {
		description = d.PluginDescription()
	}

	fns, err := provider.KernelFunctions()
	if err != nil {
		return nil, errors.Wrapf(err, "could not build functions for plugin %s", name)
	}
	p, err := NewPlugin(name, description, fns...)
	if err != nil {
		return nil, err
	}
	if err := k.AddPlugin(p); err != nil {
		return nil, err
	}
	return p, nil
}

func defaultPluginName(provider FunctionProvider) string {
	if n, ok := provider.(PluginNamer); ok && n.PluginName() != "" {
		return n.PluginName()
	}
	t := reflect.TypeOf(provider)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// InvokeFunction looks up and calls a registered function.
func (k *Kernel) InvokeFunction(ctx context.Context, pluginName, functionName string, args Arguments) (*FunctionResult, error) {
	f, err := k.plugins.Function(pluginName, functionName)
	if err != nil {
		return nil, err
	}
	return k.Invoke(ctx, f, args)
}

// Invoke calls f, logging and publishing invocation events around it.
func (k *Kernel) Invoke(ctx context.Context, f Function, args Arguments) (*FunctionResult, error) {
	md := f.Metadata()
	id := uuid.New()
	start := time.Now()

	k.logger.Debug().
		Str("plugin", md.PluginName).
		Str("function", md.Name).
		Str("invocation_id", id.String()).
		Msg("invoking function")
	k.publish(&InvocationEvent{
		Type:         EventTypeFunctionInvoking,
		InvocationID: id,
		PluginName:   md.PluginName,
		FunctionName: md.Name,
		Arguments:    args,
	})

	result, err := f.Invoke(ctx, k, args)
	duration := time.Since(start)
	if err != nil {
		k.logger.Debug().
			Err(err).
			Str("plugin", md.PluginName).
			Str("function", md.Name).
			Dur("duration", duration).
			Msg("function failed")
		k.publish(&InvocationEvent{
			Type:         EventTypeFunctionFailed,
			InvocationID: id,
			PluginName:   md.PluginName,
			FunctionName: md.Name,
			Error:        err.Error(),
			Duration:     duration,
		})
		return nil, err
	}

	k.logger.Debug().
		Str("plugin", md.PluginName).
		Str("function", md.Name).
		Dur("duration", duration).
		Msg("function invoked")
	k.publish(&InvocationEvent{
		Type:         EventTypeFunctionInvoked,
		InvocationID: id,
		PluginName:   md.PluginName,
		FunctionName: md.Name,
		Result:       result.String(),
		Duration:     duration,
	})
	return result, nil
}

// InvokePrompt renders an ad-hoc prompt template and sends it to the chat
// completion service.
func (k *Kernel) InvokePrompt(ctx context.Context, promptTemplate string, args Arguments) (*FunctionResult, error) {
	f, err := NewPromptFunction("InlinePrompt", promptTemplate, PromptTemplateConfig{})
	if err != nil {
		return nil, err
	}
	return k.Invoke(ctx, f, args)
}

func (k *Kernel) publish(e *InvocationEvent) {
	if k.publisher == nil {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		k.logger.Warn().Err(err).Msg("failed to marshal invocation event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), b)
	if err := k.publisher.Publish(k.topic, msg); err != nil {
		k.logger.Warn().Err(err).Msg("failed to publish invocation event")
	}
}
