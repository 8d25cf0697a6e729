package planner

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InsufficientFunctionsMarker is what the model is told to answer when the
// goal cannot be reached with the registered functions.
const InsufficientFunctionsMarker = "Additional helpers or information may be required"

//go:embed prompts/create_plan.tmpl
var createPlanPromptTemplate string

var createPlanPrompt = template.Must(
	template.New("create_plan").Funcs(sprig.TxtFuncMap()).Parse(createPlanPromptTemplate),
)

type Options struct {
	AllowLoops bool
	// ExcludedPlugins are never offered to the model.
	ExcludedPlugins []string
	// ExcludedFunctions are glob patterns matched against Plugin_Function.
	ExcludedFunctions []string
	ExecutionSettings *kernel.ExecutionSettings
	// MaxPromptTokens rejects create-plan prompts above this size. 0 disables
	// the check.
	MaxPromptTokens   int
	AdditionalContext string
}

// Planner asks the model for a text/template plan over the kernel functions.
type Planner struct {
	options Options
	logger  zerolog.Logger
}

func New(options Options) *Planner {
	return &Planner{
		options: options,
		logger:  log.Logger.With().Str("component", "planner").Logger(),
	}
}

func (p *Planner) WithLogger(logger zerolog.Logger) *Planner {
	p.logger = logger
	return p
}

func (p *Planner) Options() Options {
	return p.options
}

type createPlanPromptData struct {
	Goal                        string
	Functions                   []kernel.FunctionMetadata
	Helpers                     []string
	AllowLoops                  bool
	AdditionalContext           string
	InsufficientFunctionsMarker string
}

// CreatePlan builds a plan for goal. Failures to get a usable plan out of the
// model are returned as *PlanCreationError; errors talking to the model are
// returned as they are.
func (p *Planner) CreatePlan(ctx context.Context, k *kernel.Kernel, goal string) (*Plan, error) {
	chat, err := k.ChatCompletion()
	if err != nil {
		return nil, err
	}

	functions, err := p.availableFunctions(k)
	if err != nil {
		return nil, err
	}

	prompt, err := p.renderPrompt(goal, functions)
	if err != nil {
		return nil, err
	}

	if p.options.MaxPromptTokens > 0 {
		n, err := CountTokens(p.modelID(chat), prompt)
		if err != nil {
			return nil, err
		}
		p.logger.Debug().Int("prompt_tokens", n).Msg("counted create plan prompt tokens")
		if n > p.options.MaxPromptTokens {
			return nil, &PlanCreationError{
				Message: "could not create plan",
				Err:     errors.Wrapf(ErrPromptTooLong, "%d > %d tokens", n, p.options.MaxPromptTokens),
				Prompt:  prompt,
			}
		}
	}

	p.logger.Debug().
		Str("goal", goal).
		Int("functions", len(functions)).
		Bool("allow_loops", p.options.AllowLoops).
		Msg("creating plan")

	reply, err := chat.GetChatMessageContent(ctx, []kernel.ChatMessage{
		{Role: kernel.RoleUser, Content: prompt},
	}, p.options.ExecutionSettings.Clone())
	if err != nil {
		return nil, err
	}

	if strings.Contains(strings.ToLower(reply.Content), strings.ToLower(InsufficientFunctionsMarker)) {
		return nil, &PlanCreationError{
			Message:      "could not create plan",
			Err:          ErrInsufficientFunctions,
			Prompt:       prompt,
			ModelResults: reply,
		}
	}

	planTemplate, ok := ExtractPlanTemplate(reply.Content)
	if !ok || planTemplate == "" {
		return nil, &PlanCreationError{
			Message:      "could not create plan",
			Err:          ErrNoPlanFound,
			Prompt:       prompt,
			ModelResults: reply,
		}
	}

	plan := NewPlan(goal, planTemplate, p.options.AllowLoops)
	plan.Prompt = prompt
	allowed := map[string]bool{}
	for _, md := range functions {
		allowed[md.FullyQualifiedName()] = true
	}
	if _, err := plan.parse(newFuncMap(ctx, k, allowed)); err != nil {
		return nil, &PlanCreationError{
			Message:      "could not create plan",
			Err:          err,
			Prompt:       prompt,
			ModelResults: reply,
		}
	}

	p.logger.Debug().
		Str("plan_id", plan.ID.String()).
		Msg("created plan")
	return plan, nil
}

func (p *Planner) renderPrompt(goal string, functions []kernel.FunctionMetadata) (string, error) {
	buf := &bytes.Buffer{}
	err := createPlanPrompt.Execute(buf, createPlanPromptData{
		Goal:                        goal,
		Functions:                   functions,
		Helpers:                     helperNames,
		AllowLoops:                  p.options.AllowLoops,
		AdditionalContext:           p.options.AdditionalContext,
		InsufficientFunctionsMarker: InsufficientFunctionsMarker,
	})
	if err != nil {
		return "", errors.Wrap(err, "could not render create plan prompt")
	}
	return buf.String(), nil
}

func (p *Planner) availableFunctions(k *kernel.Kernel) ([]kernel.FunctionMetadata, error) {
	excludedPlugins := map[string]bool{}
	for _, name := range p.options.ExcludedPlugins {
		excludedPlugins[name] = true
	}

	var ret []kernel.FunctionMetadata
	for _, md := range k.Plugins().FunctionsMetadata() {
		if excludedPlugins[md.PluginName] {
			continue
		}
		excluded := false
		for _, pattern := range p.options.ExcludedFunctions {
			matching, err := glob.Match(pattern, md.FullyQualifiedName())
			if err != nil {
				return nil, errors.Wrapf(err, "invalid excluded function pattern %q", pattern)
			}
			if matching {
				excluded = true
				break
			}
		}
		if !excluded {
			ret = append(ret, md)
		}
	}
	return ret, nil
}

type modelNamer interface {
	Model() string
}

func (p *Planner) modelID(chat kernel.ChatCompletionService) string {
	if p.options.ExecutionSettings != nil && p.options.ExecutionSettings.ModelID != "" {
		return p.options.ExecutionSettings.ModelID
	}
	if m, ok := chat.(modelNamer); ok {
		return m.Model()
	}
	return ""
}
