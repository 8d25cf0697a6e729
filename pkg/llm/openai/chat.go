package openai

import (
	"context"
	"strings"

	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

type Settings struct {
	APIKey       string `mapstructure:"api-key" yaml:"api-key"`
	BaseURL      string `mapstructure:"base-url" yaml:"base-url"`
	Organization string `mapstructure:"organization" yaml:"organization"`
	Model        string `mapstructure:"model" yaml:"model"`
}

var ErrMissingAPIKey = errors.New("missing openai api key")

// ChatCompletion is a kernel.ChatCompletionService backed by the OpenAI chat
// completions API.
type ChatCompletion struct {
	client *go_openai.Client
	model  string
	logger zerolog.Logger
}

var _ kernel.ChatCompletionService = (*ChatCompletion)(nil)

func NewChatCompletion(settings Settings) (*ChatCompletion, error) {
	if settings.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	config := go_openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		config.BaseURL = settings.BaseURL
	}
	if settings.Organization != "" {
		config.OrgID = settings.Organization
	}
	model := settings.Model
	if model == "" {
		model = DefaultModel
	}
	return &ChatCompletion{
		client: go_openai.NewClientWithConfig(config),
		model:  model,
		logger: log.Logger.With().Str("component", "openai").Logger(),
	}, nil
}

func (c *ChatCompletion) Model() string {
	return c.model
}

func (c *ChatCompletion) GetChatMessageContent(
	ctx context.Context,
	history []kernel.ChatMessage,
	settings *kernel.ExecutionSettings,
) (*kernel.ChatMessageContent, error) {
	req := MakeCompletionRequest(c.model, history, settings)

	c.logger.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Msg("sending chat completion request")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "chat completion request failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	c.logger.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("chat completion finished")

	msg := resp.Choices[0].Message
	return &kernel.ChatMessageContent{
		Role:    msg.Role,
		Content: msg.Content,
		ModelID: resp.Model,
		Metadata: map[string]interface{}{
			"usage": map[string]int{
				"prompt_tokens":     resp.Usage.PromptTokens,
				"completion_tokens": resp.Usage.CompletionTokens,
				"total_tokens":      resp.Usage.TotalTokens,
			},
			"finish_reason": string(resp.Choices[0].FinishReason),
		},
	}, nil
}

// MakeCompletionRequest maps kernel messages and settings onto a
// go-openai request.
func MakeCompletionRequest(
	defaultModel string,
	history []kernel.ChatMessage,
	settings *kernel.ExecutionSettings,
) go_openai.ChatCompletionRequest {
	req := go_openai.ChatCompletionRequest{
		Model: defaultModel,
	}
	for _, m := range history {
		role := strings.ToLower(m.Role)
		switch role {
		case kernel.RoleSystem:
			role = go_openai.ChatMessageRoleSystem
		case kernel.RoleAssistant:
			role = go_openai.ChatMessageRoleAssistant
		default:
			role = go_openai.ChatMessageRoleUser
		}
		req.Messages = append(req.Messages, go_openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	if settings == nil {
		return req
	}
	if settings.ModelID != "" {
		req.Model = settings.ModelID
	}
	if settings.MaxTokens != nil {
		req.MaxTokens = *settings.MaxTokens
	}
	if settings.Temperature != nil {
		req.Temperature = float32(*settings.Temperature)
	}
	if settings.TopP != nil {
		req.TopP = float32(*settings.TopP)
	}
	if len(settings.StopSequences) > 0 {
		req.Stop = settings.StopSequences
	}
	return req
}
