package kernel

import (
	"context"

	"github.com/huandu/go-clone"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExecutionSettings are the per-request model parameters. Nil pointers mean
// "use the service default".
type ExecutionSettings struct {
	ModelID       string   `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty" yaml:"stop_sequences,omitempty"`
}

func (s *ExecutionSettings) Clone() *ExecutionSettings {
	if s == nil {
		return nil
	}
	return clone.Clone(s).(*ExecutionSettings)
}

// ChatMessageContent is a single model reply.
type ChatMessageContent struct {
	Role     string                 `json:"role"`
	Content  string                 `json:"content"`
	ModelID  string                 `json:"model_id,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func (c *ChatMessageContent) String() string {
	if c == nil {
		return ""
	}
	return c.Content
}

// ChatCompletionService is the model backend the kernel sends prompts to.
type ChatCompletionService interface {
	GetChatMessageContent(
		ctx context.Context,
		history []ChatMessage,
		settings *ExecutionSettings,
	) (*ChatMessageContent, error)
}
