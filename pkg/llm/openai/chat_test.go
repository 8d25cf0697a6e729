package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeCompletionRequest(t *testing.T) {
	maxTokens := 128
	temp := 0.25
	req := MakeCompletionRequest("default-model", []kernel.ChatMessage{
		{Role: kernel.RoleSystem, Content: "sys"},
		{Role: "User", Content: "hi"},
		{Role: kernel.RoleAssistant, Content: "hello"},
	}, &kernel.ExecutionSettings{
		ModelID:       "override",
		MaxTokens:     &maxTokens,
		Temperature:   &temp,
		StopSequences: []string{"###"},
	})

	assert.Equal(t, "override", req.Model)
	assert.Equal(t, 128, req.MaxTokens)
	assert.InDelta(t, 0.25, req.Temperature, 0.0001)
	assert.Equal(t, []string{"###"}, req.Stop)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, go_openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, go_openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, go_openai.ChatMessageRoleAssistant, req.Messages[2].Role)

	req = MakeCompletionRequest("default-model", nil, nil)
	assert.Equal(t, "default-model", req.Model)
}

func TestNewChatCompletionRequiresAPIKey(t *testing.T) {
	_, err := NewChatCompletion(Settings{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGetChatMessageContent(t *testing.T) {
	var got go_openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(go_openai.ChatCompletionResponse{
			Model: "gpt-test",
			Choices: []go_openai.ChatCompletionChoice{{
				Message: go_openai.ChatCompletionMessage{
					Role:    go_openai.ChatMessageRoleAssistant,
					Content: "a plan",
				},
				FinishReason: go_openai.FinishReasonStop,
			}},
			Usage: go_openai.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
		})
	}))
	defer srv.Close()

	c, err := NewChatCompletion(Settings{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-test"})
	require.NoError(t, err)

	reply, err := c.GetChatMessageContent(context.Background(), []kernel.ChatMessage{
		{Role: kernel.RoleUser, Content: "make a plan"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a plan", reply.Content)
	assert.Equal(t, "gpt-test", reply.ModelID)
	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "make a plan", got.Messages[0].Content)
}
