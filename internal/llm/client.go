// Package llm wraps the text-generation service used to answer nurses. The
// production client speaks the OpenAI chat-completion protocol, which also
// covers Ollama's compatible endpoint for local models.
package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Client generates text for a rendered prompt. Calls may take seconds and
// may fail; callers decide how failures surface.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient calls an OpenAI-compatible chat-completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs a client for the given endpoint and model.
// baseURL may be empty for the hosted OpenAI API, or point at an
// OpenAI-compatible server such as Ollama (e.g. http://localhost:11434/v1).
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Generate sends the prompt as a single user message and returns the
// model's reply.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("llm client not initialized")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
