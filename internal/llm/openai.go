package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient completes prompts against an OpenAI-compatible chat endpoint.
// Both arbiter and critic map their single prompt onto one user message.
type OpenAIClient struct {
	model     string
	maxTokens int
	client    *openai.Client
}

// NewOpenAIClient creates a chat-style client. baseURL may point at any
// OpenAI-compatible server; leave it empty for api.openai.com.
func NewOpenAIClient(apiKey, model, baseURL string, maxTokens int) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		model:     model,
		maxTokens: maxTokens,
		client:    openai.NewClientWithConfig(cfg),
	}
}

func (c *OpenAIClient) Name() string {
	return "openai"
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}
	return resp.Choices[0].Message.Content, nil
}
