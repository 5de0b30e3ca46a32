package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/valpere/subtran/internal/postprocess"
)

// OpenAIService translates through an OpenAI-compatible chat completion
// endpoint using the official client.
type OpenAIService struct {
	cfg    ServiceConfig
	client *openai.Client
}

// NewOpenAIService creates an OpenAI adapter from a resolved options record.
// BaseURL may point at any OpenAI-compatible server.
func NewOpenAIService(cfg ServiceConfig) *OpenAIService {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIService{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (s *OpenAIService) Name() string {
	return "openai"
}

func (s *OpenAIService) Translate(ctx context.Context, req TranslateRequest) *ServiceResult {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if s.cfg.APIKey == "" {
		return failureInto(result, FailureAuthError, "OpenAI API key required")
	}

	maxTokens := s.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
	})
	if err != nil {
		return failureInto(result, classifyOpenAIErr(err), fmt.Sprintf("request failed: %v", err))
	}
	if len(resp.Choices) == 0 {
		return failureInto(result, FailureInvalidResponse, "empty response from API")
	}

	text := postprocess.Clean(resp.Choices[0].Message.Content)
	if text == "" {
		return failureInto(result, FailureInvalidResponse, "empty translation returned")
	}

	result.TranslatedText = text
	return result
}

func classifyOpenAIErr(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode)
	}
	if isTimeout(err) {
		return FailureTimeout
	}
	return FailureInvalidResponse
}
