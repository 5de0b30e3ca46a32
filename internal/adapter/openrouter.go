package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/subtran/internal/postprocess"
)

// OpenRouterService translates through the OpenRouter chat completions API.
type OpenRouterService struct {
	cfg    ServiceConfig
	client *http.Client
}

// NewOpenRouterService creates an OpenRouter adapter from a resolved options record.
func NewOpenRouterService(cfg ServiceConfig) *OpenRouterService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "meta-llama/llama-3.1-8b-instruct:free"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenRouterService{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

func (s *OpenRouterService) Translate(ctx context.Context, req TranslateRequest) *ServiceResult {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if s.cfg.APIKey == "" {
		return failureInto(result, FailureAuthError, "OpenRouter API key required")
	}

	body, err := json.Marshal(map[string]interface{}{
		"model": s.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": buildSystemPrompt(req)},
			{"role": "user", "content": req.Text},
		},
		"max_tokens": 4096,
	})
	if err != nil {
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("failed to marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", s.cfg.BaseURL), bytes.NewBuffer(body))
	if err != nil {
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("failed to create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.cfg.APIKey))

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return failureInto(result, FailureTimeout, fmt.Sprintf("request timed out: %v", err))
		}
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failureInto(result, classifyStatus(resp.StatusCode), fmt.Sprintf("API returned status %d", resp.StatusCode))
	}

	var orResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orResp); err != nil {
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("failed to decode response: %v", err))
	}
	if len(orResp.Choices) == 0 {
		return failureInto(result, FailureInvalidResponse, "empty response from API")
	}

	text := postprocess.Clean(orResp.Choices[0].Message.Content)
	if text == "" {
		return failureInto(result, FailureInvalidResponse, "empty translation returned")
	}

	result.TranslatedText = text
	return result
}
