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

// OllamaService translates through a self-hosted Ollama model using the
// generate API.
type OllamaService struct {
	cfg    ServiceConfig
	client *http.Client
}

// NewOllamaService creates an Ollama adapter from a resolved options record.
func NewOllamaService(cfg ServiceConfig) *OllamaService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaService{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *OllamaService) Name() string {
	return "ollama"
}

func (s *OllamaService) Translate(ctx context.Context, req TranslateRequest) *ServiceResult {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	prompt := fmt.Sprintf("%s\n\nLine: %s\n\nTranslation:", buildSystemPrompt(req), req.Text)

	body, err := json.Marshal(map[string]interface{}{
		"model":  s.cfg.Model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("failed to marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", s.cfg.BaseURL), bytes.NewBuffer(body))
	if err != nil {
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("failed to create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

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

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("failed to decode response: %v", err))
	}

	text := postprocess.Clean(ollamaResp.Response)
	if text == "" {
		return failureInto(result, FailureInvalidResponse, "empty translation returned")
	}

	result.TranslatedText = text
	return result
}
