package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// MyMemoryService queries the free MyMemory translation API. An email
// address raises the daily character quota.
type MyMemoryService struct {
	cfg    ServiceConfig
	client *http.Client
}

// NewMyMemoryService creates a MyMemory adapter from a resolved options record.
func NewMyMemoryService(cfg ServiceConfig) *MyMemoryService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MyMemoryService{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *MyMemoryService) Name() string {
	return "mymemory"
}

func (s *MyMemoryService) Translate(ctx context.Context, req TranslateRequest) *ServiceResult {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "en"
	}

	apiURL := fmt.Sprintf("https://api.mymemory.translated.net/get?q=%s&langpair=%s",
		url.QueryEscape(req.Text),
		url.QueryEscape(fmt.Sprintf("%s|%s", sourceLang, req.TargetLang)))
	if s.cfg.Email != "" {
		apiURL += fmt.Sprintf("&de=%s", url.QueryEscape(s.cfg.Email))
	}
	if s.cfg.BaseURL != "" {
		apiURL = s.cfg.BaseURL + apiURL[len("https://api.mymemory.translated.net"):]
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("failed to create request: %v", err))
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return failureInto(result, FailureTimeout, fmt.Sprintf("request timed out: %v", err))
		}
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	var mymemResp struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		ResponseStatus  json.Number `json:"responseStatus"`
		ResponseDetails string      `json:"responseDetails"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&mymemResp); err != nil {
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("failed to decode response: %v", err))
	}

	status, _ := mymemResp.ResponseStatus.Int64()
	if status != 200 {
		kind := classifyStatus(int(status))
		return failureInto(result, kind, fmt.Sprintf("API error: %s (%d)", mymemResp.ResponseDetails, status))
	}
	if mymemResp.ResponseData.TranslatedText == "" {
		return failureInto(result, FailureInvalidResponse, "empty translation returned")
	}

	result.TranslatedText = mymemResp.ResponseData.TranslatedText
	return result
}

// failureInto records a failure on an already-allocated result so the
// latency captured by the deferred timer is preserved.
func failureInto(result *ServiceResult, kind FailureKind, detail string) *ServiceResult {
	result.Failure = kind
	result.Detail = detail
	return result
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
