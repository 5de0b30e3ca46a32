// Package adapter wraps external translation and LLM backends behind one
// call contract. A backend failure is a value on the result, never a panic;
// the retry wrapper in this package decides which failures are worth
// another attempt.
package adapter

import (
	"context"
	"time"
)

// FailureKind classifies why an adapter call produced no usable text.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureRateLimited     FailureKind = "rate_limited"
	FailureTimeout         FailureKind = "timeout"
	FailureInvalidResponse FailureKind = "invalid_response"
	FailureAuthError       FailureKind = "auth_error"
)

// ServiceConfig is the opaque, pre-validated options record an adapter is
// constructed with. It is resolved once by the configuration layer; adapters
// never re-read raw configuration per call.
type ServiceConfig struct {
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	Temperature float32       `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" json:"max_tokens"`
	Email       string        `mapstructure:"email" json:"email"`
	RateLimit   float64       `mapstructure:"rate_limit" json:"rate_limit"`
}

// TranslateRequest carries one segment's text plus the surrounding context
// the LLM-backed services embed in their prompts.
type TranslateRequest struct {
	Text          string            `json:"text"`
	SourceLang    string            `json:"source_lang"`
	TargetLang    string            `json:"target_lang"`
	Context       []string          `json:"context,omitempty"`
	GlossaryTerms map[string]string `json:"glossary_terms,omitempty"`
	Hints         string            `json:"hints,omitempty"`
}

// ServiceResult is the outcome of a single adapter call. Exactly one of
// TranslatedText or Failure is meaningful; Detail carries the human-readable
// cause when Failure is set.
type ServiceResult struct {
	ServiceName    string        `json:"service_name"`
	TranslatedText string        `json:"translated_text"`
	Failure        FailureKind   `json:"failure,omitempty"`
	Detail         string        `json:"detail,omitempty"`
	Latency        time.Duration `json:"latency"`
}

// OK reports whether the call produced a usable translation.
func (r *ServiceResult) OK() bool {
	return r.Failure == FailureNone && r.TranslatedText != ""
}

// TranslationService is the uniform backend contract. Translate never
// returns an error: failures come back as a ServiceResult with Failure set.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) *ServiceResult
}

// failure builds a failed result for an adapter.
func failure(name string, kind FailureKind, detail string) *ServiceResult {
	return &ServiceResult{ServiceName: name, Failure: kind, Detail: detail}
}

// classifyStatus maps an HTTP status code to a failure kind.
func classifyStatus(status int) FailureKind {
	switch {
	case status == 401 || status == 403:
		return FailureAuthError
	case status == 429:
		return FailureRateLimited
	case status == 408 || status == 504:
		return FailureTimeout
	default:
		return FailureInvalidResponse
	}
}
