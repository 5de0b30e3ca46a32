package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleService translates through the Google Cloud Translation API.
type GoogleService struct {
	cfg ServiceConfig
}

// NewGoogleService creates a Google adapter from a resolved options record.
func NewGoogleService(cfg ServiceConfig) *GoogleService {
	return &GoogleService{cfg: cfg}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) Translate(ctx context.Context, req TranslateRequest) *ServiceResult {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	targetTag, err := language.Parse(req.TargetLang)
	if err != nil {
		return failureInto(result, FailureInvalidResponse, fmt.Sprintf("invalid target language: %v", err))
	}

	var opts []option.ClientOption
	if s.cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(s.cfg.Credentials))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return failureInto(result, FailureAuthError, fmt.Sprintf("failed to create client: %v", err))
	}
	defer client.Close()

	var tOpts *translate.Options
	if req.SourceLang != "" && req.SourceLang != "auto" {
		if sourceTag, perr := language.Parse(req.SourceLang); perr == nil {
			tOpts = &translate.Options{Source: sourceTag}
		}
	}

	translations, err := client.Translate(ctx, []string{req.Text}, targetTag, tOpts)
	if err != nil {
		return failureInto(result, classifyGoogleErr(err), fmt.Sprintf("translation failed: %v", err))
	}
	if len(translations) == 0 {
		return failureInto(result, FailureInvalidResponse, "no translation returned")
	}

	result.TranslatedText = translations[0].Text
	return result
}

func classifyGoogleErr(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rateLimitExceeded"):
		return FailureRateLimited
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "credentials"):
		return FailureAuthError
	default:
		return FailureInvalidResponse
	}
}
