package collector

import (
	"context"
	"testing"
	"time"

	"github.com/valpere/subtran/internal/adapter"
)

// fakeService returns a fixed text, optionally after a delay.
type fakeService struct {
	name  string
	text  string
	fail  adapter.FailureKind
	delay time.Duration
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Translate(ctx context.Context, req adapter.TranslateRequest) *adapter.ServiceResult {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return &adapter.ServiceResult{ServiceName: f.name, Failure: adapter.FailureTimeout, Detail: "cancelled"}
		}
	}
	if f.fail != adapter.FailureNone {
		return &adapter.ServiceResult{ServiceName: f.name, Failure: f.fail}
	}
	return &adapter.ServiceResult{ServiceName: f.name, TranslatedText: f.text}
}

func fastConfig(timeout time.Duration) Config {
	return Config{
		Timeout: timeout,
		Retry:   adapter.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, Jitter: time.Millisecond},
	}
}

func TestCollect_OrderFollowsAdapterOrder(t *testing.T) {
	col := New([]adapter.TranslationService{
		&fakeService{name: "slow", text: "Bonjour", delay: 30 * time.Millisecond},
		&fakeService{name: "fast", text: "Salut"},
	}, fastConfig(time.Second))

	candidates := col.Collect(context.Background(), adapter.TranslateRequest{Text: "Hello"})

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].AdapterName != "slow" || candidates[1].AdapterName != "fast" {
		t.Errorf("candidate order must follow adapter order, got %s then %s",
			candidates[0].AdapterName, candidates[1].AdapterName)
	}
	if candidates[0].ObtainedAt.IsZero() {
		t.Error("expected ObtainedAt to be set")
	}
}

func TestCollect_StalledAdapterOmitted(t *testing.T) {
	col := New([]adapter.TranslationService{
		&fakeService{name: "stalled", text: "never", delay: time.Minute},
		&fakeService{name: "fast", text: "Salut"},
	}, fastConfig(50*time.Millisecond))

	start := time.Now()
	candidates := col.Collect(context.Background(), adapter.TranslateRequest{Text: "Hello"})
	elapsed := time.Since(start)

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].AdapterName != "fast" {
		t.Errorf("expected 'fast', got %q", candidates[0].AdapterName)
	}
	if elapsed > 5*time.Second {
		t.Errorf("stalled adapter delayed collection: %v", elapsed)
	}
}

func TestCollect_FailuresDropped(t *testing.T) {
	col := New([]adapter.TranslationService{
		&fakeService{name: "broken", fail: adapter.FailureInvalidResponse},
		&fakeService{name: "locked", fail: adapter.FailureAuthError},
	}, fastConfig(time.Second))

	candidates := col.Collect(context.Background(), adapter.TranslateRequest{Text: "Hello"})

	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}
