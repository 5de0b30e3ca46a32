package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/adapter"
	"github.com/valpere/subtran/internal/arbiter"
	"github.com/valpere/subtran/internal/collector"
	"github.com/valpere/subtran/internal/critic"
)

// fakeService returns a fixed translation for every request.
type fakeService struct {
	name string
	text string
	fail adapter.FailureKind
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Translate(ctx context.Context, req adapter.TranslateRequest) *adapter.ServiceResult {
	if f.fail != adapter.FailureNone {
		return &adapter.ServiceResult{ServiceName: f.name, Failure: f.fail}
	}
	return &adapter.ServiceResult{ServiceName: f.name, TranslatedText: f.text}
}

// fakeLLM is a canned prompt-completion backend.
type fakeLLM struct {
	reply string
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return f.reply, nil
}

func testConfig() Config {
	return Config{
		FallbackTimeout: time.Second,
		Retry:           adapter.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, Jitter: time.Millisecond},
	}
}

func newTestPipeline(services []adapter.TranslationService, arb *arbiter.Arbiter, crit *critic.Critic, cfg Config) *Pipeline {
	col := collector.New(services, collector.Config{
		Timeout: time.Second,
		Retry:   cfg.Retry,
	})
	return New(col, services, arb, crit, nil, cfg)
}

func TestTranslate_PrefixAndBracketsPreserved(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "good", text: "Bonjour <bkt>rires</bkt>"},
	}
	p := newTestPipeline(services, nil, nil, testConfig())

	outcome := p.Translate(context.Background(), internal.Segment{
		ID:         "seg-1",
		SourceText: "JOHN: Hello [laughs]",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if outcome.FinalText != "JOHN: Bonjour [rires]" {
		t.Errorf("expected 'JOHN: Bonjour [rires]', got %q", outcome.FinalText)
	}
	if outcome.Trace.HasFlag(internal.FlagTokenViolation) {
		t.Error("unexpected token violation flag")
	}
	if len(outcome.Trace.Candidates) != 1 {
		t.Fatalf("expected 1 candidate in trace, got %d", len(outcome.Trace.Candidates))
	}
	if outcome.Trace.Candidates[0].Text != "JOHN: Bonjour [rires]" {
		t.Errorf("trace candidate must carry the prefix, got %q", outcome.Trace.Candidates[0].Text)
	}
}

func TestTranslate_ArbiterPicksTrusted(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "trusted", text: "Bonjour"},
		&fakeService{name: "other", text: "Salut"},
	}
	arb := arbiter.New(&fakeLLM{reply: `{"translation":"Bonjour","reasoning":"trusted near-verbatim"}`},
		arbiter.Options{Conservativeness: 1, TrustedAdapter: "trusted"})
	p := newTestPipeline(services, arb, nil, testConfig())

	outcome := p.Translate(context.Background(), internal.Segment{
		ID:         "seg-2",
		SourceText: "Hello",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if outcome.FinalText != "Bonjour" {
		t.Errorf("expected the trusted candidate's text, got %q", outcome.FinalText)
	}
	if outcome.Trace.FirstPassSource != "arbiter" {
		t.Errorf("expected first pass from arbiter, got %q", outcome.Trace.FirstPassSource)
	}
}

func TestTranslate_ArbiterFailureFallsBackToPriority(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "first", text: "Bonjour"},
		&fakeService{name: "second", text: "Salut"},
	}
	// Arbiter backend replies with nothing usable.
	arb := arbiter.New(&fakeLLM{reply: "<think>lost in thought"}, arbiter.Options{})
	cfg := testConfig()
	cfg.Priority = []string{"second", "first"}
	p := newTestPipeline(services, arb, nil, cfg)

	outcome := p.Translate(context.Background(), internal.Segment{
		ID:         "seg-3",
		SourceText: "Hello",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if outcome.FinalText != "Salut" {
		t.Errorf("expected the priority candidate, got %q", outcome.FinalText)
	}
	if !outcome.Trace.HasFlag(internal.FlagArbiterFallback) {
		t.Error("expected arbiter fallback flag")
	}
}

func TestTranslate_AllAdaptersFail(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "broken", fail: adapter.FailureInvalidResponse},
	}
	p := newTestPipeline(services, nil, nil, testConfig())

	outcome := p.Translate(context.Background(), internal.Segment{
		ID:         "seg-4",
		SourceText: "Hello",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if outcome.FinalText != "Hello" {
		t.Errorf("failed segment must return the source text, got %q", outcome.FinalText)
	}
	if !outcome.Trace.HasFlag(internal.FlagFailed) {
		t.Error("expected failed flag")
	}
	if outcome.Trace.Candidates == nil || outcome.Trace.Flags == nil {
		t.Error("trace fields must be present even on failure")
	}
}

func TestTranslate_TokenViolationSubstitutesCandidate(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "lossy", text: "Bonjour"},
		&fakeService{name: "careful", text: "Bonjour <bkt>rires</bkt>"},
	}
	// Arbiter picks the lossy text that dropped the bracket cue.
	arb := arbiter.New(&fakeLLM{reply: `{"translation":"Bonjour"}`}, arbiter.Options{})
	p := newTestPipeline(services, arb, nil, testConfig())

	outcome := p.Translate(context.Background(), internal.Segment{
		ID:         "seg-5",
		SourceText: "Hello [laughs]",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if outcome.FinalText != "Bonjour [rires]" {
		t.Errorf("expected substitution by the passing candidate, got %q", outcome.FinalText)
	}
	if outcome.Trace.HasFlag(internal.FlagTokenViolation) {
		t.Error("substitution must not flag a violation")
	}
}

func TestTranslate_TokenViolationFlaggedWhenNoCandidatePasses(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "lossy", text: "Bonjour"},
	}
	p := newTestPipeline(services, nil, nil, testConfig())

	outcome := p.Translate(context.Background(), internal.Segment{
		ID:         "seg-6",
		SourceText: "Hello [laughs]",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if !outcome.Trace.HasFlag(internal.FlagTokenViolation) {
		t.Error("expected token violation flag")
	}
	if outcome.FinalText != "Bonjour" {
		t.Errorf("chosen text must be kept, got %q", outcome.FinalText)
	}
}

func TestTranslate_CriticRevisionAdoptedWhenValid(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "good", text: "Bonjour <bkt>rires</bkt>"},
	}
	crit := critic.New(&fakeLLM{reply: `{"score": 0.6, "feedback": "stiff", "revised": "Salut [rires]"}`})
	p := newTestPipeline(services, nil, crit, testConfig())

	outcome := p.Translate(context.Background(), internal.Segment{
		ID:         "seg-7",
		SourceText: "Hello [laughs]",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if outcome.FinalText != "Salut [rires]" {
		t.Errorf("expected the critic revision, got %q", outcome.FinalText)
	}
	if !outcome.Trace.HasFlag(internal.FlagRevisionApplied) {
		t.Error("expected revision flag")
	}
	if outcome.Trace.Critic == nil || outcome.Trace.Critic.Score != 0.6 {
		t.Error("expected critic evaluation in trace")
	}
}

func TestTranslate_CriticRevisionRejectedWhenTokensMissing(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "good", text: "Bonjour <bkt>rires</bkt>"},
	}
	// Revision dropped the bracket cue; it must not be adopted.
	crit := critic.New(&fakeLLM{reply: `{"score": 0.6, "revised": "Salut"}`})
	p := newTestPipeline(services, nil, crit, testConfig())

	outcome := p.Translate(context.Background(), internal.Segment{
		ID:         "seg-8",
		SourceText: "Hello [laughs]",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if outcome.FinalText != "Bonjour [rires]" {
		t.Errorf("invalid revision must be rejected, got %q", outcome.FinalText)
	}
	if outcome.Trace.HasFlag(internal.FlagRevisionApplied) {
		t.Error("revision flag must not be set")
	}
}

func TestTranslate_GlossaryApplied(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "good", text: "The Airbender flies"},
	}
	p := newTestPipeline(services, nil, nil, testConfig())

	outcome := p.Translate(context.Background(), internal.Segment{
		ID:         "seg-9",
		SourceText: "The Airbender flies",
		SourceLang: "en",
		TargetLang: "da",
		Glossary:   []internal.GlossaryEntry{{SourceTerm: "airbender", TargetTerm: "luftbøjer"}},
	})

	if outcome.FinalText != "The Luftbøjer flies" {
		t.Errorf("expected glossary substitution, got %q", outcome.FinalText)
	}
}

func TestRun_SequentialOrderedEmission(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "good", text: "ok"},
	}
	p := newTestPipeline(services, nil, nil, testConfig())

	segments := []internal.Segment{
		{ID: "a", SourceText: "one", SourceLang: "en", TargetLang: "fr"},
		{ID: "b", SourceText: "two", SourceLang: "en", TargetLang: "fr"},
		{ID: "c", SourceText: "three", SourceLang: "en", TargetLang: "fr"},
	}

	var got []string
	for outcome := range p.Run(context.Background(), segments) {
		got = append(got, outcome.SegmentID)
	}

	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("expected ordered emission a,b,c, got %v", got)
	}
}

func TestRun_CancelledBetweenSegments(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "good", text: "ok"},
	}
	p := newTestPipeline(services, nil, nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())

	segments := []internal.Segment{
		{ID: "a", SourceText: "one", SourceLang: "en", TargetLang: "fr"},
		{ID: "b", SourceText: "two", SourceLang: "en", TargetLang: "fr"},
	}

	out := p.Run(ctx, segments)
	first := <-out
	if first.SegmentID != "a" {
		t.Fatalf("expected segment a first, got %s", first.SegmentID)
	}
	cancel()

	var rest []internal.TranslationOutcome
	for o := range out {
		rest = append(rest, o)
	}
	if len(rest) > 1 {
		t.Errorf("expected cancellation at a segment boundary, got %d more outcomes", len(rest))
	}
}

func TestRunBulk_AllFilesComplete(t *testing.T) {
	services := []adapter.TranslationService{
		&fakeService{name: "good", text: "ok"},
	}
	p := newTestPipeline(services, nil, nil, testConfig())

	jobs := []FileJob{
		{Name: "one.json", Segments: []internal.Segment{{ID: "1a", SourceText: "x", TargetLang: "fr"}}},
		{Name: "two.json", Segments: []internal.Segment{{ID: "2a", SourceText: "y", TargetLang: "fr"}}},
	}

	var mu sync.Mutex
	counts := make(map[string]int)

	err := p.RunBulk(context.Background(), jobs, 2, func(file string, outcome internal.TranslationOutcome) error {
		mu.Lock()
		counts[file]++
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts["one.json"] != 1 || counts["two.json"] != 1 {
		t.Errorf("expected one outcome per file, got %v", counts)
	}
}
