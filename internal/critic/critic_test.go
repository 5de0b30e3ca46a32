package critic

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// countingClient returns a canned reply and counts backend calls.
type countingClient struct {
	reply string
	err   error
	calls int
}

func (c *countingClient) Name() string { return "fake" }

func (c *countingClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestNormalizeScore(t *testing.T) {
	cases := map[float64]float64{
		7:    0.7,
		0.9:  0.9,
		11:   1.0,
		0:    0,
		-0.5: 0,
		1.0:  1.0,
	}
	for in, want := range cases {
		if got := NormalizeScore(in); got != want {
			t.Errorf("NormalizeScore(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestEvaluate_CachedAfterFirstCall(t *testing.T) {
	client := &countingClient{reply: `{"score": 0.8, "feedback": "good"}`}
	c := New(client)
	ctx := context.Background()

	first, err := c.Evaluate(ctx, "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Evaluate(ctx, "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.calls != 1 {
		t.Errorf("expected exactly 1 backend call, got %d", client.calls)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached evaluation differs (-first +second):\n%s", diff)
	}
}

func TestEvaluate_DistinctKeysMiss(t *testing.T) {
	client := &countingClient{reply: `{"score": 0.8}`}
	c := New(client)
	ctx := context.Background()

	if _, err := c.Evaluate(ctx, "Hello", "Bonjour", "en", "fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Evaluate(ctx, "Hello", "Salut", "en", "fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.calls != 2 {
		t.Errorf("expected 2 backend calls for distinct candidates, got %d", client.calls)
	}
}

func TestEvaluate_TenScaleNormalized(t *testing.T) {
	client := &countingClient{reply: `{"score": 8, "feedback": "solid"}`}
	c := New(client)

	eval, err := c.Evaluate(context.Background(), "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Score != 0.8 {
		t.Errorf("expected 0.8, got %v", eval.Score)
	}
}

func TestEvaluate_RevisionProposed(t *testing.T) {
	client := &countingClient{reply: `{"score": 0.6, "feedback": "awkward", "revised": "Bonjour !"}`}
	c := New(client)

	eval, err := c.Evaluate(context.Background(), "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.RevisedText != "Bonjour !" {
		t.Errorf("expected revision, got %q", eval.RevisedText)
	}
}

func TestEvaluate_RevisionIdenticalDropped(t *testing.T) {
	client := &countingClient{reply: `{"score": 0.9, "revised": "Bonjour"}`}
	c := New(client)

	eval, err := c.Evaluate(context.Background(), "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.RevisedText != "" {
		t.Errorf("identical revision must be dropped, got %q", eval.RevisedText)
	}
}

func TestEvaluate_ThinkStrippedBeforeParsing(t *testing.T) {
	client := &countingClient{reply: "<think>weighing it</think>{\"score\": 0.7}"}
	c := New(client)

	eval, err := c.Evaluate(context.Background(), "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Score != 0.7 {
		t.Errorf("expected 0.7, got %v", eval.Score)
	}
}

func TestEvaluate_BackendError(t *testing.T) {
	client := &countingClient{err: fmt.Errorf("connection refused")}
	c := New(client)

	if _, err := c.Evaluate(context.Background(), "Hello", "Bonjour", "en", "fr"); err == nil {
		t.Error("expected error when backend fails")
	}
}

func TestApproximateScore_ExplicitPattern(t *testing.T) {
	if got := approximateScore("I'd give it a score: 8 overall"); got != 0.8 {
		t.Errorf("expected 0.8, got %v", got)
	}
}

func TestApproximateScore_SentimentWords(t *testing.T) {
	positive := approximateScore("a good, natural and fluent rendering")
	if positive <= 0.5 {
		t.Errorf("expected above neutral, got %v", positive)
	}
	negative := approximateScore("awkward and wrong, a poor rendering")
	if negative >= 0.5 {
		t.Errorf("expected below neutral, got %v", negative)
	}
}

func TestApproximateScore_Default(t *testing.T) {
	if got := approximateScore("?!"); got != 0.5 {
		t.Errorf("expected neutral 0.5, got %v", got)
	}
}

func TestParseEvaluation_TotalParseFailure(t *testing.T) {
	eval := parseEvaluation("utterly unstructured reply", "Bonjour")
	if eval.Score != 0.5 {
		t.Errorf("expected neutral score, got %v", eval.Score)
	}
	if eval.Feedback == "" {
		t.Error("expected raw text kept as feedback")
	}
}
