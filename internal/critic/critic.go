// Package critic implements the quality-review stage. It scores a chosen
// translation against its source and may propose a revision; the pipeline
// decides whether a proposed revision is adopted.
//
// Evaluations are cached for the life of the run, keyed by language pair and
// content hashes. A cache entry never changes once written: evaluating the
// same pair twice performs exactly one backend call.
package critic

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/llm"
	"github.com/valpere/subtran/internal/postprocess"
)

// Critic evaluates translations through an LLM backend.
type Critic struct {
	client llm.Client
	cache  *gocache.Cache
}

// New creates a critic over an LLM backend with an unbounded run-lifetime
// cache.
func New(client llm.Client) *Critic {
	return &Critic{
		client: client,
		cache:  gocache.New(gocache.NoExpiration, 0),
	}
}

// cacheKey builds the immutable evaluation key.
func cacheKey(source, candidate, sourceLang, targetLang string) string {
	return fmt.Sprintf("%s|%s|%x|%x",
		sourceLang, targetLang,
		sha256.Sum256([]byte(source)),
		sha256.Sum256([]byte(candidate)))
}

// Evaluate scores candidate as a translation of source. The cache is
// consulted first; on a miss the backend is called once and the parsed
// evaluation stored. Parse failures degrade to an approximate score rather
// than an error — only a backend transport failure is returned as one.
func (c *Critic) Evaluate(ctx context.Context, source, candidate, sourceLang, targetLang string) (*internal.CriticEvaluation, error) {
	key := cacheKey(source, candidate, sourceLang, targetLang)
	if cached, found := c.cache.Get(key); found {
		eval := cached.(internal.CriticEvaluation)
		return &eval, nil
	}

	raw, err := c.client.Complete(ctx, buildPrompt(source, candidate, sourceLang, targetLang))
	if err != nil {
		return nil, fmt.Errorf("critic backend failed: %w", err)
	}

	eval := parseEvaluation(raw, candidate)
	c.cache.Set(key, *eval, gocache.NoExpiration)

	result := *eval
	return &result, nil
}

func buildPrompt(source, candidate, sourceLang, targetLang string) string {
	return fmt.Sprintf(`You are a %s subtitle quality reviewer.

Original line (%s):
%q

Translation under review (%s):
%q

Score the translation from 0.0 (unusable) to 1.0 (perfect) for accuracy and
natural phrasing. If you can improve it, include a revised line; otherwise
leave "revised" empty. Keep all markup, bracketed cues and punctuation marks
exactly as in the original.

Respond ONLY in JSON:
{
  "score": 0.0,
  "feedback": "...",
  "revised": "..."
}`, targetLang, sourceLang, source, targetLang, candidate)
}

// criticReply is the structured shape the backend is asked to return.
type criticReply struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
	Revised  string  `json:"revised"`
}

// parseEvaluation degrades through the same chain as the arbiter: direct
// JSON, embedded balanced object, then heuristic score extraction from the
// raw text. It never fails; the worst case is a neutral 0.5 score.
func parseEvaluation(raw, candidate string) *internal.CriticEvaluation {
	cleaned := postprocess.StripThink(raw)

	var r criticReply
	if err := json.Unmarshal([]byte(postprocess.StripFences(cleaned)), &r); err == nil {
		return evalFromReply(r, candidate)
	}
	if obj, found := postprocess.ExtractObject(cleaned); found {
		if err := json.Unmarshal([]byte(obj), &r); err == nil {
			return evalFromReply(r, candidate)
		}
	}

	return &internal.CriticEvaluation{
		Score:    approximateScore(cleaned),
		Feedback: strings.TrimSpace(cleaned),
	}
}

func evalFromReply(r criticReply, candidate string) *internal.CriticEvaluation {
	eval := &internal.CriticEvaluation{
		Score:    NormalizeScore(r.Score),
		Feedback: r.Feedback,
	}
	revised := strings.TrimSpace(r.Revised)
	if revised != "" && revised != candidate {
		eval.RevisedText = revised
	}
	return eval
}

// NormalizeScore maps a raw backend score to [0, 1]. Values above 1 are
// treated as a 1-10 scale and divided by ten; the result is clamped.
func NormalizeScore(v float64) float64 {
	if v > 1.0 {
		v = v / 10.0
	}
	if v < 0 {
		return 0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// scoreRe matches an explicit "score: N" mention in free-form text.
var scoreRe = regexp.MustCompile(`(?i)score\s*[:=]?\s*([0-9]+(?:\.[0-9]+)?)`)

var (
	positiveWords = []string{"good", "accurate", "excellent", "natural", "faithful", "fluent", "correct"}
	negativeWords = []string{"bad", "wrong", "awkward", "inaccurate", "unnatural", "poor", "mistranslat"}
)

// approximateScore estimates a score from unparseable critic output: first
// an explicit "score: N" pattern, then a positive/negative word count,
// defaulting to neutral 0.5.
func approximateScore(text string) float64 {
	if m := scoreRe.FindStringSubmatch(text); m != nil {
		var v float64
		if _, err := fmt.Sscanf(m[1], "%g", &v); err == nil {
			return NormalizeScore(v)
		}
	}

	lower := strings.ToLower(text)
	score := 0.5
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score += 0.05
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score -= 0.05
		}
	}
	return NormalizeScore(score)
}
