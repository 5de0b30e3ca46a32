// Package arbiter resolves several candidate translations of one segment
// into a single trusted text by asking an LLM backend to pick or compose.
//
// The conservativeness level only changes the wording of the decision
// prompt. It is guidance to the model, not an enforced constraint: a level-1
// arbiter is told to trust the designated candidate near-verbatim, but
// nothing in this package verifies that it did.
package arbiter

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/llm"
)

// Options configure one arbiter instance.
type Options struct {
	// Conservativeness is an ordinal policy from 1 (trust the designated
	// candidate near-verbatim) through 3 (balanced) to 5 (free contextual
	// correction). Values outside 1..5 are clamped.
	Conservativeness int

	// TrustedAdapter names the high-trust candidate the low-conservativeness
	// wording points at. Empty means the first candidate.
	TrustedAdapter string
}

// Result is the arbitration outcome for one segment.
type Result struct {
	FinalText        string
	CandidatesUsed   []string
	Conservativeness int
	Reasoning        string
}

// Arbiter picks or synthesizes a final translation from candidates.
type Arbiter struct {
	client llm.Client
	opts   Options
}

// New creates an arbiter over an LLM backend.
func New(client llm.Client, opts Options) *Arbiter {
	if opts.Conservativeness < 1 {
		opts.Conservativeness = 1
	}
	if opts.Conservativeness > 5 {
		opts.Conservativeness = 5
	}
	return &Arbiter{client: client, opts: opts}
}

// Decide builds the decision prompt from the segment and its candidates,
// invokes the backend, and parses the reply through the defensive parser
// chain. With no candidates it returns an error so the caller can take the
// priority fallback path.
func (a *Arbiter) Decide(ctx context.Context, seg internal.Segment, candidates []internal.Candidate) (*Result, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to arbitrate")
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.AdapterName
	}

	if len(candidates) == 1 {
		return &Result{
			FinalText:        candidates[0].Text,
			CandidatesUsed:   names,
			Conservativeness: a.opts.Conservativeness,
			Reasoning:        "only one candidate available",
		}, nil
	}

	prompt := a.buildPrompt(seg, candidates)

	raw, err := a.client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("arbiter backend failed: %w", err)
	}

	text, reasoning, ok := ParseReply(raw)
	if !ok || text == "" {
		return nil, fmt.Errorf("arbiter reply yielded no usable text")
	}

	return &Result{
		FinalText:        text,
		CandidatesUsed:   names,
		Conservativeness: a.opts.Conservativeness,
		Reasoning:        reasoning,
	}, nil
}

func (a *Arbiter) buildPrompt(seg internal.Segment, candidates []internal.Candidate) string {
	trusted := a.opts.TrustedAdapter
	if trusted == "" {
		trusted = candidates[0].AdapterName
	}

	var sb strings.Builder
	sb.WriteString("You are a professional subtitle translation evaluator.\n")
	sb.WriteString(fmt.Sprintf("Given the original line in %s:\n", seg.SourceLang))
	sb.WriteString(fmt.Sprintf("%q\n", seg.SourceText))

	if len(seg.Context) > 0 {
		sb.WriteString("\nNeighbouring lines (context only, do not translate):\n")
		for _, line := range seg.Context {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}
	if seg.MediaHints != "" {
		sb.WriteString(fmt.Sprintf("\nAbout the media: %s\n", seg.MediaHints))
	}
	if len(seg.Glossary) > 0 {
		sb.WriteString("\nTerminology (use these exact translations):\n")
		for _, g := range seg.Glossary {
			sb.WriteString(fmt.Sprintf("  %s → %s\n", g.SourceTerm, g.TargetTerm))
		}
	}

	sb.WriteString(fmt.Sprintf("\nAnd these candidate translations to %s:\n", seg.TargetLang))
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("  %d. [%s]: %q\n", i+1, c.AdapterName, c.Text))
	}

	sb.WriteString("\n")
	sb.WriteString(conservativenessClause(a.opts.Conservativeness, trusted))
	sb.WriteString(`
Keep all markup, bracketed cues and punctuation marks exactly as in the original.
Respond ONLY in JSON:
{
  "translation": "...",
  "reasoning": "..."
}
`)
	return sb.String()
}

// conservativenessClause renders the ordinal policy as prompt wording.
func conservativenessClause(level int, trusted string) string {
	switch {
	case level <= 2:
		return fmt.Sprintf("Treat the [%s] candidate as professionally translated: return it near-verbatim, deviating only to fix outright errors.", trusted)
	case level == 3:
		return fmt.Sprintf("Weigh all candidates equally, with a slight preference for [%s] when quality is comparable.", trusted)
	default:
		return "Pick or compose the best translation freely; you may correct any candidate using the context."
	}
}
