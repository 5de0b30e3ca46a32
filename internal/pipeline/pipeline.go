// Package pipeline sequences the translation resolution stages for one
// segment: collect candidates, arbitrate (or fall back through the priority
// list), critique, then guard the structural invariants. Segments of one
// file run strictly in source order; a complete trace is emitted for every
// segment no matter which path executed.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/adapter"
	"github.com/valpere/subtran/internal/arbiter"
	"github.com/valpere/subtran/internal/collector"
	"github.com/valpere/subtran/internal/critic"
	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/guard"
)

// State names the stage a segment is currently in.
type State string

const (
	StateCollecting  State = "COLLECTING"
	StateArbitrating State = "ARBITRATING"
	StateCritiquing  State = "CRITIQUING"
	StateGuarding    State = "GUARDING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Config tunes one pipeline instance.
type Config struct {
	// Priority orders adapter names for the no-arbiter path, the direct
	// fallback calls and trusted-candidate substitution.
	Priority []string

	// FallbackTimeout bounds each direct fallback adapter call.
	FallbackTimeout time.Duration

	// Retry is the policy for direct fallback calls; collection carries its
	// own copy inside the collector.
	Retry adapter.RetryConfig
}

// Pipeline runs the full resolution sequence for segments.
type Pipeline struct {
	collector *collector.Collector
	adapters  map[string]adapter.TranslationService
	arb       *arbiter.Arbiter
	crit      *critic.Critic
	det       *detector.Detector
	config    Config
}

// New wires a pipeline. arb, crit and det may each be nil to skip
// arbitration, the critic pass and the wrong-language check respectively.
// adapters must not include the arbiter's own backend.
func New(col *collector.Collector, adapters []adapter.TranslationService, arb *arbiter.Arbiter, crit *critic.Critic, det *detector.Detector, config Config) *Pipeline {
	if config.FallbackTimeout <= 0 {
		config.FallbackTimeout = 30 * time.Second
	}
	byName := make(map[string]adapter.TranslationService, len(adapters))
	var names []string
	for _, svc := range adapters {
		byName[svc.Name()] = svc
		names = append(names, svc.Name())
	}
	if len(config.Priority) == 0 {
		config.Priority = names
	}
	return &Pipeline{
		collector: col,
		adapters:  byName,
		arb:       arb,
		crit:      crit,
		det:       det,
		config:    config,
	}
}

// Translate runs one segment through the pipeline and returns its outcome.
// It never returns an error: a segment that cannot be translated comes back
// as the source text with the failed flag set on its trace.
func (p *Pipeline) Translate(ctx context.Context, seg internal.Segment) internal.TranslationOutcome {
	start := time.Now()
	trace := internal.PipelineTrace{
		SegmentID:  seg.ID,
		Candidates: []internal.Candidate{},
		Flags:      []string{},
	}

	prefix, rest := guard.FreezePrefix(seg.SourceText)

	req := adapter.TranslateRequest{
		Text:          guard.ProtectBrackets(rest),
		SourceLang:    seg.SourceLang,
		TargetLang:    seg.TargetLang,
		Context:       seg.Context,
		GlossaryTerms: glossaryMap(seg.Glossary),
		Hints:         seg.MediaHints,
	}

	// COLLECTING
	candidates := p.collector.Collect(ctx, req)
	for i := range candidates {
		candidates[i].Text = guard.RestoreBrackets(candidates[i].Text)
	}
	for _, c := range candidates {
		c.Text = guard.ReattachPrefix(prefix, c.Text)
		trace.Candidates = append(trace.Candidates, c)
	}

	// ARBITRATING
	firstPass, source := p.resolve(ctx, seg, rest, req, candidates, &trace)
	if firstPass == "" {
		trace.AddFlag(internal.FlagFailed)
		trace.FinalText = seg.SourceText
		trace.Elapsed = time.Since(start)
		fmt.Fprintf(os.Stderr, "pipeline: segment %s %s: no candidate and no fallback, keeping source\n", seg.ID, StateFailed)
		return internal.TranslationOutcome{SegmentID: seg.ID, FinalText: seg.SourceText, Trace: trace}
	}
	trace.FirstPass = guard.ReattachPrefix(prefix, firstPass)
	trace.FirstPassSource = source

	// CRITIQUING
	chosen := firstPass
	if p.crit != nil {
		eval, err := p.crit.Evaluate(ctx, rest, firstPass, seg.SourceLang, seg.TargetLang)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pipeline: segment %s %s: critic unavailable: %v\n", seg.ID, StateCritiquing, err)
		} else {
			trace.Critic = eval
			if eval.RevisedText != "" && eval.RevisedText != firstPass && guard.ValidateTokens(rest, eval.RevisedText) {
				chosen = eval.RevisedText
				trace.AddFlag(internal.FlagRevisionApplied)
			}
		}
	}

	// GUARDING
	if !guard.ValidateTokens(rest, chosen) {
		if sub, ok := guard.PickValidCandidate(rest, candidates, p.config.Priority); ok {
			chosen = sub.Text
		} else {
			trace.AddFlag(internal.FlagTokenViolation)
			fmt.Fprintf(os.Stderr, "pipeline: segment %s %s: missing tokens %v\n",
				seg.ID, StateGuarding, guard.MissingTokens(rest, chosen))
		}
	}
	chosen = guard.ApplyGlossary(chosen, seg.Glossary)
	if p.det != nil && !p.det.Matches(chosen, seg.TargetLang) {
		trace.AddFlag(internal.FlagWrongLanguage)
	}

	final := guard.ReattachPrefix(prefix, chosen)
	trace.FinalText = final
	trace.Elapsed = time.Since(start)

	return internal.TranslationOutcome{SegmentID: seg.ID, FinalText: final, Trace: trace}
}

// resolve produces the first-pass text: arbitration when available, then the
// highest-priority collected candidate, then direct priority-ordered
// fallback calls. An empty return means the segment failed terminally.
func (p *Pipeline) resolve(ctx context.Context, seg internal.Segment, rest string, req adapter.TranslateRequest, candidates []internal.Candidate, trace *internal.PipelineTrace) (string, string) {
	if p.arb != nil && len(candidates) > 0 {
		arbSeg := seg
		arbSeg.SourceText = rest
		res, err := p.arb.Decide(ctx, arbSeg, candidates)
		if err == nil && res.FinalText != "" {
			return guard.RestoreBrackets(res.FinalText), "arbiter"
		}
		trace.AddFlag(internal.FlagArbiterFallback)
		fmt.Fprintf(os.Stderr, "pipeline: segment %s %s: arbitration unavailable, using priority fallback: %v\n",
			seg.ID, StateArbitrating, err)
	}

	// Highest-priority collected candidate first; avoids re-calling
	// adapters that already delivered.
	byName := make(map[string]internal.Candidate, len(candidates))
	for _, c := range candidates {
		byName[c.AdapterName] = c
	}
	for _, name := range p.config.Priority {
		if c, ok := byName[name]; ok && c.Text != "" {
			return c.Text, c.AdapterName
		}
	}
	for _, c := range candidates {
		if c.Text != "" {
			return c.Text, c.AdapterName
		}
	}

	// Direct fallback calls in priority order.
	for _, name := range p.config.Priority {
		svc, ok := p.adapters[name]
		if !ok {
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, p.config.FallbackTimeout)
		res := adapter.Retry(callCtx, svc, req, p.config.Retry)
		cancel()
		if res.OK() {
			return guard.RestoreBrackets(res.TranslatedText), name
		}
	}

	return "", ""
}

// Run processes segments strictly in order and emits one outcome per
// segment on the returned channel, which is closed when the run finishes or
// ctx is cancelled. Cancellation takes effect at segment boundaries.
func (p *Pipeline) Run(ctx context.Context, segments []internal.Segment) <-chan internal.TranslationOutcome {
	out := make(chan internal.TranslationOutcome)
	go func() {
		defer close(out)
		for _, seg := range segments {
			if ctx.Err() != nil {
				return
			}
			outcome := p.Translate(ctx, seg)
			select {
			case out <- outcome:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func glossaryMap(entries []internal.GlossaryEntry) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	terms := make(map[string]string, len(entries))
	for _, e := range entries {
		terms[e.SourceTerm] = e.TargetTerm
	}
	return terms
}
