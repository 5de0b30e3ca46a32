package internal

import "time"

// Segment is one subtitle line handed over by the subtitle store. It is
// read-only to the pipeline; translated text travels back inside a
// TranslationOutcome, never by mutating the segment.
type Segment struct {
	ID         string          `json:"id"`
	SourceText string          `json:"source_text"`
	SourceLang string          `json:"source_lang"`
	TargetLang string          `json:"target_lang"`
	Context    []string        `json:"context,omitempty"`
	MediaHints string          `json:"media_hints,omitempty"`
	Glossary   []GlossaryEntry `json:"glossary,omitempty"`
}

// Candidate is one adapter's translation proposal for a segment. Candidates
// live only for the duration of a single pipeline run.
type Candidate struct {
	AdapterName string    `json:"adapter_name"`
	Text        string    `json:"text"`
	ObtainedAt  time.Time `json:"obtained_at"`
}

// GlossaryEntry maps a source-language term to its mandated translation.
type GlossaryEntry struct {
	SourceTerm string `json:"source_term" yaml:"source"`
	TargetTerm string `json:"target_term" yaml:"target"`
}

// CriticEvaluation is the quality critic's verdict on a chosen translation.
// Score is always within [0, 1]. RevisedText, when non-empty, is a proposed
// replacement that still has to pass token validation before adoption.
type CriticEvaluation struct {
	Score       float64 `json:"score"`
	Feedback    string  `json:"feedback"`
	RevisedText string  `json:"revised_text,omitempty"`
}

// Trace flags recorded on a PipelineTrace.
const (
	FlagFailed          = "failed"
	FlagTokenViolation  = "token_violation"
	FlagArbiterFallback = "arbiter_fallback"
	FlagRevisionApplied = "revision_applied"
	FlagWrongLanguage   = "wrong_language"
	FlagMemoryHit       = "memory_hit"
)

// PipelineTrace is the per-segment diagnostic record. One trace is produced
// for every segment regardless of which path executed; stages that did not
// run leave their fields empty rather than omitted.
type PipelineTrace struct {
	SegmentID       string            `json:"segment_id"`
	Candidates      []Candidate       `json:"candidates"`
	FirstPass       string            `json:"first_pass"`
	FirstPassSource string            `json:"first_pass_source"`
	Critic          *CriticEvaluation `json:"critic"`
	FinalText       string            `json:"final_text"`
	Elapsed         time.Duration     `json:"elapsed"`
	Flags           []string          `json:"flags"`
}

// HasFlag reports whether the trace carries the given flag.
func (t *PipelineTrace) HasFlag(flag string) bool {
	for _, f := range t.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// AddFlag appends a flag unless it is already present.
func (t *PipelineTrace) AddFlag(flag string) {
	if !t.HasFlag(flag) {
		t.Flags = append(t.Flags, flag)
	}
}

// TranslationOutcome is emitted per segment to the progress consumer.
type TranslationOutcome struct {
	SegmentID string        `json:"segment_id"`
	FinalText string        `json:"final_text"`
	Trace     PipelineTrace `json:"trace"`
}
