// Package llm abstracts the prompt-completion backends the arbiter and the
// quality critic run on. A backend is anything that can turn one prompt into
// one raw text reply; response cleanup and parsing stay with the caller.
package llm

import "context"

// Client completes a single prompt against one LLM backend.
type Client interface {
	// Name returns the backend name for logs and traces.
	Name() string

	// Complete sends prompt and returns the raw reply text. The reply may
	// still contain <think> spans and markdown fences.
	Complete(ctx context.Context, prompt string) (string, error)
}
