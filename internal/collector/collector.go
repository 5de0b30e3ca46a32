// Package collector fans one segment out to every enabled adapter and
// gathers the successful translations as candidates. A stalled or failing
// adapter only loses its own slot; it never delays or fails the others.
package collector

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/adapter"
)

// Config tunes candidate collection.
type Config struct {
	// Timeout bounds each adapter call independently.
	Timeout time.Duration

	// Retry is the per-call retry policy applied around every adapter.
	Retry adapter.RetryConfig
}

// Collector dispatches one request to all enabled adapters concurrently.
// The adapter designated as the arbiter backend must not be in the list;
// the caller excludes it when wiring the pipeline.
type Collector struct {
	adapters []adapter.TranslationService
	config   Config
}

// New creates a Collector over an ordered list of adapters. Candidate order
// follows the adapter order, not completion order.
func New(adapters []adapter.TranslationService, config Config) *Collector {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Collector{adapters: adapters, config: config}
}

// Collect runs every adapter under its own timeout and returns the
// candidates that succeeded, ordered by adapter position. Failures are
// logged and dropped; an empty slice means no adapter delivered.
func (c *Collector) Collect(ctx context.Context, req adapter.TranslateRequest) []internal.Candidate {
	slots := make([]*internal.Candidate, len(c.adapters))

	var wg sync.WaitGroup
	for i, svc := range c.adapters {
		wg.Add(1)
		go func(index int, service adapter.TranslationService) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
			defer cancel()

			res := adapter.Retry(callCtx, service, req, c.config.Retry)
			if !res.OK() {
				fmt.Fprintf(os.Stderr, "collector: %s yielded no candidate (%s: %s)\n",
					service.Name(), res.Failure, res.Detail)
				return
			}
			slots[index] = &internal.Candidate{
				AdapterName: service.Name(),
				Text:        res.TranslatedText,
				ObtainedAt:  time.Now(),
			}
		}(i, svc)
	}
	wg.Wait()

	candidates := make([]internal.Candidate, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			candidates = append(candidates, *slot)
		}
	}
	return candidates
}
