package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/subtran/internal"
)

// FileJob is one subtitle file's worth of segments for a bulk run.
type FileJob struct {
	Name     string
	Segments []internal.Segment
}

// RunBulk processes several files concurrently while keeping each file's
// segments strictly sequential. consume is called once per outcome and may
// be invoked from multiple goroutines; it receives the file name alongside
// the outcome. The first consume error cancels the remaining files at their
// next segment boundary.
func (p *Pipeline) RunBulk(ctx context.Context, jobs []FileJob, workers int, consume func(file string, outcome internal.TranslationOutcome) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			for outcome := range p.Run(ctx, job.Segments) {
				if err := consume(job.Name, outcome); err != nil {
					return err
				}
			}
			return ctx.Err()
		})
	}
	return g.Wait()
}
