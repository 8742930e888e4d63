package processor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-pipeline/constants"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
	"github.com/joseph-ayodele/invoice-pipeline/internal/ingest"
)

// ProcessAll runs every supported document in dir through the pipeline
// concurrently. Documents are independent units of work: one document's
// failure never affects another's, so workers report failures through their
// ProcessingResult instead of the group error. Results are returned in the
// same order as the input listing.
func (c *Coordinator) ProcessAll(ctx context.Context, dir string) ([]entity.ProcessingResult, error) {
	paths, err := ingest.ListSupported(dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(paths) == 0 {
		return nil, nil
	}

	c.Logger.Info("pipeline.batch_start", "dir", dir, "documents", len(paths))

	results := make([]entity.ProcessingResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			res, _ := c.ProcessDocument(ctx, path)
			results[i] = res
			return nil
		})
	}
	// workers never return an error; Wait only observes ctx cancellation
	if err := g.Wait(); err != nil {
		return results, err
	}

	done := 0
	for _, r := range results {
		if r.State == constants.RunStateDone {
			done++
		}
	}
	c.Logger.Info("pipeline.batch_done",
		"documents", len(paths),
		"succeeded", done,
		"failed", len(paths)-done,
	)
	return results, nil
}
