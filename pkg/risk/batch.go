package risk

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome for one document of a batch. Exactly one of
// Report and Err is set.
type BatchResult struct {
	Document string
	Report   *Report
	Err      error
}

// EvaluateBatch evaluates documents concurrently, at most
// analysis.workers at a time. Results keep the input order and a failed
// document never affects the others.
func (o *Orchestrator) EvaluateBatch(ctx context.Context, docs []*Document) []BatchResult {
	workers := o.store.Current().Config.Analysis.Workers
	if workers <= 0 {
		workers = 1
	}
	o.logger.Info("starting batch evaluation",
		"documents", len(docs),
		"workers", workers,
	)
	start := time.Now()

	results := make([]BatchResult, len(docs))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, doc := range docs {
		g.Go(func() error {
			name := ""
			if doc != nil {
				name = doc.Name
			}
			results[i].Document = name

			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			report, err := o.Evaluate(ctx, doc)
			if err != nil {
				o.logger.Warn("document evaluation failed", "document", name, "error", err)
				results[i].Err = err
				// Other documents keep going.
				return nil
			}
			results[i].Report = report
			return nil
		})
	}
	_ = g.Wait()

	o.logger.Info("batch evaluation complete",
		"documents", len(docs),
		"elapsed", time.Since(start),
	)
	return results
}
