package main

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/predator4hack/ai-shark-sub001/internal/company"
)

// companyFunc processes one company.
type companyFunc func(ctx context.Context, companyName string) error

// batchSummary counts the outcomes of a batch.
type batchSummary struct {
	Succeeded int64
	Failed    int64
}

// batchCompanies resolves the companies a batch command should process:
// names read from a CSV/XLSX file when from is set, otherwise every
// company directory under the workspace root that has analysis reports.
func batchCompanies(ws company.Workspace, from string) ([]string, error) {
	if from != "" {
		return company.ReadBatch(from)
	}
	return ws.Companies()
}

// processBatch runs fn for each company with at most concurrency in flight.
// Individual failures are logged and counted; they never abort the batch.
func processBatch(ctx context.Context, companies []string, concurrency int, fn companyFunc) (batchSummary, error) {
	if len(companies) == 0 {
		zap.L().Info("no companies to process")
		return batchSummary{}, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("companies", len(companies)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, name := range companies {
		g.Go(func() error {
			log := zap.L().With(zap.String("company", name))

			if err := fn(gctx, name); err != nil {
				failed.Add(1)
				log.Error("company failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("company complete")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batchSummary{}, eris.Wrap(err, "batch processing")
	}

	sum := batchSummary{Succeeded: succeeded.Load(), Failed: failed.Load()}
	zap.L().Info("batch complete",
		zap.Int64("succeeded", sum.Succeeded),
		zap.Int64("failed", sum.Failed),
	)
	return sum, nil
}
