package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/constants"
	"github.com/ludo-technologies/asmcluster/internal/logging"
)

// BatchDispatcher exhausts a pair source through an oracle one batch at a
// time. Within a batch up to Threads comparisons run concurrently; a batch
// is handed to the sink only after all of its comparisons finished, and the
// next batch starts only after the sink returned.
type BatchDispatcher struct {
	oracle   domain.Oracle
	opts     domain.DispatchOptions
	progress domain.ProgressManager
	logger   *slog.Logger
}

// NewBatchDispatcher creates a dispatcher. progress and logger may be nil.
func NewBatchDispatcher(oracle domain.Oracle, opts domain.DispatchOptions, progress domain.ProgressManager, logger *slog.Logger) *BatchDispatcher {
	if opts.Threads < 1 {
		opts.Threads = constants.DefaultThreads
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = constants.DefaultChunkSize
	}
	if progress == nil {
		progress = noopProgress{}
	}
	return &BatchDispatcher{oracle: oracle, opts: opts, progress: progress, logger: logging.OrDefault(logger, "dispatcher")}
}

// Dispatch runs every pair of source. Oracle failures are logged and counted
// but never abort the run; a sink failure does. Cancellation is honoured
// between batches, and a batch interrupted by cancellation is discarded.
func (d *BatchDispatcher) Dispatch(ctx context.Context, source domain.PairSource, sink domain.BatchSink) (*domain.DispatchStats, error) {
	total := source.Len()
	stats := &domain.DispatchStats{TotalPairs: total}
	d.progress.Initialize(total)
	defer d.progress.Close()

	d.logger.Info("dispatching comparisons",
		slog.String("pairs", humanize.Comma(int64(total))),
		slog.Int("threads", d.opts.Threads),
		slog.Int("chunk_size", d.opts.ChunkSize))

	done := 0
	batchNo := 0
	for batch := range source.Chunks(d.opts.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		todo := batch
		if d.opts.Skip != nil {
			todo = make([]domain.Pair, 0, len(batch))
			for _, p := range batch {
				if d.opts.Skip(p) {
					stats.Skipped++
					continue
				}
				todo = append(todo, p)
			}
		}

		results := d.runBatch(ctx, todo)
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		ok := make([]domain.PairResult, 0, len(results))
		for _, r := range results {
			if r.OK {
				ok = append(ok, r)
				continue
			}
			stats.Failed++
			d.logger.Warn("comparison failed",
				slog.String("item_a", r.A.Path),
				slog.String("item_b", r.B.Path),
				slog.Any("error", domain.NewOracleError(r.A.Name, r.B.Name, errors.New(r.Message))))
		}

		if err := sink.PersistBatch(ctx, batchNo, ok); err != nil {
			return stats, domain.NewStorageError(fmt.Sprintf("failed to persist batch %d", batchNo), err)
		}
		stats.Succeeded += len(ok)
		stats.Batches++
		batchNo++

		done += len(batch)
		d.progress.Update(done, total)
		d.logger.Debug("batch persisted",
			slog.Int("batch", batchNo),
			slog.Int("results", len(ok)),
			slog.String("done", humanize.Comma(int64(done))))
	}

	return stats, nil
}

// runBatch compares every pair of the batch with a bounded worker pool.
// results[i] belongs to pairs[i].
func (d *BatchDispatcher) runBatch(ctx context.Context, pairs []domain.Pair) []domain.PairResult {
	results := make([]domain.PairResult, len(pairs))
	if len(pairs) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(d.opts.Threads)
	for i, p := range pairs {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = domain.PairResult{A: p.A, B: p.B, Message: "cancelled"}
				return nil
			}
			results[i] = d.oracle.Compare(ctx, p.A, p.B)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// NewDispatcherFactory returns a factory creating dispatchers that share
// oracle, progress and logger
func NewDispatcherFactory(oracle domain.Oracle, progress domain.ProgressManager, logger *slog.Logger) domain.DispatcherFactory {
	return func(opts domain.DispatchOptions) domain.PairDispatcher {
		return NewBatchDispatcher(oracle, opts, progress, logger)
	}
}
