package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BatchResult aggregates the per-item outcomes of one job run.
type BatchResult struct {
	Job       string   `json:"job"`
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

func newBatchResult(job string) *BatchResult {
	return &BatchResult{Job: job}
}

func (r *BatchResult) merge(other *BatchResult) {
	if other == nil {
		return
	}
	r.Processed += other.Processed
	r.Succeeded += other.Succeeded
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

func (r *BatchResult) Fields() logrus.Fields {
	return logrus.Fields{
		"job":       r.Job,
		"processed": r.Processed,
		"succeeded": r.Succeeded,
		"skipped":   r.Skipped,
		"failed":    r.Failed,
	}
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeAbort
)

// classify maps an item error onto the error taxonomy: missing or
// wrong-state records and duplicate period charges are skipped, store
// outages abort the run, everything else fails the item only.
func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeSucceeded
	case repositories.IsUnavailable(err):
		return outcomeAbort
	case errors.Is(err, utils.ErrSkipped), errors.Is(err, utils.ErrDuplicatePeriodCharge):
		return outcomeSkipped
	default:
		return outcomeFailed
	}
}

func skipf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", utils.ErrSkipped, fmt.Sprintf(format, args...))
}

// processBatch runs handle for every item on a bounded pool of workers.
// Items with the same key go to the same worker and keep their query
// order. The first store outage cancels the remaining work and is returned;
// other item errors are counted and logged.
func processBatch[T any](
	ctx context.Context,
	job string,
	items []T,
	workers int,
	keyOf func(T) string,
	describe func(T) logrus.Fields,
	handle func(context.Context, T) error,
) (*BatchResult, error) {
	res := newBatchResult(job)
	if len(items) == 0 {
		return res, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	queues := make([][]T, workers)
	for _, it := range items {
		idx := partition(keyOf(it), workers)
		queues[idx] = append(queues[idx], it)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, queue := range queues {
		if len(queue) == 0 {
			continue
		}
		g.Go(func() error {
			for _, it := range queue {
				if err := gctx.Err(); err != nil {
					return err
				}
				err := handle(gctx, it)
				o := classify(err)

				mu.Lock()
				res.Processed++
				switch o {
				case outcomeSucceeded:
					res.Succeeded++
				case outcomeSkipped:
					res.Skipped++
				case outcomeFailed, outcomeAbort:
					res.Failed++
					res.Errors = append(res.Errors, err.Error())
				}
				mu.Unlock()

				entry := utils.Logger.WithField("job", job).WithFields(describe(it))
				switch o {
				case outcomeSkipped:
					entry.WithError(err).Info("Skipping record")
				case outcomeFailed:
					entry.WithError(err).Error("Failed to process record; continuing")
				case outcomeAbort:
					entry.WithError(err).Error("Store unavailable; aborting run")
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("%s aborted: %w", job, err)
	}
	return res, nil
}

// processTimePages walks a (created_at, id) keyset listing page by page,
// running each page through processBatch before fetching the next. It
// stops at the first short page or aborted batch.
func processTimePages[T any](
	ctx context.Context,
	job string,
	workers, limit int,
	fetch func(context.Context, repositories.TimePage) ([]T, error),
	cursorOf func(T) repositories.Cursor,
	keyOf func(T) string,
	describe func(T) logrus.Fields,
	handle func(context.Context, T) error,
) (*BatchResult, error) {
	total := newBatchResult(job)
	page := repositories.TimePage{Limit: limit}
	if page.Limit <= 0 {
		page.Limit = constants.DefaultBatchSize
	}
	for {
		items, err := fetch(ctx, page)
		if err != nil {
			return total, err
		}
		res, err := processBatch(ctx, job, items, workers, keyOf, describe, handle)
		total.merge(res)
		if err != nil {
			return total, err
		}
		if len(items) < page.Limit {
			return total, nil
		}
		last := cursorOf(items[len(items)-1])
		page.After = &last
	}
}

func partition(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
