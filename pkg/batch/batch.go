// Package batch runs many remote operations with bounded concurrency.
// Operations are partitioned into sequential chunks of Config.Concurrency;
// a chunk's operations race freely, chunks never overlap, and results always
// come back in input order.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/bantoinese83/gemini-exec/internal/metrics"
	"github.com/bantoinese83/gemini-exec/pkg/remote"
	"github.com/bantoinese83/gemini-exec/pkg/retry"
)

var validate = validator.New()

// ProgressFunc receives (completed, total) after each chunk settles. It is
// best-effort: a panicking callback is logged and never fails the batch.
type ProgressFunc func(completed, total int)

// Config defines batch behavior. Validate rejects out-of-range values before
// any operation is invoked.
type Config struct {
	// Concurrency bounds simultaneously in-flight operations.
	Concurrency int `validate:"gte=1,lte=100"`

	// Retry wraps each unit in the retry executor.
	Retry bool

	// Policy overrides the per-unit retry policy when Retry is set.
	// Nil means retry.BatchPolicy().
	Policy *retry.Policy `validate:"-"`

	OnProgress ProgressFunc `validate:"-"`
}

// DefaultConfig returns the batch defaults: 5 concurrent units, retries on.
func DefaultConfig() Config {
	return Config{Concurrency: 5, Retry: true}
}

// Validate checks the configuration eagerly.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid batch config: %w", err)
	}
	if c.Policy != nil {
		if err := c.Policy.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Error annotates an operation failure with its input index so callers can
// correlate the failure to its input.
type Error struct {
	Index int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("operation %d: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is one settled outcome in partial-success mode.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Execute runs ops and returns their values in input order. Any operation
// that still fails after its own retries fails the whole batch: the current
// chunk settles fully, remaining chunks never start, and the first captured
// failure is returned as a *Error carrying its originating index. Partial
// results are never silently dropped into a success.
func Execute[T any](ctx context.Context, ops []remote.Operation[T], cfg Config) ([]T, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	results := make([]T, len(ops))
	if len(ops) == 0 {
		return results, nil
	}

	r := newRun[T](cfg, len(ops))
	for start := 0; start < len(ops); start += cfg.Concurrency {
		end := min(start+cfg.Concurrency, len(ops))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				v, err := r.invoke(ctx, ops[i])
				if err != nil {
					return &Error{Index: i, Err: err}
				}
				// Each task owns its pre-reserved slot; no lock needed.
				results[i] = v
				return nil
			})
		}
		err := g.Wait()
		r.reportProgress(end)
		if err != nil {
			metrics.BatchesTotal.WithLabelValues("failure").Inc()
			r.log.Warn("Batch failed", "settled", end, "error", err)
			return nil, err
		}
	}

	metrics.BatchesTotal.WithLabelValues("success").Inc()
	return results, nil
}

// ExecuteSettled runs every chunk regardless of failures and returns one
// Result per input operation, in input order. The returned error aggregates
// all failures and is nil only when every operation succeeded.
func ExecuteSettled[T any](ctx context.Context, ops []remote.Operation[T], cfg Config) ([]Result[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	results := make([]Result[T], len(ops))
	if len(ops) == 0 {
		return results, nil
	}

	r := newRun[T](cfg, len(ops))
	for start := 0; start < len(ops); start += cfg.Concurrency {
		end := min(start+cfg.Concurrency, len(ops))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := r.invoke(ctx, ops[i])
				results[i] = Result[T]{Index: i, Value: v, Err: err}
			}()
		}
		wg.Wait()
		r.reportProgress(end)
	}

	var errs error
	for i := range results {
		if results[i].Err != nil {
			errs = multierr.Append(errs, &Error{Index: i, Err: results[i].Err})
		}
	}
	if errs != nil {
		metrics.BatchesTotal.WithLabelValues("partial").Inc()
	} else {
		metrics.BatchesTotal.WithLabelValues("success").Inc()
	}
	return results, errs
}

// run carries per-batch state shared by both execution modes.
type run[T any] struct {
	cfg    Config
	policy retry.Policy
	total  int
	log    *slog.Logger
}

func newRun[T any](cfg Config, total int) *run[T] {
	policy := retry.BatchPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	metrics.BatchSize.Observe(float64(total))
	return &run[T]{
		cfg:    cfg,
		policy: policy,
		total:  total,
		log: slog.Default().With(
			"component", "batch",
			"run_id", uuid.New().String(),
			"total", total,
		),
	}
}

// invoke runs one unit, wrapped in the retry executor when enabled.
func (r *run[T]) invoke(ctx context.Context, op remote.Operation[T]) (T, error) {
	metrics.InflightOperations.Inc()
	defer metrics.InflightOperations.Dec()
	start := time.Now()
	defer func() {
		metrics.OperationSeconds.Observe(time.Since(start).Seconds())
	}()

	if r.cfg.Retry {
		return retry.Do(ctx, op, r.policy)
	}
	return op(ctx)
}

// reportProgress never lets a misbehaving callback take the batch down.
func (r *run[T]) reportProgress(completed int) {
	if r.cfg.OnProgress == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("Progress callback panicked", "panic", rec)
		}
	}()
	r.cfg.OnProgress(completed, r.total)
}
