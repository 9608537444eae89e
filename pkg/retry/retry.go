// Package retry runs a single remote operation with classified, bounded
// retries: exponential backoff with jitter, an attempt limit, and a
// wall-clock ceiling independent of the attempt count.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/bantoinese83/gemini-exec/internal/metrics"
	"github.com/bantoinese83/gemini-exec/pkg/classify"
	"github.com/bantoinese83/gemini-exec/pkg/remote"
)

// ErrBudgetExhausted reports that the wall-clock ceiling for one call was
// reached before the attempt limit. Distinguishable from a remote rejection
// so operators can tell infrastructure timeouts apart from logical failures.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// jitterFraction is the symmetric perturbation applied to each delay.
const jitterFraction = 0.2

// Do invokes op, retrying classified-transient failures per p. It returns the
// operation's value on success, the original error on a non-retryable
// failure, and a wrapped last error once attempts or the wall-clock budget
// run out. Attempts are strictly sequential; total attempts never exceed
// p.MaxRetries + 1.
func Do[T any](ctx context.Context, op remote.Operation[T], p Policy) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, err
	}

	opts := classify.Options{
		RetryOnRateLimit:   p.RetryOnRateLimit,
		RetryOnServerError: p.RetryOnServerError,
	}
	ceiling := p.MaxElapsed
	if ceiling == 0 {
		ceiling = DefaultMaxElapsed
	}

	start := time.Now()

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			metrics.AttemptsTotal.WithLabelValues("success").Inc()
			return result, nil
		}
		metrics.AttemptsTotal.WithLabelValues("failure").Inc()

		retryable := classify.Classify(err, opts).Retryable
		if retryable && p.ShouldRetry != nil && !p.ShouldRetry(err, attempt) {
			// The predicate can only veto, never force.
			retryable = false
		}
		if !retryable {
			return zero, err
		}
		if attempt == p.MaxRetries {
			metrics.RetriesExhaustedTotal.Inc()
			return zero, fmt.Errorf("failed after %d attempts: %w", attempt+1, err)
		}

		delay := jitter(backoffDelay(attempt, p))
		if elapsed := time.Since(start); elapsed+delay > ceiling {
			metrics.BudgetExhaustedTotal.Inc()
			return zero, fmt.Errorf("%w after %d attempts in %s: %w",
				ErrBudgetExhausted, attempt+1, elapsed.Round(time.Millisecond), err)
		}

		metrics.BackoffSeconds.Observe(delay.Seconds())
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoffDelay computes the pre-jitter delay after the given attempt,
// capped at MaxDelay.
func backoffDelay(attempt int, p Policy) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// jitter perturbs d by up to ±20% so many concurrent callers do not retry in
// lockstep.
func jitter(d time.Duration) time.Duration {
	shifted := float64(d) + float64(d)*jitterFraction*(rand.Float64()*2-1)
	if shifted < 0 {
		return 0
	}
	return time.Duration(shifted)
}
