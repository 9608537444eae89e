package retry

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxElapsed is the wall-clock ceiling applied when a policy leaves
// MaxElapsed unset. It bounds the total duration of one call across all
// attempts, independent of MaxRetries.
const DefaultMaxElapsed = 5 * time.Minute

var validate = validator.New()

// Policy defines retry behavior for a single operation. Construct one with
// DefaultPolicy or BatchPolicy and adjust fields; Validate rejects
// out-of-range values before any operation is invoked.
type Policy struct {
	// MaxRetries is the number of re-attempts after the first try.
	MaxRetries int `validate:"gte=0,lte=100"`

	// InitialDelay seeds the exponential backoff.
	InitialDelay time.Duration `validate:"gte=0s,lte=60s"`

	// MaxDelay caps the computed backoff. Must not be below InitialDelay.
	MaxDelay time.Duration `validate:"gtefield=InitialDelay"`

	// BackoffMultiplier grows the delay between attempts.
	BackoffMultiplier float64 `validate:"gte=1,lte=10"`

	RetryOnRateLimit   bool
	RetryOnServerError bool

	// MaxElapsed bounds the total wall-clock time of one call across all
	// attempts. Zero means DefaultMaxElapsed.
	MaxElapsed time.Duration `validate:"gte=0s"`

	// ShouldRetry, when set, can veto a retry the classifier allowed. It is
	// consulted last and can never force a retry of a non-retryable error.
	ShouldRetry func(err error, attempt int) bool `validate:"-"`
}

// DefaultPolicy returns the standalone defaults: up to 3 retries with
// exponential backoff from 1s to 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:         3,
		InitialDelay:       1 * time.Second,
		MaxDelay:           30 * time.Second,
		BackoffMultiplier:  2.0,
		RetryOnRateLimit:   true,
		RetryOnServerError: true,
		MaxElapsed:         DefaultMaxElapsed,
	}
}

// BatchPolicy reduces the per-unit budget so a single flaky unit cannot stall
// a whole batch.
func BatchPolicy() Policy {
	p := DefaultPolicy()
	p.MaxRetries = 2
	return p
}

// Validate checks every field range eagerly, before the policy is used.
func (p Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid retry policy: %w", err)
	}
	return nil
}
