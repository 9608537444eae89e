// Package remote defines the contract between the execution subsystem and the
// operations it runs: the Operation closure, the structured error types the
// classifier relies on, and a small keyed registry for client handles.
package remote

import "context"

// Operation is an opaque unit of work that produces a value or fails.
// The subsystem never looks inside the work itself, only at the error it
// returns. An operation may be invoked more than once when retries apply, so
// it must be safe to re-run.
type Operation[T any] func(ctx context.Context) (T, error)
