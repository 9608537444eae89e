package batch

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/bantoinese83/gemini-exec/pkg/remote"
	"github.com/bantoinese83/gemini-exec/pkg/retry"
)

// indexOps builds n operations that each return their own index after a
// random short delay, so completion order differs from input order.
func indexOps(n int) []remote.Operation[int] {
	ops := make([]remote.Operation[int], n)
	for i := range ops {
		ops[i] = func(ctx context.Context) (int, error) {
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			return i, nil
		}
	}
	return ops
}

func fastRetryPolicy() *retry.Policy {
	p := retry.BatchPolicy()
	p.InitialDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	return &p
}

func TestExecute_PreservesOrder(t *testing.T) {
	const n = 20
	results, err := Execute(context.Background(), indexOps(n), Config{Concurrency: 4})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != n {
		t.Fatalf("got %d results, want %d", len(results), n)
	}
	for i, v := range results {
		if v != i {
			t.Errorf("results[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestExecute_ConcurrencyBound(t *testing.T) {
	const n, bound = 12, 3

	var inflight, peak atomic.Int64
	ops := make([]remote.Operation[int], n)
	for i := range ops {
		ops[i] = func(ctx context.Context) (int, error) {
			cur := inflight.Add(1)
			defer inflight.Add(-1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			return i, nil
		}
	}

	if _, err := Execute(context.Background(), ops, Config{Concurrency: bound}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := peak.Load(); got > bound {
		t.Errorf("peak concurrency %d exceeds bound %d", got, bound)
	}
}

func TestExecute_FailurePropagatesIndex(t *testing.T) {
	apiErr := remote.NewAPIError(400, "Bad Request")
	ops := []remote.Operation[int]{
		func(ctx context.Context) (int, error) { return 0, nil },
		func(ctx context.Context) (int, error) { return 0, apiErr },
		func(ctx context.Context) (int, error) { return 2, nil },
	}

	_, err := Execute(context.Background(), ops, Config{Concurrency: 2})
	if err == nil {
		t.Fatal("expected an error")
	}

	var batchErr *Error
	if !errors.As(err, &batchErr) {
		t.Fatalf("got %T, want *batch.Error", err)
	}
	if batchErr.Index != 1 {
		t.Errorf("failure index = %d, want 1", batchErr.Index)
	}
	if _, ok := remote.AsAPIError(err); !ok {
		t.Errorf("original APIError lost in %v", err)
	}
}

func TestExecute_AbandonsRemainingChunks(t *testing.T) {
	var calls [4]atomic.Int64
	fail := remote.NewAPIError(404, "gone")
	ops := make([]remote.Operation[int], 4)
	for i := range ops {
		ops[i] = func(ctx context.Context) (int, error) {
			calls[i].Add(1)
			if i == 1 {
				return 0, fail
			}
			return i, nil
		}
	}

	if _, err := Execute(context.Background(), ops, Config{Concurrency: 2}); err == nil {
		t.Fatal("expected an error")
	}
	// Chunk 0 (ops 0, 1) settles; chunk 1 (ops 2, 3) never starts.
	if calls[0].Load() != 1 || calls[1].Load() != 1 {
		t.Errorf("first chunk invocations = %d, %d, want 1, 1", calls[0].Load(), calls[1].Load())
	}
	if calls[2].Load() != 0 || calls[3].Load() != 0 {
		t.Errorf("second chunk invoked (%d, %d), want never", calls[2].Load(), calls[3].Load())
	}
}

func TestExecute_ProgressReported(t *testing.T) {
	var mu sync.Mutex
	var seen [][2]int
	cfg := Config{
		Concurrency: 2,
		OnProgress: func(completed, total int) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, [2]int{completed, total})
		},
	}

	if _, err := Execute(context.Background(), indexOps(5), cfg); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	want := [][2]int{{2, 5}, {4, 5}, {5, 5}}
	if len(seen) != len(want) {
		t.Fatalf("got %d progress reports %v, want %d", len(seen), seen, len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestExecute_ProgressPanicIsolated(t *testing.T) {
	cfg := Config{
		Concurrency: 2,
		OnProgress: func(completed, total int) {
			panic("observer blew up")
		},
	}

	results, err := Execute(context.Background(), indexOps(6), cfg)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for i, v := range results {
		if v != i {
			t.Errorf("results[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestExecute_RetryWrapsEachUnit(t *testing.T) {
	var calls atomic.Int64
	ops := []remote.Operation[string]{
		func(ctx context.Context) (string, error) {
			if calls.Add(1) <= 2 {
				return "", remote.NewAPIError(500, "flaky")
			}
			return "ok", nil
		},
	}

	cfg := Config{Concurrency: 1, Retry: true, Policy: fastRetryPolicy()}
	results, err := Execute(context.Background(), ops, cfg)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if results[0] != "ok" {
		t.Errorf("results[0] = %q, want %q", results[0], "ok")
	}
	if calls.Load() != 3 {
		t.Errorf("operation invoked %d times, want 3", calls.Load())
	}
}

func TestExecute_EmptyInput(t *testing.T) {
	results, err := Execute[string](context.Background(), nil, Config{Concurrency: 3})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestExecute_InvalidConfig(t *testing.T) {
	called := false
	ops := []remote.Operation[int]{
		func(ctx context.Context) (int, error) {
			called = true
			return 0, nil
		},
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero concurrency", Config{Concurrency: 0}},
		{"excessive concurrency", Config{Concurrency: 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Execute(context.Background(), ops, tt.cfg); err == nil {
				t.Error("expected a config error")
			}
			if called {
				t.Error("operation invoked despite invalid config")
			}
		})
	}
}

func TestExecuteSettled_PartialFailures(t *testing.T) {
	fail := remote.NewAPIError(404, "gone")
	ops := []remote.Operation[int]{
		func(ctx context.Context) (int, error) { return 10, nil },
		func(ctx context.Context) (int, error) { return 0, fail },
		func(ctx context.Context) (int, error) { return 30, nil },
	}

	results, err := ExecuteSettled(context.Background(), ops, Config{Concurrency: 2})
	if err == nil {
		t.Fatal("expected an aggregate error")
	}
	if len(results) != len(ops) {
		t.Fatalf("got %d results, want %d", len(results), len(ops))
	}

	if results[0].Err != nil || results[0].Value != 10 {
		t.Errorf("results[0] = %+v, want value 10", results[0])
	}
	if results[1].Err == nil {
		t.Error("results[1].Err = nil, want the failure")
	}
	if results[2].Err != nil || results[2].Value != 30 {
		t.Errorf("results[2] = %+v, want value 30", results[2])
	}

	failures := multierr.Errors(err)
	if len(failures) != 1 {
		t.Fatalf("aggregate holds %d errors, want 1", len(failures))
	}
	var batchErr *Error
	if !errors.As(failures[0], &batchErr) || batchErr.Index != 1 {
		t.Errorf("aggregate error = %v, want *batch.Error with index 1", failures[0])
	}
}

func TestExecuteSettled_AllFail(t *testing.T) {
	const n = 4
	ops := make([]remote.Operation[int], n)
	for i := range ops {
		ops[i] = func(ctx context.Context) (int, error) {
			return 0, remote.NewAPIError(500, "down")
		}
	}

	results, err := ExecuteSettled(context.Background(), ops, Config{Concurrency: 2})
	if err == nil {
		t.Fatal("expected an aggregate error")
	}
	if len(results) != n {
		t.Fatalf("got %d results, want %d", len(results), n)
	}
	if got := len(multierr.Errors(err)); got != n {
		t.Errorf("aggregate holds %d errors, want %d", got, n)
	}
}
