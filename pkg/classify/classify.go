// Package classify maps raw operation errors to retry judgments.
package classify

import (
	"context"
	"errors"
	"strings"

	"github.com/bantoinese83/gemini-exec/pkg/remote"
)

// ErrorKind identifies the failure category of a classified error.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindRateLimited  ErrorKind = "rate_limited"
	KindServerError  ErrorKind = "server_error"
	KindNetworkError ErrorKind = "network_error"
	KindClientError  ErrorKind = "client_error"
	KindUnknown      ErrorKind = "unknown"
)

// Options carry the policy flags that decide whether transient kinds retry.
type Options struct {
	RetryOnRateLimit   bool
	RetryOnServerError bool
}

// Classification is the judgment for a single error.
type Classification struct {
	Kind      ErrorKind
	Retryable bool
}

// networkVocab covers transport failures that surface without a status code.
var networkVocab = []string{
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"connection closed",
	"no such host",
	"dns",
	"broken pipe",
	"network is unreachable",
	"tls handshake",
	"unexpected eof",
}

// Classify determines the kind and retryability of err. Rules, in priority
// order: validation errors never retry; a structural status code beats any
// message text (429 rate limit, 5xx server, other 4xx client); network
// vocabulary in the message counts as a transient server-side failure; and
// anything unclassifiable is never retried.
func Classify(err error, opts Options) Classification {
	if err == nil {
		return Classification{Kind: KindUnknown}
	}

	// Cancellation is never retryable, regardless of how it surfaces.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Classification{Kind: KindUnknown}
	}

	if remote.IsValidation(err) {
		return Classification{Kind: KindValidation}
	}

	if apiErr, ok := remote.AsAPIError(err); ok {
		switch {
		case apiErr.StatusCode == 429:
			return Classification{Kind: KindRateLimited, Retryable: opts.RetryOnRateLimit}
		case apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599:
			return Classification{Kind: KindServerError, Retryable: opts.RetryOnServerError}
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return Classification{Kind: KindClientError}
		default:
			return Classification{Kind: KindUnknown}
		}
	}

	s := strings.ToLower(err.Error())
	for _, word := range networkVocab {
		if strings.Contains(s, word) {
			// Network failures are treated like transient server failures.
			return Classification{Kind: KindNetworkError, Retryable: opts.RetryOnServerError}
		}
	}

	return Classification{Kind: KindUnknown}
}
