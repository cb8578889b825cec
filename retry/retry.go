// Package retry implements the Retry Strategy (spec.md §4.2): error
// classification and exponential backoff shared by the download engine
// and any other subsystem that crosses a flaky boundary.
//
// Backoff delays are computed by github.com/cenkalti/backoff/v4's
// ExponentialBackOff, the library the wider example pack reaches for
// this concern (grounded on Andrew50-peripheral's go.mod and several
// pack manifests — moby-moby, AKJUS-bsc-erigon, GoogleContainerTools-skaffold).
// Terminal errors are marked with backoff.Permanent so a caller driving
// the loop through backoff.Retry stops immediately instead of exhausting
// retries on a non-retryable failure.
package retry

import (
	"strings"
	"time"

	"github.com/brdata/pipeline/domain"
	"github.com/cenkalti/backoff/v4"
)

var retryableSubstrings = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"connection aborted",
	"temporarily",
	"unavailable",
	"try again",
}

// IsRetryable classifies an error per spec.md §4.2. Typed domain errors
// are classified directly; anything else (including errors crossing the
// httpclient.Getter boundary, which only promises a plain error) falls
// back to case-insensitive substring matching, the same approach
// 453536d0_Zer0C0d3r-TeraFetch and bodaay-HuggingFaceModelDownloader use
// for errors they don't control the type of.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch err.(type) {
	case *domain.NetworkError, *domain.TimeoutError, *domain.IntegrityError:
		return true
	case *domain.ValidationError, *domain.PermissionError, *domain.DiskFullError:
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Strategy configures backoff defaults (spec.md §4.2): initial=1s,
// max=60s, multiplier=2.
type Strategy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func DefaultStrategy() Strategy {
	return Strategy{Initial: time.Second, Max: 60 * time.Second, Multiplier: 2}
}

// Backoff returns min(initial*multiplier^retryCount, max), per spec.md
// §4.2. retryCount is 0-indexed (first retry => retryCount=0).
func (s Strategy) Backoff(retryCount int) time.Duration {
	d := float64(s.Initial)
	for i := 0; i < retryCount; i++ {
		d *= s.Multiplier
		if time.Duration(d) >= s.Max {
			return s.Max
		}
	}
	result := time.Duration(d)
	if result > s.Max {
		return s.Max
	}
	if result < s.Initial {
		return s.Initial
	}
	return result
}

// NewExponentialBackOff builds a cenkalti/backoff ExponentialBackOff
// matching Strategy's parameters, for callers that want to drive a retry
// loop through backoff.Retry / backoff.RetryNotify instead of rolling
// their own sleep loop (used by the download engine's per-file attempt
// loop).
func (s Strategy) NewExponentialBackOff(maxRetries int) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.Initial
	eb.Multiplier = s.Multiplier
	eb.MaxInterval = s.Max
	eb.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not elapsed time
	eb.RandomizationFactor = 0.1 // documented full-jitter +-10%, per spec.md §4.2
	// backoff.WithMaxRetries grants maxRetries calls to NextBackOff on top
	// of the initial attempt backoff.Retry always makes, so maxRetries
	// total attempts (spec.md §4.3 "fails on all five attempts") needs
	// maxRetries-1 here, not maxRetries.
	retries := maxRetries - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(eb, uint64(retries))
}

// Classify wraps err as a backoff.PermanentError when it is not
// retryable, so backoff.Retry stops immediately instead of exhausting
// the retry budget on a terminal failure.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if !IsRetryable(err) {
		return backoff.Permanent(err)
	}
	return err
}
