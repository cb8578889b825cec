package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/brdata/pipeline/domain"
	"github.com/cenkalti/backoff/v4"
)

func TestIsRetryableTypedErrors(t *testing.T) {
	if !IsRetryable(&domain.NetworkError{URL: "x", Err: errors.New("boom")}) {
		t.Error("NetworkError should be retryable")
	}
	if !IsRetryable(&domain.TimeoutError{URL: "x"}) {
		t.Error("TimeoutError should be retryable")
	}
	if IsRetryable(&domain.ValidationError{Field: "x", Reason: "bad"}) {
		t.Error("ValidationError should not be retryable")
	}
	if IsRetryable(&domain.PermissionError{Path: "x", Err: errors.New("denied")}) {
		t.Error("PermissionError should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil error should not be retryable")
	}
}

func TestIsRetryableSubstringFallback(t *testing.T) {
	if !IsRetryable(errors.New("dial tcp: connection refused")) {
		t.Error("plain connection-refused error should be retryable via substring fallback")
	}
	if !IsRetryable(errors.New("request TIMEOUT waiting for response")) {
		t.Error("substring matching should be case-insensitive")
	}
	if IsRetryable(errors.New("invalid argument")) {
		t.Error("unrecognized plain error should not be retryable")
	}
}

func TestStrategyBackoff(t *testing.T) {
	s := DefaultStrategy()
	if got := s.Backoff(0); got != time.Second {
		t.Errorf("Backoff(0) = %v, want %v", got, time.Second)
	}
	if got := s.Backoff(1); got != 2*time.Second {
		t.Errorf("Backoff(1) = %v, want %v", got, 2*time.Second)
	}
	if got := s.Backoff(2); got != 4*time.Second {
		t.Errorf("Backoff(2) = %v, want %v", got, 4*time.Second)
	}
	if got := s.Backoff(100); got != s.Max {
		t.Errorf("Backoff(100) = %v, want capped at %v", got, s.Max)
	}
}

func TestClassifyWrapsNonRetryable(t *testing.T) {
	err := &domain.ValidationError{Field: "x", Reason: "bad"}
	classified := Classify(err)
	var perm *backoff.PermanentError
	if !errors.As(classified, &perm) {
		t.Fatalf("expected a *backoff.PermanentError, got %T", classified)
	}
}

func TestClassifyPassesThroughRetryable(t *testing.T) {
	err := &domain.NetworkError{URL: "x", Err: errors.New("boom")}
	classified := Classify(err)
	var perm *backoff.PermanentError
	if errors.As(classified, &perm) {
		t.Fatal("retryable error must not be wrapped as permanent")
	}
}

func TestClassifyNil(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatal("Classify(nil) must return nil")
	}
}

func TestNewExponentialBackOffAttemptCount(t *testing.T) {
	s := Strategy{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2}
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return errors.New("always fails")
	}, s.NewExponentialBackOff(5))
	if err == nil {
		t.Fatal("expected the always-failing operation to return an error")
	}
	if attempts != 5 {
		t.Errorf("attempts = %d, want exactly 5 for maxRetries=5", attempts)
	}
}
