package domain

import "fmt"

// ValidationError covers invalid document types, invalid asset classes,
// out-of-range or misordered years, and empty selection lists. Raised by
// validators before any I/O; never retryable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NetworkError covers DNS, connection, TLS, or HTTP 5xx failures, or a
// read aborted mid-body. Always retryable.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError covers a per-read or total timeout. Always retryable.
type TimeoutError struct {
	URL     string
	Phase   string // "read" or "total"
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout (%s) fetching %s", e.Phase, e.Timeout, e.URL)
}

// IntegrityError covers a size or digest mismatch after a completed
// download. Retryable — the next attempt re-fetches.
type IntegrityError struct {
	Path     string
	Expected string
	Got      string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

// PermissionError means the destination is not writable. Terminal for the
// enclosing batch.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied writing %s: %v", e.Path, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// DiskFullError means the destination device is out of space. Terminal
// for the enclosing batch.
type DiskFullError struct {
	Path      string
	NeededMB  float64
	AvailMB   float64
}

func (e *DiskFullError) Error() string {
	return fmt.Sprintf("insufficient disk space for %s: need ~%.1fMB, have %.1fMB", e.Path, e.NeededMB, e.AvailMB)
}

// CorruptedZipError means the ZIP cannot be opened or enumerated.
// Per-file terminal.
type CorruptedZipError struct {
	Path string
	Err  error
}

func (e *CorruptedZipError) Error() string {
	return fmt.Sprintf("corrupted zip %s: %v", e.Path, e.Err)
}

func (e *CorruptedZipError) Unwrap() error { return e.Err }

// ExtractionError is the aggregate error raised by the atomic extractor
// when at least one inner CSV failed and rollback completed. Per-ZIP
// terminal.
type ExtractionError struct {
	ZipPath string
	Reasons map[string]string // entry name -> reason
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction of %s rolled back: %d entries failed (%v)", e.ZipPath, len(e.Reasons), e.Reasons)
}
