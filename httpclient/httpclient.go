// Package httpclient defines the raw HTTP fetch capability the download
// engine is built against. spec.md §1 treats this as an external
// collaborator: "the raw HTTP client (treated as a capability with a
// GET(url, out_path) -> bytes_written | error contract)". The Getter
// interface is that contract; Default is a runnable net/http-backed
// implementation so the repository works end to end, but it is
// explicitly a replaceable collaborator, not part of the Download
// Engine's own tested surface (SPEC_FULL.md §7).
package httpclient

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/brdata/pipeline/domain"
)

// Result carries the bytes actually written, the MD5 digest accumulated
// while streaming, and the advertised Content-Length. The download
// engine's integrity check compares BytesWritten with ContentLength; it
// does not check MD5Hex against any advertised digest.
type Result struct {
	BytesWritten  int64
	MD5Hex        string
	ContentLength int64 // -1 if the server didn't advertise one
}

// Getter is the injected HTTP capability. Implementations stream the
// response body to outPath in chunks and return once the body is fully
// written (or report an error, leaving outPath's contents undefined —
// callers always write to a .tmp path and only rename on success).
type Getter interface {
	Get(ctx context.Context, url, outPath string) (Result, error)
}

// Default is a net/http-backed Getter with a per-chunk read timeout and
// a total request timeout, per spec.md §4.3 step 2.
type Default struct {
	Client         *http.Client
	ChunkSize      int
	ReadTimeout    time.Duration
	TotalTimeout   time.Duration
}

// NewDefault builds a Default Getter with spec.md §4.3 defaults: 64KiB
// chunks, 60s per-chunk read timeout, 900s total timeout (overridable by
// the caller, which reads DATAFINANCE_NETWORK_TIMEOUT via config).
func NewDefault(totalTimeout time.Duration) *Default {
	return &Default{
		Client:       &http.Client{},
		ChunkSize:    64 * 1024,
		ReadTimeout:  60 * time.Second,
		TotalTimeout: totalTimeout,
	}
}

func (d *Default) Get(ctx context.Context, url, outPath string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.TotalTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, &domain.NetworkError{URL: url, Err: err}
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, &domain.TimeoutError{URL: url, Phase: "total", Timeout: d.TotalTimeout.String()}
		}
		return Result{}, &domain.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Result{}, &domain.NetworkError{URL: url, Err: fmt.Errorf("server error: %s", resp.Status)}
	}
	if resp.StatusCode >= 400 {
		return Result{}, &domain.ValidationError{Field: "url", Reason: fmt.Sprintf("client error: %s", resp.Status)}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return Result{}, &domain.PermissionError{Path: outPath, Err: err}
	}
	defer out.Close()

	hasher := md5.New()
	writer := io.MultiWriter(out, hasher)

	// cancels the request when no chunk arrives within ReadTimeout
	var readTimedOut atomic.Bool
	idle := time.AfterFunc(d.ReadTimeout, func() {
		readTimedOut.Store(true)
		cancel()
	})
	defer idle.Stop()

	buf := make([]byte, d.ChunkSize)
	var written int64
	for {
		select {
		case <-ctx.Done():
			if readTimedOut.Load() {
				return Result{}, &domain.TimeoutError{URL: url, Phase: "read", Timeout: d.ReadTimeout.String()}
			}
			return Result{}, &domain.TimeoutError{URL: url, Phase: "total", Timeout: d.TotalTimeout.String()}
		default:
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			idle.Reset(d.ReadTimeout)
			if _, werr := writer.Write(buf[:n]); werr != nil {
				return Result{}, &domain.NetworkError{URL: url, Err: werr}
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if ctx.Err() != nil {
				continue // reported as a read or total timeout by the check above
			}
			return Result{}, &domain.NetworkError{URL: url, Err: rerr}
		}
	}

	if err := out.Sync(); err != nil {
		return Result{}, &domain.PermissionError{Path: outPath, Err: err}
	}

	return Result{
		BytesWritten:  written,
		MD5Hex:        hex.EncodeToString(hasher.Sum(nil)),
		ContentLength: resp.ContentLength,
	}, nil
}
