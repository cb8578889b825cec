// Package download implements the Parallel Download Engine (spec.md
// §4.3): bounded-concurrency fetch of every URL in a DownloadPlan, with
// exponential-backoff retries, integrity verification, and atomic file
// placement.
//
// Grounded on two other_examples/ downloaders: the channel-as-semaphore
// concurrency limiter and atomic tmp-then-rename placement come from
// bodaay-HuggingFaceModelDownloader's Download(); the
// isRecoverable/backoff retry-loop shape comes from
// Zer0C0d3r-TeraFetch's executeDownloadWithRetry. The worker-pool
// dispatch structure (bounded channel of work items drained by N
// workers, a mutex-guarded result collector) follows the teacher's
// analysis/parallel_static.go processRequestsConcurrentlyParallel.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/brdata/pipeline/domain"
	"github.com/brdata/pipeline/httpclient"
	"github.com/brdata/pipeline/resource"
	"github.com/brdata/pipeline/retry"
	"github.com/cenkalti/backoff/v4"
)

// Config controls the engine's concurrency and retry behavior.
type Config struct {
	MaxWorkers int           // default_max per spec.md §4.3
	MaxRetries int           // default 5
	Strategy   retry.Strategy
}

func DefaultConfig() Config {
	return Config{MaxWorkers: 8, MaxRetries: 5, Strategy: retry.DefaultStrategy()}
}

// Engine runs a DownloadPlan to completion.
type Engine struct {
	cfg     Config
	getter  httpclient.Getter
	monitor *resource.Monitor
}

func NewEngine(cfg Config, getter httpclient.Getter) *Engine {
	return &Engine{cfg: cfg, getter: getter, monitor: resource.Get()}
}

type workItem struct {
	assignment domain.DownloadAssignment
	targetPath string
}

// Download fetches every URL in plan into destinationDir, per spec.md
// §4.3's public contract. It never returns an error for per-URL
// failures (those land in the returned DownloadOutcome); it returns an
// error only for a batch-fatal condition (disk-full, permission-denied)
// that aborted the whole run.
func (e *Engine) Download(ctx context.Context, plan domain.DownloadPlan, destinationDir string) (*domain.DownloadOutcome, error) {
	outcome := domain.NewDownloadOutcome()

	items := make([]workItem, 0, plan.TotalURLs())
	for docType, assignments := range plan.Assignments {
		docDir := filepath.Join(destinationDir, docType)
		if err := os.MkdirAll(docDir, 0o755); err != nil {
			return nil, &domain.PermissionError{Path: docDir, Err: err}
		}
		for _, a := range assignments {
			items = append(items, workItem{assignment: a, targetPath: filepath.Join(docDir, a.LocalFilename)})
		}
	}

	if len(items) == 0 {
		return outcome, nil
	}

	workerCount := e.monitor.SafeWorkerCount(e.cfg.MaxWorkers)
	if workerCount > len(items) {
		workerCount = len(items)
	}

	// in-flight target-path dedup, grounded on the teacher's haxmap
	// Get/Set/Del usage in sliding/sliding_window.go (a concurrent map
	// keyed by a hashable scalar, sized generously up front). DownloadPlan
	// assignments normally have distinct targets; this guards the
	// degenerate case of a caller-supplied plan with a duplicate.
	inFlight := haxmap.New[string, bool](uintptr(len(items)))

	itemChan := make(chan workItem, len(items))
	for _, it := range items {
		itemChan <- it
	}
	close(itemChan)

	type outcomeMsg struct {
		item workItem
		err  error // nil on success; a *domain.DiskFullError/*domain.PermissionError aborts the batch
	}
	resultChan := make(chan outcomeMsg, len(items))

	var wg sync.WaitGroup
	fatal := make(chan error, 1)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemChan {
				select {
				case <-runCtx.Done():
					return
				default:
				}
				if _, claimed := inFlight.Get(item.targetPath); claimed {
					continue // another worker already claimed this exact target
				}
				inFlight.Set(item.targetPath, true)
				err := e.processOne(runCtx, item)
				if isFatal(err) {
					select {
					case fatal <- err:
						cancel()
					default:
					}
				}
				resultChan <- outcomeMsg{item: item, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for msg := range resultChan {
		if msg.err == nil {
			outcome.RecordSuccess(msg.item.assignment.DocType, msg.item.assignment.Year)
		} else if !isFatal(msg.err) {
			id := fmt.Sprintf("%s/%d", msg.item.assignment.DocType, msg.item.assignment.Year)
			outcome.RecordFailure(id, msg.err.Error())
		}
	}

	select {
	case err := <-fatal:
		return outcome, err
	default:
	}
	return outcome, nil
}

func isFatal(err error) bool {
	if err == nil {
		return false
	}
	switch err.(type) {
	case *domain.DiskFullError, *domain.PermissionError:
		return true
	}
	return false
}

// processOne runs the full per-file protocol of spec.md §4.3: skip if
// already present and valid, stream to a .tmp path, verify, rename,
// retrying retryable failures with backoff.
func (e *Engine) processOne(ctx context.Context, item workItem) error {
	if ok, _ := e.alreadyValid(item); ok {
		return nil
	}

	if e.monitor.CircuitBreakerActive() {
		e.monitor.WaitFor(ctx, domain.StateCritical, e.monitor.CooldownDuration())
	}

	tmpPath := item.targetPath + ".tmp"
	operation := func() error {
		return retry.Classify(e.attempt(ctx, item, tmpPath))
	}

	err := backoff.Retry(operation, e.cfg.Strategy.NewExponentialBackOff(e.cfg.MaxRetries))
	if err != nil {
		os.Remove(tmpPath)
		return unwrapPermanent(err)
	}
	return nil
}

func (e *Engine) attempt(ctx context.Context, item workItem, tmpPath string) error {
	res, err := e.getter.Get(ctx, item.assignment.URL, tmpPath)
	if err != nil {
		return err
	}

	if res.ContentLength >= 0 && res.BytesWritten != res.ContentLength {
		os.Remove(tmpPath)
		return &domain.IntegrityError{
			Path:     item.targetPath,
			Expected: fmt.Sprintf("%d bytes", res.ContentLength),
			Got:      fmt.Sprintf("%d bytes", res.BytesWritten),
		}
	}

	info, statErr := os.Stat(tmpPath)
	if statErr == nil && info.Size() == 0 {
		os.Remove(tmpPath)
		return &domain.IntegrityError{Path: item.targetPath, Expected: "non-empty body", Got: "0 bytes"}
	}

	if err := os.Rename(tmpPath, item.targetPath); err != nil {
		if os.IsPermission(err) {
			return &domain.PermissionError{Path: item.targetPath, Err: err}
		}
		return err
	}
	return nil
}

// alreadyValid implements step 1 of spec.md §4.3's per-file protocol: a
// non-zero-size file already at targetPath is treated as success without
// re-fetching.
func (e *Engine) alreadyValid(item workItem) (bool, error) {
	info, err := os.Stat(item.targetPath)
	if err != nil {
		return false, nil
	}
	return info.Size() > 0, nil
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if ok := asPermanent(err, &perm); ok {
		return perm.Err
	}
	return err
}

func asPermanent(err error, target **backoff.PermanentError) bool {
	p, ok := err.(*backoff.PermanentError)
	if ok {
		*target = p
	}
	return ok
}
