// Package resource implements the process-wide Resource Monitor
// (spec.md §4.1): a lazily-initialized singleton that samples memory/CPU,
// classifies system state into HEALTHY/WARNING/CRITICAL/EXHAUSTED,
// derives safe worker counts and batch sizes, and gates work with a
// cooldown-based circuit breaker.
//
// Grounded on the teacher's lazy-singleton-with-mutex shape
// (config.LoadConfig's single-pass validation) generalized to OS
// sensing via github.com/shirou/gopsutil/v4, the dependency the wider
// example pack (DataDog-datadog-agent, volaticloud-volaticloud) uses for
// exactly this purpose.
package resource

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/brdata/pipeline/domain"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// snapshotTTL bounds how often the monitor actually pays for a gopsutil
// syscall; callers within the TTL window observe a memoized snapshot
// (Open Question decision #1 in DESIGN.md).
const snapshotTTL = 500 * time.Millisecond

// Monitor is the Resource Monitor singleton. Safe for concurrent use; a
// single mutex guards the memoized snapshot and the circuit breaker
// timestamp, and Snapshot and CircuitBreakerActive take it on every call,
// including reads. It is never held across a gopsutil sample.
type Monitor struct {
	limits domain.ResourceLimits

	mu           sync.Mutex
	lastSnapshot domain.ResourceSnapshot
	lastSampleAt time.Time
	degraded     bool // true when the OS metric API is unavailable

	lastState        domain.ResourceState
	lastExhaustedAt  time.Time
	hasBeenExhausted bool

	gcHook func() // injected cleanup hook, defaults to runtime.GC + debug.FreeOSMemory
}

var (
	singleton     *Monitor
	singletonOnce sync.Once
)

// Get returns the process-wide Monitor, initializing it with default
// limits on first use.
func Get() *Monitor {
	singletonOnce.Do(func() {
		singleton = New(domain.DefaultResourceLimits())
	})
	return singleton
}

// New constructs an independent Monitor (used by tests; production code
// should prefer Get()).
func New(limits domain.ResourceLimits) *Monitor {
	return &Monitor{
		limits: limits,
		gcHook: func() {
			runtime.GC()
			debug.FreeOSMemory()
		},
	}
}

// Snapshot reads current memory and CPU and classifies them into a
// ResourceSnapshot. Never returns an error: sensor failures downgrade to
// HEALTHY (spec.md §4.1 "the monitor never throws; sensor failures
// downgrade to HEALTHY. It is advisory, not authoritative.").
func (m *Monitor) Snapshot() domain.ResourceSnapshot {
	m.mu.Lock()
	if time.Since(m.lastSampleAt) < snapshotTTL && !m.lastSampleAt.IsZero() {
		snap := m.lastSnapshot
		m.mu.Unlock()
		return snap
	}
	m.mu.Unlock()

	snap, ok := m.sample()
	if !ok {
		snap = domain.ResourceSnapshot{State: domain.StateHealthy}
	}

	m.mu.Lock()
	prevState := m.lastState
	m.lastSnapshot = snap
	m.lastSampleAt = time.Now()
	m.lastState = snap.State
	if snap.State == domain.StateExhausted {
		m.lastExhaustedAt = time.Now()
		m.hasBeenExhausted = true
	}
	m.mu.Unlock()

	if prevState == domain.StateHealthy && snap.State == domain.StateWarning && m.limits.AutoGCOnWarning {
		m.gcHook()
	}
	return snap
}

func (m *Monitor) sample() (domain.ResourceSnapshot, bool) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		m.mu.Lock()
		m.degraded = true
		m.mu.Unlock()
		return domain.ResourceSnapshot{}, false
	}
	cpuPercents, err := cpu.Percent(0, false)
	cpuPct := 0.0
	if err == nil && len(cpuPercents) > 0 {
		cpuPct = cpuPercents[0]
	}

	var procMB uint64
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	procMB = ms.Sys / (1024 * 1024)

	availMB := vm.Available / (1024 * 1024)

	state := classify(vm.UsedPercent, cpuPct, availMB, m.limits)
	return domain.ResourceSnapshot{
		State:             state,
		MemoryPercentUsed: vm.UsedPercent,
		AvailableMB:       availMB,
		ProcessMB:         procMB,
	}, true
}

func classify(memPct, cpuPct float64, availMB uint64, limits domain.ResourceLimits) domain.ResourceState {
	if memPct >= limits.MemoryExhaustedThreshold || availMB < limits.MinFreeMemoryMB {
		return domain.StateExhausted
	}
	if memPct >= limits.MemoryCriticalThreshold || cpuPct >= limits.CPUCriticalThreshold {
		return domain.StateCritical
	}
	if memPct >= limits.MemoryWarningThreshold || cpuPct >= limits.CPUWarningThreshold {
		return domain.StateWarning
	}
	return domain.StateHealthy
}

// SafeWorkerCount derives a bounded worker count from the current state
// (spec.md §4.1). Never exceeds requested, never below 1.
func (m *Monitor) SafeWorkerCount(requested int) int {
	if requested < 1 {
		requested = 1
	}
	switch m.Snapshot().State {
	case domain.StateHealthy:
		return requested
	case domain.StateWarning:
		return max(1, requested/2)
	case domain.StateCritical:
		return max(1, requested/4)
	default: // EXHAUSTED
		return 1
	}
}

// SafeBatchSize derives a bounded batch size from the current state
// (spec.md §4.1).
func (m *Monitor) SafeBatchSize(desired int) int {
	switch m.Snapshot().State {
	case domain.StateHealthy:
		return desired
	case domain.StateWarning:
		return max(1, desired/2)
	case domain.StateCritical:
		return max(1, desired/10)
	default: // EXHAUSTED
		return max(1000, desired/100)
	}
}

// WaitFor blocks until Snapshot().State <= target (ordered
// HEALTHY<WARNING<CRITICAL<EXHAUSTED) or the timeout elapses. Returns
// whether the target was reached.
func (m *Monitor) WaitFor(ctx context.Context, target domain.ResourceState, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		if m.Snapshot().State <= target {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// CooldownDuration returns the configured circuit-breaker cooldown,
// for callers that need to bound a WaitFor call on the same window
// CircuitBreakerActive checks.
func (m *Monitor) CooldownDuration() time.Duration {
	return time.Duration(m.limits.CircuitBreakerCooldownSeconds) * time.Second
}

// CircuitBreakerActive reports whether the last EXHAUSTED observation is
// within the configured cooldown window.
func (m *Monitor) CircuitBreakerActive() bool {
	if !m.limits.CircuitBreakerEnabled {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasBeenExhausted {
		return false
	}
	return time.Since(m.lastExhaustedAt) < time.Duration(m.limits.CircuitBreakerCooldownSeconds)*time.Second
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
