// Package domain holds the value objects, static tables, and error kinds
// shared by every pipeline subsystem: download plans and outcomes,
// extraction requests and reports, the COTAHIST record shape, and the
// resource-monitor snapshot/limits types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessingMode selects the COTAHIST orchestrator's concurrency/memory
// tradeoff (spec.md §4.6, §9 "fast vs slow as a flag").
type ProcessingMode int

const (
	ModeFast ProcessingMode = iota
	ModeSlow
)

func (m ProcessingMode) String() string {
	if m == ModeFast {
		return "FAST"
	}
	return "SLOW"
}

// DownloadAssignment is one (doc_type, year) -> url/local-filename triple
// inside a DownloadPlan.
type DownloadAssignment struct {
	DocType       string
	Year          int
	URL           string
	LocalFilename string
}

// DownloadPlan is an immutable mapping from document type to an ordered
// sequence of assignments. Built once per download invocation.
type DownloadPlan struct {
	Assignments map[string][]DownloadAssignment
}

// NewDownloadPlan builds a plan from a flat assignment list, grouping by
// doc type and preserving input order within each group.
func NewDownloadPlan(assignments []DownloadAssignment) DownloadPlan {
	plan := DownloadPlan{Assignments: make(map[string][]DownloadAssignment)}
	for _, a := range assignments {
		plan.Assignments[a.DocType] = append(plan.Assignments[a.DocType], a)
	}
	return plan
}

// TotalURLs returns the number of assignments across every document type.
func (p DownloadPlan) TotalURLs() int {
	n := 0
	for _, group := range p.Assignments {
		n += len(group)
	}
	return n
}

// DownloadOutcome is the aggregate result of a download batch.
// Invariant: len(successful flattened) == SuccessCount and
// len(Failed) == ErrorCount.
type DownloadOutcome struct {
	SuccessCount int
	ErrorCount   int
	Successful   map[string]map[int]bool // doc_type -> set<year>
	Failed       map[string]string       // identifier -> error message
}

func NewDownloadOutcome() *DownloadOutcome {
	return &DownloadOutcome{
		Successful: make(map[string]map[int]bool),
		Failed:     make(map[string]string),
	}
}

func (o *DownloadOutcome) RecordSuccess(docType string, year int) {
	if o.Successful[docType] == nil {
		o.Successful[docType] = make(map[int]bool)
	}
	o.Successful[docType][year] = true
	o.SuccessCount++
}

func (o *DownloadOutcome) RecordFailure(identifier, message string) {
	o.Failed[identifier] = message
	o.ErrorCount++
}

// ExtractionRequest parameterizes a COTAHIST run (spec.md §3).
type ExtractionRequest struct {
	SourceDirectory      string
	DestinationDirectory string
	AssetClasses         []string
	YearFirst            int
	YearLast             int
	TargetMarketCodes    map[string]bool
	DiscoveredZipFiles   []string
	OutputFilename       string
	Mode                 ProcessingMode
}

// ExtractionReport is the result of ExtractionRequest.
type ExtractionReport struct {
	TotalFiles     int
	SuccessCount   int
	ErrorCount     int
	TotalRecords   int
	BatchesWritten int
	Errors         map[string]string // filename -> message
	OutputFile     string
}

func NewExtractionReport() *ExtractionReport {
	return &ExtractionReport{Errors: make(map[string]string)}
}

// CotahistRecord is one decoded TIPREG=01 line (spec.md §3, byte positions
// 1-245 inclusive, 1-indexed in the spec, 0-indexed internally in the
// parser).
type CotahistRecord struct {
	TradingDate      time.Time
	BDICode          string
	Ticker           string
	MarketType       string
	ShortName        string
	Specification    string
	OpeningPrice     decimal.Decimal
	HighPrice        decimal.Decimal
	LowPrice         decimal.Decimal
	AvgPrice         decimal.Decimal
	ClosingPrice     decimal.Decimal
	BestBidPrice     decimal.Decimal
	BestAskPrice     decimal.Decimal
	TradeCount       int32
	TotalQuantity    int64
	TotalVolume      decimal.Decimal
	ExpirationDate   *time.Time
	QuoteFactor      int32
	ISINCode         string
	DistributionNum  int16
}

// ResourceState is the categorical state the Resource Monitor publishes
// in a ResourceSnapshot (spec.md §4.1), ordered
// HEALTHY < WARNING < CRITICAL < EXHAUSTED.
type ResourceState int

const (
	StateHealthy ResourceState = iota
	StateWarning
	StateCritical
	StateExhausted
)

func (s ResourceState) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateWarning:
		return "WARNING"
	case StateCritical:
		return "CRITICAL"
	case StateExhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

type ResourceSnapshot struct {
	State             ResourceState
	MemoryPercentUsed float64
	AvailableMB       uint64
	ProcessMB         uint64
}

// ResourceLimits are the Resource Monitor's configured thresholds
// (spec.md §3, defaults match the spec verbatim).
type ResourceLimits struct {
	MemoryWarningThreshold        float64
	MemoryCriticalThreshold       float64
	MemoryExhaustedThreshold      float64
	CPUWarningThreshold           float64
	CPUCriticalThreshold          float64
	MinFreeMemoryMB               uint64
	AutoGCOnWarning               bool
	CircuitBreakerCooldownSeconds int
	CircuitBreakerEnabled         bool
}

func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MemoryWarningThreshold:        70,
		MemoryCriticalThreshold:       85,
		MemoryExhaustedThreshold:      95,
		CPUWarningThreshold:           80,
		CPUCriticalThreshold:          90,
		MinFreeMemoryMB:               100,
		AutoGCOnWarning:               true,
		CircuitBreakerCooldownSeconds: 10,
		CircuitBreakerEnabled:         true,
	}
}
