// Package pools provides sync.Pool-backed reuse of the slices allocated
// on the COTAHIST parsing hot path (spec.md §4.6: millions of fixed-width
// lines parsed into CotahistRecord batches, batch-by-batch). Grounded on
// the teacher's pools/pools.go GlobalPools pattern (pre-sized sync.Pool
// per hot allocation, capped Put to avoid unbounded retained capacity),
// repointed from CIDR/IP slices at ingestor.Request/net.IP to the
// pipeline's own CotahistRecord batches and the [][]byte line slices
// read from each COTAHIST ZIP entry.
package pools

import (
	"sync"

	"github.com/brdata/pipeline/domain"
)

const (
	recordSliceCap = 10_000 // matches spec.md's default safe_batch_size
	lineSliceCap   = 10_000
	maxRetainedCap = 65_536 // discard slices that grew far beyond typical batch size
)

// Pools is the process-wide set of reusable buffers for the parsing and
// batch-assembly hot loops in cotahist and orchestrator.
type Pools struct {
	Records sync.Pool
	Lines   sync.Pool
}

// Global is the shared instance used by cotahist.Parser and Orchestrator.
var Global = New()

func New() *Pools {
	return &Pools{
		Records: sync.Pool{
			New: func() interface{} {
				s := make([]domain.CotahistRecord, 0, recordSliceCap)
				return &s
			},
		},
		Lines: sync.Pool{
			New: func() interface{} {
				s := make([][]byte, 0, lineSliceCap)
				return &s
			},
		},
	}
}

// GetRecordSlice returns a zero-length CotahistRecord slice with
// pre-warmed capacity.
func (p *Pools) GetRecordSlice() []domain.CotahistRecord {
	slicePtr := p.Records.Get().(*[]domain.CotahistRecord)
	return (*slicePtr)[:0]
}

// PutRecordSlice returns a CotahistRecord slice to the pool, discarding
// it instead if it grew unusually large.
func (p *Pools) PutRecordSlice(s []domain.CotahistRecord) {
	if cap(s) > maxRetainedCap {
		return
	}
	s = s[:0]
	p.Records.Put(&s)
}

// GetLineSlice returns a zero-length [][]byte slice with pre-warmed
// capacity, used while splitting a ZIP entry's stream into lines.
func (p *Pools) GetLineSlice() [][]byte {
	slicePtr := p.Lines.Get().(*[][]byte)
	return (*slicePtr)[:0]
}

// PutLineSlice returns a line slice to the pool.
func (p *Pools) PutLineSlice(s [][]byte) {
	if cap(s) > maxRetainedCap {
		return
	}
	s = s[:0]
	p.Lines.Put(&s)
}
