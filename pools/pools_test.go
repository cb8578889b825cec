package pools

import (
	"testing"

	"github.com/brdata/pipeline/domain"
)

func TestRecordSlicePoolRoundTrip(t *testing.T) {
	p := New()
	s := p.GetRecordSlice()
	if len(s) != 0 {
		t.Fatalf("GetRecordSlice should start empty, got len %d", len(s))
	}
	s = append(s, domain.CotahistRecord{Ticker: "PETR4"})
	p.PutRecordSlice(s)

	reused := p.GetRecordSlice()
	if len(reused) != 0 {
		t.Fatalf("reused slice should be reset to zero length, got %d", len(reused))
	}
}

func TestRecordSlicePoolDiscardsOversizedSlices(t *testing.T) {
	p := New()
	huge := make([]domain.CotahistRecord, 0, maxRetainedCap+1)
	p.PutRecordSlice(huge) // must not panic; oversized slices are simply dropped
}

func TestLineSlicePoolRoundTrip(t *testing.T) {
	p := New()
	s := p.GetLineSlice()
	s = append(s, []byte("line"))
	p.PutLineSlice(s)

	reused := p.GetLineSlice()
	if len(reused) != 0 {
		t.Fatalf("reused line slice should be reset to zero length, got %d", len(reused))
	}
}
