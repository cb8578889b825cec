package parquetio

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/brdata/pipeline/domain"
	"github.com/shopspring/decimal"
)

func benchmarkRows(n int) []domain.CotahistRecord {
	rows := make([]domain.CotahistRecord, n)
	for i := range rows {
		rows[i] = domain.CotahistRecord{
			TradingDate:  time.Now(),
			Ticker:       "PETR4",
			MarketType:   "010",
			OpeningPrice: decimal.New(2550, -2),
			ClosingPrice: decimal.New(2590, -2),
			TotalVolume:  decimal.New(100_00, -2),
		}
	}
	return rows
}

func BenchmarkBuildCotahistBatch(b *testing.B) {
	rows := benchmarkRows(50_000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec, err := BuildCotahistBatch(rows)
		if err != nil {
			b.Fatal(err)
		}
		rec.Release()
	}
}

func BenchmarkWriteBulk(b *testing.B) {
	rows := benchmarkRows(50_000)
	rec, err := BuildCotahistBatch(rows)
	if err != nil {
		b.Fatal(err)
	}
	defer rec.Release()

	dir := b.TempDir()
	w := NewWriter()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		path := filepath.Join(dir, "bench.parquet")
		if err := w.WriteBulk(path, CotahistSchema(), 0, []arrow.Record{rec}); err != nil {
			b.Fatal(err)
		}
	}
}
