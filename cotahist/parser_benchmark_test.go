package cotahist

import (
	"context"
	"testing"

	"github.com/brdata/pipeline/testutil"
)

func benchmarkLines(n int) [][]byte {
	lines := make([][]byte, n)
	for i := range lines {
		lines[i] = []byte(testutil.CotahistLine("PETR4", "010", "20230115"))
	}
	return lines
}

func BenchmarkParseLine(b *testing.B) {
	p := NewParser(targetCodes("010"))
	line := []byte(testutil.CotahistLine("PETR4", "010", "20230115"))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = p.ParseLine(line)
	}
}

func BenchmarkParseLinesFast(b *testing.B) {
	lines := benchmarkLines(100_000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := NewParser(targetCodes("010"))
		p.ParseLinesFast(context.Background(), lines)
	}
}

func BenchmarkParseLinesSlow(b *testing.B) {
	lines := benchmarkLines(100_000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := NewParser(targetCodes("010"))
		p.ParseLinesSlow(lines)
	}
}
