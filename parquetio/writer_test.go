package parquetio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/brdata/pipeline/domain"
)

func buildSingleRowBatch(t *testing.T) arrow.Record {
	t.Helper()
	rec, err := BuildCotahistBatch([]domain.CotahistRecord{{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestWriteBulkWritesFileAtomically(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.parquet")

	rec := buildSingleRowBatch(t)
	w := NewWriter()
	if err := w.WriteBulk(outputPath, CotahistSchema(), 0, []arrow.Record{rec}); err != nil {
		t.Fatalf("WriteBulk failed: %v", err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
	if _, err := os.Stat(outputPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file should not survive a successful commit")
	}
}

func TestWriteStreamingWritesFileAtomically(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.parquet")

	batchChan := make(chan arrow.Record, 1)
	batchChan <- buildSingleRowBatch(t)
	close(batchChan)

	w := NewWriter()
	if err := w.WriteStreaming(outputPath, CotahistSchema(), 0, batchChan); err != nil {
		t.Fatalf("WriteStreaming failed: %v", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestWriteBulkAppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.parquet")

	w := NewWriter()
	if err := w.WriteBulk(outputPath, CotahistSchema(), 0, []arrow.Record{buildSingleRowBatch(t)}); err != nil {
		t.Fatalf("first WriteBulk failed: %v", err)
	}
	if err := w.WriteBulk(outputPath, CotahistSchema(), 0, []arrow.Record{buildSingleRowBatch(t)}); err != nil {
		t.Fatalf("appending WriteBulk failed: %v", err)
	}

	records, err := readExistingRecords(outputPath)
	if err != nil {
		t.Fatalf("reading back appended file: %v", err)
	}
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	var total int64
	for _, rec := range records {
		total += rec.NumRows()
	}
	if total != 2 {
		t.Errorf("total rows after append = %d, want 2", total)
	}
}

func TestWriteStreamingAppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.parquet")

	w := NewWriter()
	first := make(chan arrow.Record, 1)
	first <- buildSingleRowBatch(t)
	close(first)
	if err := w.WriteStreaming(outputPath, CotahistSchema(), 0, first); err != nil {
		t.Fatalf("first WriteStreaming failed: %v", err)
	}

	second := make(chan arrow.Record, 1)
	second <- buildSingleRowBatch(t)
	close(second)
	if err := w.WriteStreaming(outputPath, CotahistSchema(), 0, second); err != nil {
		t.Fatalf("appending WriteStreaming failed: %v", err)
	}

	records, err := readExistingRecords(outputPath)
	if err != nil {
		t.Fatalf("reading back appended file: %v", err)
	}
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	var total int64
	for _, rec := range records {
		total += rec.NumRows()
	}
	if total != 2 {
		t.Errorf("total rows after append = %d, want 2", total)
	}
}

func TestCheckDiskSpaceSkippedWhenEstimateZero(t *testing.T) {
	if err := checkDiskSpace("/nonexistent/path/out.parquet", 0); err != nil {
		t.Fatalf("zero estimate must skip the disk check, got %v", err)
	}
}

func TestCheckDiskSpaceRejectsImpossibleDemand(t *testing.T) {
	dir := t.TempDir()
	// An exbibyte-scale estimate (1<<60 bytes) should never fit on the test filesystem.
	err := checkDiskSpace(filepath.Join(dir, "out.parquet"), 1<<60)
	if err == nil {
		t.Fatal("expected a DiskFullError for an impossibly large estimate")
	}
	if _, ok := err.(*domain.DiskFullError); !ok {
		t.Errorf("got %T, want *domain.DiskFullError", err)
	}
}

func TestDirOf(t *testing.T) {
	if got := dirOf("/a/b/c.parquet"); got != "/a/b" {
		t.Errorf("dirOf = %q, want /a/b", got)
	}
	if got := dirOf("c.parquet"); got != "." {
		t.Errorf("dirOf = %q, want .", got)
	}
}
