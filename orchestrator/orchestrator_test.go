package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brdata/pipeline/domain"
	"github.com/brdata/pipeline/testutil"
)

func TestValidateCotahistFilename(t *testing.T) {
	if err := validateCotahistFilename("/data/COTAHIST_A2020.ZIP", 2015, 2021); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateCotahistFilename("/data/cotahist_a2020.zip", 2015, 2021); err != nil {
		t.Errorf("filename match should be case-insensitive: %v", err)
	}
	if err := validateCotahistFilename("/data/COTAHIST_A2020.ZIP", 2021, 2025); err == nil {
		t.Error("expected error for year outside requested range")
	}
	if err := validateCotahistFilename("/data/garbage.zip", 2015, 2021); err == nil {
		t.Error("expected error for a non-matching filename")
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	lines := []string{testutil.CotahistLine("PETR4", "010", "20230115")}
	zipPath := testutil.WriteCotahistZip(t, srcDir, 2023, lines)

	req, err := domain.NewExtractionRequest(srcDir, destDir, []string{"ações"}, 2020, 2025, []string{zipPath}, "cotahist", domain.ModeFast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := NewOrchestrator()
	report, err := o.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", report.SuccessCount)
	}
	if report.TotalRecords != 1 {
		t.Errorf("TotalRecords = %d, want 1", report.TotalRecords)
	}
	if report.OutputFile == "" {
		t.Fatal("expected a non-empty OutputFile")
	}
	if _, err := os.Stat(report.OutputFile); err != nil {
		t.Errorf("expected consolidated parquet file to exist: %v", err)
	}
}

func TestExecuteNoZips(t *testing.T) {
	req, err := domain.NewExtractionRequest(t.TempDir(), t.TempDir(), []string{"ações"}, 2020, 2025, nil, "cotahist", domain.ModeFast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o := NewOrchestrator()
	report, err := o.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalFiles != 0 || report.OutputFile != "" {
		t.Errorf("expected a no-op report for zero discovered zips, got %+v", report)
	}
}

func TestExecuteAllZipsInvalid(t *testing.T) {
	srcDir := t.TempDir()
	badPath := filepath.Join(srcDir, "not-cotahist.zip")
	if err := os.WriteFile(badPath, []byte("irrelevant"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	req, err := domain.NewExtractionRequest(srcDir, t.TempDir(), []string{"ações"}, 2020, 2025, []string{badPath}, "cotahist", domain.ModeFast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o := NewOrchestrator()
	if _, err := o.Execute(context.Background(), req); err == nil {
		t.Fatal("expected an error when every discovered zip fails validation")
	}
}
