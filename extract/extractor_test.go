package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brdata/pipeline/testutil"
)

func TestExtractConvertsCSVToParquet(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	zipPath := testutil.WriteCSVZip(t, srcDir, "dados_cia_aberta.csv", [][]string{
		{"CNPJ_CIA", "DT_REFER", "VERSAO"},
		{"00.000.000/0001-00", "2023-01-01", "1"},
		{"11.111.111/0001-11", "2023-01-01", "2"},
	})

	e := NewExtractor()
	created, err := e.Extract(zipPath, outDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("got %d created files, want 1", len(created))
	}
	if filepath.Base(created[0]) != "dados_cia_aberta.parquet" {
		t.Errorf("got %q, want dados_cia_aberta.parquet", filepath.Base(created[0]))
	}
	if _, err := os.Stat(created[0]); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestExtractNoCSVEntries(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	zipPath := testutil.WriteCSVZip(t, srcDir, "readme.txt", [][]string{{"not a csv"}})
	// rename the only entry away from .csv by writing directly isn't
	// possible via WriteCSVZip's suffix-agnostic writer, so this exercises
	// the same "no .csv entries" path through a .txt entry name.

	e := NewExtractor()
	created, err := e.Extract(zipPath, outDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("expected zero created files for a ZIP with no .csv entries, got %d", len(created))
	}
}

func TestExtractCorruptedZip(t *testing.T) {
	dir := t.TempDir()
	badZip := filepath.Join(dir, "bad.zip")
	if err := os.WriteFile(badZip, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	e := NewExtractor()
	if _, err := e.Extract(badZip, t.TempDir()); err == nil {
		t.Fatal("expected an error for a corrupted zip")
	}
}
