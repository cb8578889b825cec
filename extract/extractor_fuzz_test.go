package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

// FuzzExtract feeds arbitrary bytes as a CSV entry inside a well-formed
// ZIP, checking that malformed CSV content never panics the extractor —
// only CSV structure is fuzzed, not ZIP framing, since archive/zip's own
// format robustness isn't this package's concern.
func FuzzExtract(f *testing.F) {
	f.Add([]byte("a;b;c\n1;2;3\n"))
	f.Add([]byte(""))
	f.Add([]byte(";;;\n\x00\x01\x02"))
	f.Add([]byte("a;b\n1;2;3;4;5\n"))

	f.Fuzz(func(t *testing.T, csvContent []byte) {
		dir := t.TempDir()
		zipPath := filepath.Join(dir, "fixture.zip")
		out, err := os.Create(zipPath)
		if err != nil {
			t.Fatalf("creating fixture zip: %v", err)
		}
		zw := zip.NewWriter(out)
		w, err := zw.Create("data.csv")
		if err != nil {
			t.Fatalf("creating zip entry: %v", err)
		}
		if _, err := w.Write(csvContent); err != nil {
			t.Fatalf("writing zip entry: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("closing zip: %v", err)
		}
		out.Close()

		e := NewExtractor()
		_, _ = e.Extract(zipPath, t.TempDir()) // must never panic, error is fine
	})
}
