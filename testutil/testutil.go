// Package testutil provides fixture builders shared across the
// pipeline's package tests: fixture COTAHIST lines, fixture CVM-style
// ZIPs, and a fake httpclient.Getter. Grounded on the teacher's
// testutil/testutil.go (temp-file/temp-dir helpers, a
// GenerateTestLogFile-style fixture generator), repointed from Apache
// Combined Log lines to this pipeline's own wire formats.
package testutil

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/brdata/pipeline/httpclient"
)

// TempFilePath returns a cross-platform temporary file path with the
// given pattern. Does not create the file.
func TempFilePath(t *testing.T, pattern string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	path := tmpFile.Name()
	tmpFile.Close()
	os.Remove(path)
	return path
}

// TempDirPath returns a cross-platform temporary directory path.
func TempDirPath(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// CotahistLine builds one fixture COTAHIST detail line (TIPREG "01") at
// the real B3 fixed-width offsets used by cotahist.Parser, padded to 245
// bytes. ticker/marketType let callers vary the filter-relevant fields;
// everything else is a plausible fixed value.
func CotahistLine(ticker, marketType string, tradingDate string) string {
	var b strings.Builder
	b.WriteString("01")                      // 1-2 TIPREG
	b.WriteString(tradingDate)                // 3-10 trading date YYYYMMDD
	b.WriteString("02")                       // 11-12 BDI code
	b.WriteString(padRight(ticker, 12))        // 13-24 ticker
	b.WriteString(marketType)                  // 25-27 market type
	b.WriteString(padRight("FIXTURE CO", 12))  // 28-39 short name
	b.WriteString(padRight("ON", 10))          // 40-49 specification
	b.WriteString(strings.Repeat(" ", 3))      // 50-52 prazo_dias_merc
	b.WriteString(padRight("R$", 4))           // 53-56 moeda_ref
	for i := 0; i < 7; i++ {
		b.WriteString(padLeft("000000010050", 13, '0')) // 57-147 prices: 100.50
	}
	b.WriteString(padLeft("12", 5, '0'))       // 148-152 trade count
	b.WriteString(padLeft("1000", 18, '0'))    // 153-170 total quantity
	b.WriteString(padLeft("000000010050000", 18, '0')) // 171-188 total volume
	b.WriteString(strings.Repeat(" ", 13))     // 189-201 preexe/indopc
	b.WriteString(" ")                         // 202 datven placeholder (kept blank deliberately)
	b.WriteString("00000000")                  // 203-210 expiration date (none)
	b.WriteString(padLeft("1", 7, '0'))        // 211-217 quote factor
	b.WriteString(strings.Repeat(" ", 13))     // 218-230 preexe2/indopc2
	b.WriteString(padRight("BRFIXT00ABC", 12)) // 231-242 ISIN
	b.WriteString(padLeft("126", 3, '0'))      // 243-245 distribution number
	line := b.String()
	if len(line) < 245 {
		line += strings.Repeat(" ", 245-len(line))
	}
	return line
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

func padLeft(s string, n int, fill rune) string {
	if len(s) >= n {
		return s[len(s)-n:]
	}
	return strings.Repeat(string(fill), n-len(s)) + s
}

// WriteCotahistZip packages lines into a ZIP containing a single
// COTAHIST_A{year}.TXT entry, the shape the Orchestrator expects.
func WriteCotahistZip(t *testing.T, dir string, year int, lines []string) string {
	t.Helper()
	path := fmt.Sprintf("%s/COTAHIST_A%d.ZIP", dir, year)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create(fmt.Sprintf("COTAHIST_A%d.TXT", year))
	if err != nil {
		t.Fatalf("creating fixture zip entry: %v", err)
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing fixture zip: %v", err)
	}
	return path
}

// WriteCSVZip packages a CVM-style CSV (semicolon-delimited, Latin-1
// compatible ASCII fixture content) into a ZIP for Extractor tests.
func WriteCSVZip(t *testing.T, dir, entryName string, rows [][]string) string {
	t.Helper()
	path := dir + "/fixture.zip"
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create(entryName)
	if err != nil {
		t.Fatalf("creating fixture zip entry: %v", err)
	}
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, ";"))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing fixture zip: %v", err)
	}
	return path
}

// FakeGetter is a scripted httpclient.Getter for download.Engine tests:
// it writes fixed content to outPath and returns canned results/errors
// keyed by URL, never touching the network.
type FakeGetter struct {
	Content map[string][]byte
	Errs    map[string]error
	Calls   []string
}

func NewFakeGetter() *FakeGetter {
	return &FakeGetter{Content: map[string][]byte{}, Errs: map[string]error{}}
}

func (g *FakeGetter) Get(_ context.Context, url, outPath string) (httpclient.Result, error) {
	g.Calls = append(g.Calls, url)
	if err, ok := g.Errs[url]; ok {
		return httpclient.Result{}, err
	}
	content, ok := g.Content[url]
	if !ok {
		return httpclient.Result{}, fmt.Errorf("fake getter: no fixture for %s", url)
	}
	if err := os.WriteFile(outPath, content, 0o644); err != nil {
		return httpclient.Result{}, err
	}
	return httpclient.Result{
		BytesWritten:  int64(len(content)),
		ContentLength: int64(len(content)),
	}, nil
}
