// Package extract implements the Atomic ZIP→Parquet Extractor (spec.md
// §4.4): converts every inner CSV of a CVM ZIP into a sibling Parquet
// file with all-or-nothing rollback semantics.
//
// Grounded on the teacher's analysis/parallel_static.go chunked-batch
// shape for row batching, and on the CSV/ZIP reading approach implicit
// in B3/CVM's semicolon-delimited, Latin-1 convention (spec.md §4.4 step
// 3b); rollback-on-error is new to this domain (the teacher has no
// transactional multi-file write anywhere) and is grounded on the
// temp-then-rename discipline from parquetio/writer.go generalized to a
// whole-batch scope.
package extract

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/brdata/pipeline/domain"
	"github.com/brdata/pipeline/parquetio"
	"github.com/brdata/pipeline/resource"
	"golang.org/x/text/encoding/charmap"
)

const defaultBatchSize = 50_000

// Extractor converts CVM ZIPs into per-CSV Parquet files.
type Extractor struct {
	writer  *parquetio.Writer
	monitor *resource.Monitor
}

func NewExtractor() *Extractor {
	return &Extractor{writer: parquetio.NewWriter(), monitor: resource.Get()}
}

// Extract implements spec.md §4.4's algorithm: enumerate .csv entries,
// convert each to a sibling .parquet, and roll back every Parquet
// produced so far if any entry fails.
func (e *Extractor) Extract(zipPath, outputDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, &domain.CorruptedZipError{Path: zipPath, Err: err}
	}
	defer r.Close()

	var csvEntries []*zip.File
	for _, f := range r.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			csvEntries = append(csvEntries, f)
		}
	}
	if len(csvEntries) == 0 {
		return []string{}, nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &domain.PermissionError{Path: outputDir, Err: err}
	}

	var created []string
	reasons := make(map[string]string)

	for _, entry := range csvEntries {
		base := strings.TrimSuffix(filepath.Base(entry.Name), filepath.Ext(entry.Name))
		targetPath := filepath.Join(outputDir, base+".parquet")

		path, err := e.convertEntry(entry, targetPath)
		if err != nil {
			reasons[entry.Name] = err.Error()
			break
		}
		created = append(created, path)
	}

	if len(reasons) > 0 {
		for _, path := range created {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				reasons[path+" (rollback)"] = rmErr.Error()
			}
		}
		return nil, &domain.ExtractionError{ZipPath: zipPath, Reasons: reasons}
	}

	return created, nil
}

// convertEntry streams one CSV entry through the shared Parquet writer,
// batching rows at safe_batch_size(50_000) per spec.md §4.4 step 3b, and
// selects the writer mode by the Resource Monitor's current memory state
// exactly like orchestrator.Execute does (spec.md §4.7: the two
// modes are "selected automatically by memory state" for both callers).
// Rows the CSV reader rejects are skipped; no count of skipped rows is
// kept. The file is still a success provided at least one row converts.
func (e *Extractor) convertEntry(entry *zip.File, targetPath string) (string, error) {
	rc, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", entry.Name, err)
	}
	defer rc.Close()

	decodingReader := charmap.ISO8859_1.NewDecoder().Reader(rc)
	reader := csv.NewReader(decodingReader)
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return "", fmt.Errorf("%s: empty file", entry.Name)
	}
	if err != nil {
		return "", fmt.Errorf("reading header of %s: %w", entry.Name, err)
	}
	schema := parquetio.CSVSchema(header)

	healthy := e.monitor.Snapshot().State == domain.StateHealthy
	batchSize := e.monitor.SafeBatchSize(defaultBatchSize)
	var batch [][]string
	var successRows int
	var arrowBatches []arrow.Record

	var streamChan chan arrow.Record
	var streamErr error
	var streamWG sync.WaitGroup
	if !healthy {
		streamChan = make(chan arrow.Record, 2)
		streamWG.Add(1)
		go func() {
			defer streamWG.Done()
			streamErr = e.writer.WriteStreaming(targetPath, schema, int64(entry.UncompressedSize64), streamChan)
		}()
	}

	flush := func() {
		if len(batch) == 0 {
			return
		}
		rec := parquetio.BuildCSVBatch(schema, batch)
		successRows += len(batch)
		batch = nil
		if healthy {
			arrowBatches = append(arrowBatches, rec)
		} else {
			streamChan <- rec
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // malformed row: skip, per spec.md §4.4 edge case
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()

	if !healthy {
		close(streamChan)
		streamWG.Wait()
		if streamErr != nil {
			return "", fmt.Errorf("writing %s: %w", targetPath, streamErr)
		}
	}

	if successRows == 0 {
		if !healthy {
			os.Remove(targetPath) // WriteStreaming already committed an empty file
		}
		return "", fmt.Errorf("%s: zero rows converted successfully", entry.Name)
	}

	if healthy {
		estimate := int64(successRows) * estimatedBytesPerCSVRow(len(header))
		if err := e.writer.WriteBulk(targetPath, schema, estimate, arrowBatches); err != nil {
			return "", fmt.Errorf("writing %s: %w", targetPath, err)
		}
	}
	return targetPath, nil
}

// estimatedBytesPerCSVRow is a coarse pre-write size estimate (spec.md
// §4.7's disk-space check needs *some* estimate; CVM CSV columns are
// short codes/text, so 64 bytes/column is a conservative guess).
func estimatedBytesPerCSVRow(numCols int) int64 {
	return int64(numCols) * 64
}
