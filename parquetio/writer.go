// Package parquetio implements the shared Parquet Writer (spec.md §4.7):
// ZSTD-compressed columnar output with an atomic temp-file-then-rename
// placement, and two write modes selected by the Resource Monitor's
// memory state.
//
// Grounded on other_examples/e2cfc37a_DataDog-datadog-agent's
// ParquetWriter.writeRecord: parquet.NewWriterProperties with
// WithVersion/WithCompression, pqarrow.NewArrowWriterProperties with
// WithStoreSchema, pqarrow.NewFileWriter, writer.Write/Close. The
// temp-then-rename convention itself is grounded on
// bodaay-HuggingFaceModelDownloader's Download() (tmp := dst + ".part";
// os.Rename(tmp, dst)), generalized from downloaded files to written
// Parquet files since the teacher's own jail/io.go has no atomic-write
// helper to adapt.
package parquetio

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/brdata/pipeline/domain"
	"github.com/shirou/gopsutil/v4/disk"
)

// RowGroupSize is the batching/row-group size used by both write modes
// (spec.md §4.7 "Row-group size chosen to match the batching (50,000
// rows) for both modes").
const RowGroupSize = 50_000

// Writer persists Arrow record batches to a Parquet file.
type Writer struct{}

func NewWriter() *Writer { return &Writer{} }

func writerProperties() *parquet.WriterProperties {
	return parquet.NewWriterProperties(
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithCompressionLevel(3),
		parquet.WithMaxRowGroupLength(RowGroupSize),
	)
}

// checkDiskSpace implements spec.md §4.7's pre-write check: at least
// estimateBytes*1.3 free on the destination filesystem, or a DiskFullError
// without ever opening the temp file.
func checkDiskSpace(path string, estimateBytes int64) error {
	if estimateBytes <= 0 {
		return nil
	}
	usage, err := disk.Usage(dirOf(path))
	if err != nil {
		return nil // advisory only; sensor failure should not block a write
	}
	needed := float64(estimateBytes) * 1.3
	if float64(usage.Free) < needed {
		return &domain.DiskFullError{
			Path:     path,
			NeededMB: needed / (1024 * 1024),
			AvailMB:  float64(usage.Free) / (1024 * 1024),
		}
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

type openWriter struct {
	file    *os.File
	tmpPath string
	out     *pqarrow.FileWriter
}

func open(outputPath string, schema *arrow.Schema, estimateBytes int64) (*openWriter, error) {
	if err := checkDiskSpace(outputPath, estimateBytes); err != nil {
		return nil, err
	}
	tmpPath := outputPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, &domain.PermissionError{Path: tmpPath, Err: err}
	}
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	w, err := pqarrow.NewFileWriter(schema, file, writerProperties(), arrowProps)
	if err != nil {
		file.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("creating parquet writer for %s: %w", outputPath, err)
	}
	return &openWriter{file: file, tmpPath: tmpPath, out: w}, nil
}

func (o *openWriter) abort() {
	o.out.Close()
	o.file.Close()
	os.Remove(o.tmpPath)
}

func (o *openWriter) commit(outputPath string) error {
	if err := o.out.Close(); err != nil {
		o.file.Close()
		os.Remove(o.tmpPath)
		return fmt.Errorf("closing parquet writer for %s: %w", outputPath, err)
	}
	if err := o.file.Sync(); err != nil {
		o.file.Close()
		os.Remove(o.tmpPath)
		return fmt.Errorf("fsync %s: %w", o.tmpPath, err)
	}
	o.file.Close()
	if err := os.Rename(o.tmpPath, outputPath); err != nil {
		os.Remove(o.tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", o.tmpPath, outputPath, err)
	}
	return nil
}

// readExistingRecords implements spec.md §4.7's append contract: "when
// appending to an existing file, read the existing file fully" (Bulk) /
// "iterate existing-file batches ... then iterate new-batch rows"
// (Streaming). Both modes need the same prior content, so it's read back
// once here regardless of which mode calls it. Returns (nil, nil) if
// outputPath has no file yet — the common case of a first write.
func readExistingRecords(outputPath string) ([]arrow.Record, error) {
	if _, err := os.Stat(outputPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", outputPath, err)
	}

	pf, err := file.OpenParquetFile(outputPath, false)
	if err != nil {
		return nil, fmt.Errorf("opening existing parquet %s: %w", outputPath, err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("reading existing parquet %s: %w", outputPath, err)
	}

	recordReader, err := arrowReader.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("reading existing parquet %s: %w", outputPath, err)
	}
	defer recordReader.Release()

	var records []arrow.Record
	for recordReader.Next() {
		rec := recordReader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	return records, nil
}

// WriteStreaming drains batches as they arrive, writing each record to
// the Parquet writer immediately instead of collecting the new batches
// first — the non-HEALTHY-memory mode of spec.md §4.7. When appending,
// the existing file's records are read back into memory in full before
// any batch is written, so memory use grows with the existing file. The
// caller closes batches when done; an error on the channel's producer
// side should be surfaced by closing batches and checking a side
// channel, matching how the orchestrator already separates producer
// errors from writer errors. If outputPath already holds a file, its
// existing row groups are written first, ahead of the new batches.
func (w *Writer) WriteStreaming(outputPath string, schema *arrow.Schema, estimateBytes int64, batches <-chan arrow.Record) error {
	existing, err := readExistingRecords(outputPath)
	if err != nil {
		return err
	}

	ow, err := open(outputPath, schema, estimateBytes)
	if err != nil {
		for _, rec := range existing {
			rec.Release()
		}
		return err
	}

	for i, rec := range existing {
		writeErr := ow.out.Write(rec)
		rec.Release()
		if writeErr != nil {
			for _, leftover := range existing[i+1:] {
				leftover.Release()
			}
			ow.abort()
			for leftover := range batches {
				leftover.Release()
			}
			return fmt.Errorf("writing existing batch to %s: %w", outputPath, writeErr)
		}
	}

	for rec := range batches {
		if err := ow.out.Write(rec); err != nil {
			rec.Release()
			ow.abort()
			// drain remaining records to release them and avoid leaking a
			// blocked producer.
			for leftover := range batches {
				leftover.Release()
			}
			return fmt.Errorf("writing batch to %s: %w", outputPath, err)
		}
		rec.Release()
	}
	return ow.commit(outputPath)
}

// WriteBulk writes an already-fully-materialized slice of batches in one
// pass — the HEALTHY-memory mode of spec.md §4.7: simpler, and faster
// for small outputs, at the cost of requiring every batch to already be
// resident in memory before the call. If outputPath already holds a
// file, its content is read back and concatenated ahead of batches.
func (w *Writer) WriteBulk(outputPath string, schema *arrow.Schema, estimateBytes int64, batches []arrow.Record) error {
	existing, err := readExistingRecords(outputPath)
	if err != nil {
		return err
	}
	defer func() {
		for _, rec := range existing {
			rec.Release()
		}
	}()

	full := make([]arrow.Record, 0, len(existing)+len(batches))
	full = append(full, existing...)
	full = append(full, batches...)

	ow, err := open(outputPath, schema, estimateBytes)
	if err != nil {
		return err
	}
	for _, rec := range full {
		if err := ow.out.Write(rec); err != nil {
			ow.abort()
			return fmt.Errorf("writing batch to %s: %w", outputPath, err)
		}
	}
	return ow.commit(outputPath)
}
