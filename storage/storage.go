// Package storage persists a cleaned table as an Arrow IPC file so it can be
// re-inspected without re-running the pipeline.
package storage

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// SaveToDisk writes the record to a file on disk in the Arrow IPC file
// format. The schema is written first, followed by the record.
func SaveToDisk(filepath string, rec arrow.Record) error {
	// 1. Open file for writing
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", filepath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	// 2. Create an Arrow IPC FileWriter with the record's schema.
	writer, err := ipc.NewFileWriter(
		file,
		ipc.WithSchema(rec.Schema()),
		ipc.WithAllocator(memory.NewGoAllocator()),
	)
	if err != nil {
		return fmt.Errorf("failed to create Arrow file writer: %w", err)
	}

	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write record to Arrow file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow file writer: %w", err)
	}
	return nil
}

// LoadFromDisk reads a snapshot back into memory. The caller owns the
// returned record and must Release it. Snapshots written by SaveToDisk hold
// a single record; files with several batches are rejected rather than
// silently merged.
func LoadFromDisk(filepath string) (arrow.Record, error) {
	// 1. Open file for reading
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filepath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	// 2. Create an Arrow IPC FileReader
	reader, err := ipc.NewFileReader(
		file,
		ipc.WithAllocator(memory.NewGoAllocator()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file reader: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	if n := reader.NumRecords(); n != 1 {
		return nil, fmt.Errorf("snapshot %q holds %d record batches, want 1", filepath, n)
	}
	rec, err := reader.RecordAt(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read record from file: %w", err)
	}
	// Retain so the record outlives the reader.
	rec.Retain()
	return rec, nil
}
