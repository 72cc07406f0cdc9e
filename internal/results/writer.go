package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PersistenceError reports a failed append to the result log. Callers must
// treat the attempted unit as incomplete; a write failure is never
// downgraded to a logged warning.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist result to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Writer appends records to a JSONL log. The file is opened append-only and
// every record is flushed to disk before Append returns, so a crash between
// appends never leaves a partial line and concurrent readers always see
// whole records.
type Writer struct {
	path string
	file *os.File
}

// NewWriter opens (or creates) the log at path for appending.
func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &PersistenceError{Path: path, Err: err}
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, &PersistenceError{Path: path, Err: err}
	}

	return &Writer{path: path, file: file}, nil
}

// Path returns the log file location.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one record as a single JSONL line and syncs it to disk.
// Existing content is never rewritten or truncated.
func (w *Writer) Append(record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return &PersistenceError{Path: w.path, Err: err}
	}

	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return &PersistenceError{Path: w.path, Err: err}
	}

	if err := w.file.Sync(); err != nil {
		return &PersistenceError{Path: w.path, Err: err}
	}

	return nil
}

// Close releases the underlying file handle.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
