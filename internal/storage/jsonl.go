package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"tokenflow/internal/model"
)

const maxLineSize = 64 * 1024 * 1024

// JSONLWriter writes one JSON document per line.
type JSONLWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// NewJSONLWriter opens path for writing, creating parent directories.
func NewJSONLWriter(path string, appendMode bool) (*JSONLWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &JSONLWriter{file: file, writer: bufio.NewWriter(file)}, nil
}

func (w *JSONLWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *JSONLWriter) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	return w.file.Close()
}

// LineError reports an input line that is not a valid transaction.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// TransactionReader scans transactions from a JSONL stream, skipping blank lines.
type TransactionReader struct {
	scanner *bufio.Scanner
	line    int
}

func NewTransactionReader(r io.Reader) *TransactionReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &TransactionReader{scanner: scanner}
}

// Next returns the next transaction and its 1-based line number. It returns
// io.EOF after the last line. A line that fails to parse is returned as a
// *LineError and the reader stays usable.
func (r *TransactionReader) Next() (model.Transaction, int, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var tx model.Transaction
		if err := json.Unmarshal(line, &tx); err != nil {
			return model.Transaction{}, r.line, &LineError{Line: r.line, Err: err}
		}
		return tx, r.line, nil
	}
	if err := r.scanner.Err(); err != nil {
		return model.Transaction{}, r.line, fmt.Errorf("scan input: %w", err)
	}
	return model.Transaction{}, r.line, io.EOF
}
