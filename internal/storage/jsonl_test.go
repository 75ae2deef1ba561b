package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tokenflow/internal/model"
)

func TestJSONLWriterWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.jsonl")
	writer, err := NewJSONLWriter(path, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	records := []model.FailureRecord{
		{ChainID: 1, TxHash: "0x01", Stage: "events", Error: "boom"},
		{ChainID: 1, TxHash: "0x02", Error: "bad json"},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var got []model.FailureRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.FailureRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, record)
	}
	if len(got) != 2 || got[1].TxHash != "0x02" || got[0].Stage != "events" {
		t.Fatalf("records mismatch: %+v", got)
	}
}

func TestTransactionReader(t *testing.T) {
	input := strings.Join([]string{
		`{"chain_id": 1, "tx_hash": "0xaa", "block_number": 100, "call": {"call_type": "call", "status": true, "value": "1", "from_address": "0x1", "to_address": "0x2"}, "events": []}`,
		``,
		`{not json`,
		`{"chain_id": 1, "tx_hash": "0xbb", "block_number": 101}`,
	}, "\n")
	reader := NewTransactionReader(strings.NewReader(input))

	tx, line, err := reader.Next()
	if err != nil || tx.Hash != "0xaa" || line != 1 || tx.Root == nil || tx.Root.Value.Int64() != 1 {
		t.Fatalf("first tx mismatch: %+v %d %v", tx, line, err)
	}
	_, line, err = reader.Next()
	var lineErr *LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 3 || line != 3 {
		t.Fatalf("expected parse error on line 3, got %d %v", line, err)
	}
	tx, _, err = reader.Next()
	if err != nil || tx.Hash != "0xbb" || tx.BlockNumber != 101 {
		t.Fatalf("third tx mismatch: %+v %v", tx, err)
	}
	if _, _, err = reader.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}
