// Package artifact writes and reads the on-disk snapshots of a run: raw and
// processed tables as CSV, and the run report as JSON.
//
// Every write goes to a temporary file in the destination directory that is
// renamed over the target, so a reader never sees a half-written snapshot.
package artifact

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteCSV atomically writes header and rows to path.
func WriteCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows %s: %w", path, err)
	}
	return writeAtomic(path, buf.Bytes())
}

// WriteJSON atomically writes v to path as indented JSON.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// WriteRaw atomically writes data to path unchanged.
func WriteRaw(path string, data []byte) error {
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Reading
// --------------------------------------------------------------------------

// Table is a CSV file addressed by column name.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadCSV reads a CSV file with a header row. A UTF-8 byte order mark on the
// first column name is dropped and column names are trimmed.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ParseCSV reads a CSV table from r.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{index: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	t := &Table{Header: header, index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Has reports whether the table has a column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Missing returns the columns of cols that the table lacks.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the cell of row i in column col, or "" when either is absent.
func (t *Table) Get(i int, col string) string {
	j, ok := t.index[col]
	if !ok || i < 0 || i >= len(t.Rows) || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }
