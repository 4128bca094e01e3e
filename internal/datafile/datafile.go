// Package datafile turns uploaded dataset files into rows.
package datafile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Row maps column name to value. Missing or empty cells are nil. CSV cells
// are strings; JSON numbers are json.Number.
type Row map[string]any

// Table is a parsed file. Columns keep file order (CSV header order, or first
// appearance for JSON).
type Table struct {
	Columns []string
	Rows    []Row
}

var ErrUnsupportedFormat = errors.New("unsupported file format")

// DetectFormat guesses the format from a file name. "" when unknown.
func DetectFormat(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "csv":
		return FormatCSV
	case "json":
		return FormatJSON
	case "jsonl", "ndjson":
		return FormatJSONL
	}
	return ""
}

func Supported(format string) bool {
	switch format {
	case FormatCSV, FormatJSON, FormatJSONL:
		return true
	}
	return false
}

func Read(format string, r io.Reader) (*Table, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		return readJSON(r)
	case FormatJSONL:
		return readJSONL(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func ReadBytes(format string, b []byte) (*Table, error) {
	return Read(format, bytes.NewReader(b))
}

func readCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{Columns: []string{}, Rows: []Row{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[i] = h
	}

	t := &Table{Columns: cols, Rows: []Row{}}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if i < len(rec) && rec[i] != "" {
				row[c] = rec[i]
			} else {
				row[c] = nil
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// readJSON accepts an array of objects or a single object.
func readJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{Columns: []string{}, Rows: []Row{}}, nil
		}
		return nil, fmt.Errorf("json: %w", err)
	}
	var objs []map[string]any
	switch v := raw.(type) {
	case []any:
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("json: element %d is not an object", i)
			}
			objs = append(objs, m)
		}
	case map[string]any:
		objs = append(objs, v)
	default:
		return nil, fmt.Errorf("json: expected an array of objects")
	}
	return tableFromObjects(objs), nil
}

func readJSONL(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var objs []map[string]any
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		objs = append(objs, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: %w", err)
	}
	return tableFromObjects(objs), nil
}

func tableFromObjects(objs []map[string]any) *Table {
	t := &Table{Columns: []string{}, Rows: make([]Row, 0, len(objs))}
	seen := map[string]bool{}
	for _, m := range objs {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
	}
	for _, m := range objs {
		row := make(Row, len(t.Columns))
		for _, c := range t.Columns {
			row[c] = m[c]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Present reports whether the column appears in the file at all.
func (t *Table) Present(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}
