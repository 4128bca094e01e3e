// Package dataquality checks parsed dataset rows against a schema and computes
// per-column statistics.
package dataquality

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/tagledger-backend/internal/datafile"
	"github.com/yungbote/tagledger-backend/internal/domain/catalog"
)

// maxIssuesPerField caps row-level messages for one column.
const maxIssuesPerField = 20

// FieldSpec is the part of a schema field validation needs.
type FieldSpec struct {
	Name     string
	Type     string
	Required bool
	Nullable bool
}

type Issue struct {
	Field   string `json:"field,omitempty"`
	Row     int    `json:"row,omitempty"`
	Message string `json:"message"`
}

// Report is stored verbatim as the dataset's validation_report.
type Report struct {
	Valid       bool    `json:"valid"`
	Errors      []Issue `json:"errors"`
	Warnings    []Issue `json:"warnings"`
	RecordCount int     `json:"record_count"`
	ColumnCount int     `json:"column_count"`
}

func NewReport() *Report {
	return &Report{Valid: true, Errors: []Issue{}, Warnings: []Issue{}}
}

func (r *Report) Fail(field string, row int, format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, Issue{Field: field, Row: row, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) Warn(field, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func FieldsFromSchema(fields []*catalog.DataField) []FieldSpec {
	out := make([]FieldSpec, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldSpec{Name: f.Name, Type: f.FieldType, Required: f.Required, Nullable: f.Nullable})
	}
	return out
}

// Validate never returns an error: every data problem lands in the report.
// With no fields the file is only counted.
func Validate(fields []FieldSpec, tbl *datafile.Table) *Report {
	rep := NewReport()
	if tbl == nil {
		rep.Fail("", 0, "no rows to validate")
		return rep
	}
	rep.RecordCount = len(tbl.Rows)
	rep.ColumnCount = len(tbl.Columns)
	if len(fields) == 0 {
		return rep
	}

	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		declared[f.Name] = true
		if !tbl.Present(f.Name) {
			if f.Required {
				rep.Fail(f.Name, 0, "missing required field: %s", f.Name)
			}
			continue
		}
		issues := 0
		for i, row := range tbl.Rows {
			if issues >= maxIssuesPerField {
				rep.Warn(f.Name, "further errors for %s suppressed", f.Name)
				break
			}
			v := row[f.Name]
			if IsNull(v) {
				if !f.Nullable {
					rep.Fail(f.Name, i+1, "null value in non-nullable field %s", f.Name)
					issues++
				}
				continue
			}
			if err := CheckType(f.Type, v); err != nil {
				rep.Fail(f.Name, i+1, "%s: %v", f.Name, err)
				issues++
			}
		}
	}
	for _, c := range tbl.Columns {
		if !declared[c] {
			rep.Warn(c, "extra field not in schema: %s", c)
		}
	}
	return rep
}

// IsNull treats nil and blank strings as missing.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CheckType reports whether a non-null value fits a schema field type. CSV
// values arrive as strings and are parsed; JSON values are checked natively.
func CheckType(fieldType string, v any) error {
	switch fieldType {
	case catalog.FieldTypeString:
		switch v.(type) {
		case map[string]any, []any:
			return fmt.Errorf("expected string, got %s", kindOf(v))
		}
		return nil
	case catalog.FieldTypeInteger:
		switch x := v.(type) {
		case json.Number:
			if _, err := x.Int64(); err == nil {
				return nil
			}
			if f, err := x.Float64(); err == nil && f == float64(int64(f)) {
				return nil
			}
		case string:
			if _, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return nil
			}
		}
		return fmt.Errorf("expected integer, got %s", describe(v))
	case catalog.FieldTypeFloat:
		if _, ok := AsFloat(v); ok {
			return nil
		}
		return fmt.Errorf("expected float, got %s", describe(v))
	case catalog.FieldTypeBoolean:
		switch x := v.(type) {
		case bool:
			return nil
		case string:
			if _, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return nil
			}
		}
		return fmt.Errorf("expected boolean, got %s", describe(v))
	case catalog.FieldTypeDatetime:
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			for _, layout := range datetimeLayouts {
				if _, err := time.Parse(layout, s); err == nil {
					return nil
				}
			}
		}
		return fmt.Errorf("expected datetime, got %s", describe(v))
	case catalog.FieldTypeJSON:
		switch x := v.(type) {
		case map[string]any, []any:
			return nil
		case string:
			if json.Valid([]byte(x)) {
				return nil
			}
		}
		return fmt.Errorf("expected JSON, got %s", describe(v))
	}
	return fmt.Errorf("unknown field type %q", fieldType)
}

// AsFloat converts numeric values and numeric strings.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func describe(v any) string {
	s := fmt.Sprint(v)
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return fmt.Sprintf("%s %q", kindOf(v), s)
}

func kindOf(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case json.Number, float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
