// Package analytics runs the fixed aggregations an analysis template can declare.
package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/tagledger-backend/internal/datafile"
	"github.com/yungbote/tagledger-backend/internal/dataquality"
	"github.com/yungbote/tagledger-backend/internal/platform/jsonschema"
)

const (
	AggBasicStats    = "basic_stats"
	AggCount         = "count"
	AggSum           = "sum"
	AggMean          = "mean"
	AggMin           = "min"
	AggMax           = "max"
	AggDistinctCount = "distinct_count"
)

var Aggregations = []string{AggBasicStats, AggCount, AggSum, AggMean, AggMin, AggMax, AggDistinctCount}

// ConfigSchema constrains AnalysisTemplate.configuration and AnalysisRun.parameters.
var ConfigSchema = jsonschema.MustCompile(`{
  "type": "object",
  "properties": {
    "aggregation": {"enum": ["basic_stats", "count", "sum", "mean", "min", "max", "distinct_count"]},
    "columns": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "group_by": {"type": "string"}
  },
  "additionalProperties": true
}`)

type Config struct {
	Aggregation string   `json:"aggregation"`
	Columns     []string `json:"columns,omitempty"`
	GroupBy     string   `json:"group_by,omitempty"`
}

func IsAggregation(s string) bool {
	for _, a := range Aggregations {
		if a == s {
			return true
		}
	}
	return false
}

// ResolveConfig layers run parameters over the template configuration. When
// neither names an aggregation, templateType is used if it is one, else
// basic_stats.
func ResolveConfig(templateType string, configuration, parameters []byte) (Config, error) {
	var cfg Config
	for _, raw := range [][]byte{configuration, parameters} {
		if len(strings.TrimSpace(string(raw))) == 0 || strings.TrimSpace(string(raw)) == "null" {
			continue
		}
		if err := ConfigSchema.Validate(raw); err != nil {
			return Config{}, err
		}
		var layer Config
		if err := json.Unmarshal(raw, &layer); err != nil {
			return Config{}, fmt.Errorf("decode configuration: %w", err)
		}
		if layer.Aggregation != "" {
			cfg.Aggregation = layer.Aggregation
		}
		if len(layer.Columns) > 0 {
			cfg.Columns = layer.Columns
		}
		if layer.GroupBy != "" {
			cfg.GroupBy = layer.GroupBy
		}
	}
	if cfg.Aggregation == "" {
		if IsAggregation(templateType) {
			cfg.Aggregation = templateType
		} else {
			cfg.Aggregation = AggBasicStats
		}
	}
	return cfg, nil
}

// Run evaluates cfg over tbl. Unknown columns are errors.
func Run(cfg Config, tbl *datafile.Table) (map[string]any, error) {
	if tbl == nil {
		return nil, fmt.Errorf("no rows to analyze")
	}
	if !IsAggregation(cfg.Aggregation) {
		return nil, fmt.Errorf("unknown aggregation %q", cfg.Aggregation)
	}
	cols := cfg.Columns
	if len(cols) == 0 {
		for _, c := range tbl.Columns {
			if c != cfg.GroupBy {
				cols = append(cols, c)
			}
		}
	}
	for _, c := range cols {
		if !tbl.Present(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
	}
	if cfg.GroupBy != "" && !tbl.Present(cfg.GroupBy) {
		return nil, fmt.Errorf("unknown group_by column %q", cfg.GroupBy)
	}

	out := map[string]any{
		"type":         cfg.Aggregation,
		"row_count":    len(tbl.Rows),
		"column_count": len(tbl.Columns),
	}
	if cfg.GroupBy == "" {
		out["columns"] = aggregate(cfg.Aggregation, cols, tbl.Rows)
		return out, nil
	}

	groups := map[string][]datafile.Row{}
	var keys []string
	for _, r := range tbl.Rows {
		k := "null"
		if v := r[cfg.GroupBy]; !dataquality.IsNull(v) {
			k = fmt.Sprint(v)
		}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	sort.Strings(keys)
	res := make(map[string]any, len(keys))
	for _, k := range keys {
		res[k] = map[string]any{
			"row_count": len(groups[k]),
			"columns":   aggregate(cfg.Aggregation, cols, groups[k]),
		}
	}
	out["group_by"] = cfg.GroupBy
	out["groups"] = res
	return out, nil
}

func aggregate(agg string, cols []string, rows []datafile.Row) map[string]any {
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		st := dataquality.Stats(dataquality.Column(rows, c))
		switch agg {
		case AggBasicStats:
			out[c] = st
		case AggCount:
			out[c] = st.Count
		case AggDistinctCount:
			out[c] = st.DistinctCount
		case AggSum:
			out[c] = numeric(st, st.Sum)
		case AggMean:
			out[c] = numeric(st, st.Mean)
		case AggMin:
			out[c] = st.Min
		case AggMax:
			out[c] = st.Max
		}
	}
	return out
}

// numeric yields nil for columns that are not numeric.
func numeric(st *dataquality.ColumnStats, v *float64) any {
	if !st.Numeric || v == nil {
		return nil
	}
	return *v
}
