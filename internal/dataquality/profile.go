package dataquality

import (
	"fmt"

	"github.com/yungbote/tagledger-backend/internal/datafile"
)

// ColumnStats describes one column. A column is numeric when every non-null
// value parses as a number; min/max are then numbers and mean/sum are set.
// Otherwise min/max compare the values as strings.
type ColumnStats struct {
	Count         int      `json:"count"`
	NullCount     int      `json:"null_count"`
	DistinctCount int      `json:"distinct_count"`
	Numeric       bool     `json:"numeric"`
	Min           any      `json:"min"`
	Max           any      `json:"max"`
	Mean          *float64 `json:"mean"`
	Sum           *float64 `json:"sum,omitempty"`
}

type Profile struct {
	RowCount    int                     `json:"row_count"`
	ColumnCount int                     `json:"column_count"`
	Columns     map[string]*ColumnStats `json:"columns"`
}

func ProfileTable(tbl *datafile.Table) *Profile {
	p := &Profile{Columns: map[string]*ColumnStats{}}
	if tbl == nil {
		return p
	}
	p.RowCount = len(tbl.Rows)
	p.ColumnCount = len(tbl.Columns)
	for _, c := range tbl.Columns {
		p.Columns[c] = Stats(Column(tbl.Rows, c))
	}
	return p
}

// Column collects one column's values in row order.
func Column(rows []datafile.Row, col string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r[col]
	}
	return out
}

func Stats(values []any) *ColumnStats {
	st := &ColumnStats{}
	distinct := map[string]struct{}{}
	nums := make([]float64, 0, len(values))
	strs := make([]string, 0, len(values))
	allNumeric := true

	for _, v := range values {
		if IsNull(v) {
			st.NullCount++
			continue
		}
		st.Count++
		s := fmt.Sprint(v)
		distinct[s] = struct{}{}
		strs = append(strs, s)
		if f, ok := AsFloat(v); ok && allNumeric {
			nums = append(nums, f)
		} else {
			allNumeric = false
		}
	}
	st.DistinctCount = len(distinct)
	if st.Count == 0 {
		return st
	}

	if allNumeric {
		st.Numeric = true
		lo, hi, sum := nums[0], nums[0], 0.0
		for _, f := range nums {
			if f < lo {
				lo = f
			}
			if f > hi {
				hi = f
			}
			sum += f
		}
		mean := sum / float64(len(nums))
		st.Min, st.Max, st.Mean, st.Sum = lo, hi, &mean, &sum
		return st
	}

	lo, hi := strs[0], strs[0]
	for _, s := range strs {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	st.Min, st.Max = lo, hi
	return st
}
