// Package engine computes the derived views of a dashboard: the filtered row
// subset, KPI values and grouped chart series. Every function here is a pure
// function of its inputs; callers own all state.
package engine

import (
	"sort"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
)

// Selection maps a column to the single value rows must carry in that column.
// An empty value means no constraint.
type Selection map[string]string

// Clone returns an independent copy of s.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// With returns a copy of s with column constrained to value.
func (s Selection) With(column, value string) Selection {
	out := s.Clone()
	out[column] = value
	return out
}

// Without returns a copy of s with any constraint on column removed.
func (s Selection) Without(column string) Selection {
	out := s.Clone()
	delete(out, column)
	return out
}

// Active returns the constrained columns in sorted order.
func (s Selection) Active() []string {
	cols := make([]string, 0, len(s))
	for k, v := range s {
		if v != "" {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

// ActiveFilterCount returns the number of entries carrying a non-empty value.
func ActiveFilterCount(s Selection) int {
	n := 0
	for _, v := range s {
		if v != "" {
			n++
		}
	}
	return n
}

// ApplyFilters keeps the rows whose string-coerced value equals the selected
// value for every active constraint. Absent fields compare as "". Row order is
// preserved and the input slice is never modified.
func ApplyFilters(rows []dataset.Row, s Selection) []dataset.Row {
	active := s.Active()
	out := make([]dataset.Row, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		if matches(r, s, active) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r dataset.Row, s Selection, cols []string) bool {
	for _, c := range cols {
		if r.Text(c) != s[c] {
			return false
		}
	}
	return true
}
