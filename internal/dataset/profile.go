package dataset

import (
	"sort"
	"strings"
	"time"
)

// ColumnType is the semantic type inferred for a column.
type ColumnType string

const (
	TypeNumeric ColumnType = "Numeric"
	TypeDate    ColumnType = "Date"
	TypeBoolean ColumnType = "Boolean"
	TypeString  ColumnType = "String"
)

// ColumnProfile captures inferred type and cardinality per column.
type ColumnProfile struct {
	OriginalName string     `json:"originalName"`
	Type         ColumnType `json:"type"`
	UniqueCount  int        `json:"uniqueCount"`
}

// Profile maps a column name to its profile.
type Profile map[string]ColumnProfile

// Names returns the profiled column names in sorted order.
func (p Profile) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the profile of col, or nil when the column was not profiled.
func (p Profile) Lookup(col string) *ColumnProfile {
	cp, ok := p[col]
	if !ok {
		return nil
	}
	return &cp
}

// ProfileRows classifies every column present in the first row. Cardinality is
// computed over all non-null values, but only the first non-null value of a
// column decides its type; a column whose values change type midway is
// profiled from its first value alone.
func ProfileRows(rows []Row) Profile {
	out := Profile{}
	if len(rows) == 0 {
		return out
	}
	for col := range rows[0] {
		seen := map[string]struct{}{}
		var first Value
		found := false
		for _, r := range rows {
			v, ok := r[col]
			if !ok || v.IsNull() {
				continue
			}
			if !found {
				first = v
				found = true
			}
			seen[v.String()] = struct{}{}
		}
		typ := TypeString
		if found {
			typ = inferType(first)
		}
		out[col] = ColumnProfile{OriginalName: col, Type: typ, UniqueCount: len(seen)}
	}
	return out
}

func inferType(v Value) ColumnType {
	if v.Kind() == KindNumber {
		return TypeNumeric
	}
	s := v.String()
	if len(s) > 5 && LooksLikeDate(s) {
		return TypeDate
	}
	if v.Kind() == KindBool {
		return TypeBoolean
	}
	return TypeString
}

var dateLayouts = []string{
	time.RFC3339, time.RFC3339Nano, time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC,
	"2006-01-02", "2006/01/02", "2006-01", "01/02/2006", "1/2/2006", "01-02-2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02T15:04:05",
	"1/2/2006 15:04", "1/2/2006 15:04:05",
	"Jan 2, 2006", "January 2, 2006", "Jan 2 2006", "2 Jan 2006", "02 Jan 2006", "Mon Jan 2 2006",
	"Jan 2006", "January 2006",
}

// LooksLikeDate reports whether s parses with one of the accepted date layouts.
func LooksLikeDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, l := range dateLayouts {
		if _, err := time.Parse(l, s); err == nil {
			return true
		}
	}
	return false
}
