package dataset

import (
	"encoding/json"
	"fmt"
	"math"
)

// Row is one record keyed by column name. A missing key means the field is
// absent, which is distinct from a present null value.
type Row map[string]Value

// Get returns the value stored at col and whether the key is present.
func (r Row) Get(col string) (Value, bool) {
	v, ok := r[col]
	return v, ok
}

// Has reports whether col is present in the row.
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Text returns the string coercion of the field; absent and null fields are "".
func (r Row) Text(col string) string {
	v, ok := r[col]
	if !ok {
		return ""
	}
	return v.String()
}

// Number returns the numeric coercion of the field, NaN when absent or not numeric.
func (r Row) Number(col string) float64 {
	v, ok := r[col]
	if !ok {
		return math.NaN()
	}
	return v.Number()
}

// NumberOrZero is Number with NaN replaced by 0.
func (r Row) NumberOrZero(col string) float64 {
	f := r.Number(col)
	if math.IsNaN(f) {
		return 0
	}
	return f
}

// Dataset is the immutable result of ingestion: the ordered rows plus the
// column order observed in the source and the originating file name.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// MarshalJSON encodes a row as a plain JSON object.
func (r Row) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Any()
	}
	return json.Marshal(out)
}

func stringifyComposite(x any) string {
	b, err := json.Marshal(x)
	if err != nil {
		return fmt.Sprint(x)
	}
	return string(b)
}
