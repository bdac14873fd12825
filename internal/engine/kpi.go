package engine

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/schema"
)

// Placeholder is displayed in place of a KPI value that could not be computed.
const Placeholder = "—"

// KPIResult is a KPI definition together with its computed value.
type KPIResult struct {
	schema.KPIDef
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Err     error   `json:"-"`
}

// MarshalJSON encodes the result like the struct itself, except that a
// non-finite value becomes null.
func (k KPIResult) MarshalJSON() ([]byte, error) {
	type plain KPIResult
	return json.Marshal(struct {
		plain
		Value *float64 `json:"value"`
	}{plain(k), finite(k.Value)})
}

// Failed reports whether the KPI could not be computed.
func (k KPIResult) Failed() bool { return k.Err != nil }

// ComputeKPIs evaluates every KPI over the filtered rows. A failing KPI gets
// the placeholder display and its error; the others are unaffected.
func ComputeKPIs(rows []dataset.Row, defs []schema.KPIDef) []KPIResult {
	out := make([]KPIResult, 0, len(defs))
	for _, def := range defs {
		res := KPIResult{KPIDef: def}
		err := isolate("kpi "+def.Label, func() error {
			v, err := ComputeKPI(rows, def)
			if err != nil {
				return err
			}
			res.Value = v
			res.Display = def.Prefix + FormatMagnitude(v) + def.Suffix
			return nil
		})
		if err != nil {
			res.Value = 0
			res.Display = Placeholder
			res.Err = err
		}
		out = append(out, res)
	}
	return out
}

// ComputeKPI aggregates one KPI. Sum and avg consider only values with a
// numeric reading; count is the number of rows.
func ComputeKPI(rows []dataset.Row, def schema.KPIDef) (float64, error) {
	if def.Column == "" {
		return 0, fmt.Errorf("kpi %q: %w", def.Label, ErrUnknownColumn)
	}
	if len(rows) > 0 && !anyHas(rows, def.Column) {
		return 0, fmt.Errorf("kpi %q: column %q: %w", def.Label, def.Column, ErrUnknownColumn)
	}
	agg := schema.AggregationOrSum(def.Aggregation)
	if agg == schema.AggCount {
		return float64(len(rows)), nil
	}
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		if n := r.Number(def.Column); !math.IsNaN(n) {
			vals = append(vals, n)
		}
	}
	return reduce(agg, vals), nil
}

func anyHas(rows []dataset.Row, col string) bool {
	for _, r := range rows {
		if r.Has(col) {
			return true
		}
	}
	return false
}
