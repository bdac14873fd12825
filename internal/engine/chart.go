package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/schema"
)

// MaxSeriesPoints caps the number of buckets a chart displays.
const MaxSeriesPoints = 10

// OtherBucket labels rows whose grouping field is absent or null.
const OtherBucket = "Other"

// Point is one bucket of a chart series.
type Point struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MarshalJSON encodes a non-finite value as null.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string   `json:"name"`
		Value *float64 `json:"value"`
	}{p.Name, finite(p.Value)})
}

// ChartState is the interactive state of a single chart: the aggregation the
// user picked and the category drilled into, if any.
type ChartState struct {
	Aggregation schema.Aggregation `json:"aggregation"`
	DrillValue  string             `json:"drillValue,omitempty"`
}

// InitialChartState seeds the aggregation from the chart definition, undrilled.
func InitialChartState(def schema.ChartDef) ChartState {
	return ChartState{Aggregation: schema.AggregationOrSum(def.Aggregation)}
}

// Drilled reports whether a drill value is active.
func (s ChartState) Drilled() bool { return s.DrillValue != "" }

// Select handles a click on a bucket. It drills into name when the chart is
// undrilled and declares a distinct drill-down column; otherwise the state is
// returned unchanged with ok false.
func (s ChartState) Select(def schema.ChartDef, name string) (next ChartState, ok bool) {
	if name == "" || s.Drilled() || !def.CanDrill() {
		return s, false
	}
	s.DrillValue = name
	return s, true
}

// Reset returns to the undrilled state, keeping the aggregation.
func (s ChartState) Reset() ChartState {
	s.DrillValue = ""
	return s
}

// WithAggregation switches the aggregation selector.
func (s ChartState) WithAggregation(a schema.Aggregation) ChartState {
	s.Aggregation = a
	return s
}

// Dimension is the column rows are grouped by in this state.
func (s ChartState) Dimension(def schema.ChartDef) string {
	if s.Drilled() {
		return def.DrillDownColumn
	}
	return def.XColumn
}

// Title is the chart title, suffixed with the drill value when drilled.
func (s ChartState) Title(def schema.ChartDef) string {
	if s.Drilled() {
		return fmt.Sprintf("%s (%s)", def.Title, s.DrillValue)
	}
	return def.Title
}

// ComputeSeries groups the filtered rows by the current dimension and reduces
// each bucket with the state's aggregation. The series is sorted by value,
// descending, with ties kept in first-seen order, and holds at most
// MaxSeriesPoints entries. On error the series is empty.
func ComputeSeries(rows []dataset.Row, def schema.ChartDef, state ChartState) ([]Point, error) {
	var pts []Point
	err := isolate("chart "+def.Title, func() error {
		var err error
		pts, err = series(rows, def, state)
		return err
	})
	if err != nil {
		return []Point{}, err
	}
	return pts, nil
}

func series(rows []dataset.Row, def schema.ChartDef, state ChartState) ([]Point, error) {
	dim := state.Dimension(def)
	if dim == "" || def.YColumn == "" {
		return nil, fmt.Errorf("chart %q: %w", def.Title, ErrIncompleteChart)
	}
	if state.Drilled() {
		rows = ApplyFilters(rows, Selection{def.XColumn: state.DrillValue})
	}

	var order []string
	groups := map[string][]float64{}
	for _, r := range rows {
		key := OtherBucket
		if v, ok := r.Get(dim); ok && !v.IsNull() {
			key = v.String()
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r.NumberOrZero(def.YColumn))
	}

	out := make([]Point, 0, len(order))
	for _, name := range order {
		out = append(out, Point{Name: name, Value: reduce(state.Aggregation, groups[name])})
	}
	sort.SliceStable(out, func(i, j int) bool { return descending(out[i].Value, out[j].Value) })
	if len(out) > MaxSeriesPoints {
		out = out[:MaxSeriesPoints]
	}
	return out, nil
}
