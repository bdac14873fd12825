package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/schema"
)

func salesRows() []dataset.Row {
	return []dataset.Row{
		{"region": dataset.String("East"), "city": dataset.String("Boston"), "sales": dataset.Number(100)},
		{"region": dataset.String("East"), "city": dataset.String("NYC"), "sales": dataset.Number(50)},
		{"region": dataset.String("West"), "city": dataset.String("LA"), "sales": dataset.Number(200)},
	}
}

func TestApplyFilters(t *testing.T) {
	rows := salesRows()
	assert.Len(t, ApplyFilters(rows, nil), 3)
	assert.Len(t, ApplyFilters(rows, Selection{"region": ""}), 3)
	west := ApplyFilters(rows, Selection{"region": "West"})
	require.Len(t, west, 1)
	assert.Equal(t, "LA", west[0].Text("city"))
	assert.Empty(t, ApplyFilters(rows, Selection{"missing": "x"}))
	assert.Len(t, ApplyFilters(rows, Selection{"missing": ""}), 3)
}

func TestApplyFilters_StringCoercion(t *testing.T) {
	rows := []dataset.Row{
		{"n": dataset.Number(1)},
		{"n": dataset.String("1")},
		{"n": dataset.Bool(true)},
		{"n": dataset.Null()},
		{},
	}
	assert.Len(t, ApplyFilters(rows, Selection{"n": "1"}), 2)
	assert.Len(t, ApplyFilters(rows, Selection{"n": "true"}), 1)
}

func TestApplyFilters_IdempotentAndMonotonic(t *testing.T) {
	rows := salesRows()
	sels := []Selection{
		{},
		{"region": "East"},
		{"region": "East", "city": "NYC"},
		{"region": "East", "city": "NYC", "sales": "50"},
	}
	prev := len(rows) + 1
	for _, s := range sels {
		once := ApplyFilters(rows, s)
		assert.Equal(t, once, ApplyFilters(once, s))
		assert.LessOrEqual(t, len(once), prev)
		prev = len(once)
	}
}

func TestSelectionHelpers(t *testing.T) {
	s := Selection{"a": "1"}
	w := s.With("b", "2")
	assert.Len(t, s, 1)
	assert.Equal(t, 2, ActiveFilterCount(w))
	assert.Equal(t, []string{"a", "b"}, w.Active())
	assert.Equal(t, 1, ActiveFilterCount(w.Without("a")))
	assert.Equal(t, 1, ActiveFilterCount(Selection{"a": "1", "b": ""}))
}

func TestComputeKPIs_Scenario(t *testing.T) {
	defs := []schema.KPIDef{{Label: "Sales", Column: "sales", Aggregation: "sum"}}
	res := ComputeKPIs(salesRows(), defs)
	require.Len(t, res, 1)
	assert.Equal(t, "150", res[0].Display)
	assert.NoError(t, res[0].Err)

	res = ComputeKPIs(ApplyFilters(salesRows(), Selection{"region": "West"}), defs)
	assert.Equal(t, "200", res[0].Display)
}

func TestComputeKPI_AvgSkipsNonNumeric(t *testing.T) {
	rows := []dataset.Row{
		{"v": dataset.Number(10)},
		{"v": dataset.String("bad")},
		{"v": dataset.Number(30)},
	}
	v, err := ComputeKPI(rows, schema.KPIDef{Label: "A", Column: "v", Aggregation: "avg"})
	require.NoError(t, err)
	assert.Equal(t, 20.0, v)

	v, err = ComputeKPI(rows, schema.KPIDef{Label: "C", Column: "v", Aggregation: "count"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = ComputeKPI(nil, schema.KPIDef{Label: "E", Column: "v", Aggregation: "avg"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestComputeKPIs_Isolation(t *testing.T) {
	defs := []schema.KPIDef{
		{Label: "Bad", Column: "nope"},
		{Label: "Revenue", Column: "sales", Prefix: "$", Suffix: " USD"},
		{Label: "Blank", Column: ""},
	}
	res := ComputeKPIs(salesRows(), defs)
	require.Len(t, res, 3)
	assert.Equal(t, Placeholder, res[0].Display)
	assert.True(t, errors.Is(res[0].Err, ErrUnknownColumn))
	assert.Equal(t, "$350 USD", res[1].Display)
	assert.True(t, res[2].Failed())
	assert.Equal(t, Placeholder, res[2].Display)
}

func TestFormatMagnitude(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999.4, "999"},
		{999.5, "1,000"},
		{2.5, "3"},
		{-2.5, "-2"},
		{-1500, "-1,500"},
		{1000, "1.0K"},
		{1250, "1.3K"},
		{15430, "15.4K"},
		{999999, "1000.0K"},
		{1e6, "1.0M"},
		{2_345_678, "2.3M"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatMagnitude(c.in), "FormatMagnitude(%v)", c.in)
	}
}

func TestComputeSeries_Scenario(t *testing.T) {
	def := schema.ChartDef{Title: "By region", XColumn: "region", YColumn: "sales", Aggregation: "sum", VisualType: schema.VisualBar}
	pts, err := ComputeSeries(salesRows(), def, InitialChartState(def))
	require.NoError(t, err)
	assert.Equal(t, []Point{{Name: "West", Value: 200}, {Name: "East", Value: 150}}, pts)
}

func TestComputeSeries_AggregationSelector(t *testing.T) {
	def := schema.ChartDef{Title: "t", XColumn: "region", YColumn: "sales", Aggregation: "sum"}
	st := InitialChartState(def).WithAggregation(schema.AggCount)
	pts, err := ComputeSeries(salesRows(), def, st)
	require.NoError(t, err)
	assert.Equal(t, []Point{{Name: "East", Value: 2}, {Name: "West", Value: 1}}, pts)

	pts, err = ComputeSeries(salesRows(), def, st.WithAggregation(schema.AggAvg))
	require.NoError(t, err)
	assert.Equal(t, []Point{{Name: "West", Value: 200}, {Name: "East", Value: 75}}, pts)
}

func TestComputeSeries_OtherBucketAndNonNumeric(t *testing.T) {
	rows := []dataset.Row{
		{"k": dataset.String("a"), "v": dataset.String("x")},
		{"k": dataset.Null(), "v": dataset.Number(4)},
		{"v": dataset.Number(1)},
	}
	def := schema.ChartDef{Title: "t", XColumn: "k", YColumn: "v"}
	pts, err := ComputeSeries(rows, def, InitialChartState(def))
	require.NoError(t, err)
	assert.Equal(t, []Point{{Name: "Other", Value: 5}, {Name: "a", Value: 0}}, pts)
}

func TestComputeSeries_Truncation(t *testing.T) {
	var rows []dataset.Row
	for i := 0; i < 25; i++ {
		rows = append(rows, dataset.Row{"k": dataset.String(fmt.Sprintf("g%02d", i)), "v": dataset.Number(float64(i % 7))})
	}
	def := schema.ChartDef{Title: "t", XColumn: "k", YColumn: "v"}
	pts, err := ComputeSeries(rows, def, InitialChartState(def))
	require.NoError(t, err)
	require.Len(t, pts, MaxSeriesPoints)
	for i := 1; i < len(pts); i++ {
		assert.GreaterOrEqual(t, pts[i-1].Value, pts[i].Value)
	}
	// ties keep first-seen order
	assert.Equal(t, "g06", pts[0].Name)
	assert.Equal(t, "g13", pts[1].Name)
	assert.Equal(t, "g20", pts[2].Name)
}

func TestComputeSeries_Incomplete(t *testing.T) {
	pts, err := ComputeSeries(salesRows(), schema.ChartDef{Title: "t", XColumn: "region"}, ChartState{})
	assert.ErrorIs(t, err, ErrIncompleteChart)
	assert.NotNil(t, pts)
	assert.Empty(t, pts)

	pts, err = ComputeSeries(nil, schema.ChartDef{Title: "t", XColumn: "region", YColumn: "sales"}, ChartState{})
	assert.NoError(t, err)
	assert.Empty(t, pts)
}

func TestDrillDown(t *testing.T) {
	def := schema.ChartDef{Title: "Sales", XColumn: "region", YColumn: "sales", DrillDownColumn: "city"}
	st := InitialChartState(def)
	assert.Equal(t, schema.AggSum, st.Aggregation)

	st, ok := st.Select(def, "East")
	require.True(t, ok)
	assert.Equal(t, "city", st.Dimension(def))
	assert.Equal(t, "Sales (East)", st.Title(def))

	pts, err := ComputeSeries(salesRows(), def, st)
	require.NoError(t, err)
	assert.Equal(t, []Point{{Name: "Boston", Value: 100}, {Name: "NYC", Value: 50}}, pts)

	again, ok := st.Select(def, "West")
	assert.False(t, ok)
	assert.Equal(t, "East", again.DrillValue)

	back := st.Reset()
	assert.False(t, back.Drilled())
	assert.Equal(t, "region", back.Dimension(def))
	assert.Equal(t, "Sales", back.Title(def))
}

func TestDrillDown_NotAllowed(t *testing.T) {
	same := schema.ChartDef{XColumn: "region", YColumn: "sales", DrillDownColumn: "region"}
	_, ok := InitialChartState(same).Select(same, "East")
	assert.False(t, ok)

	none := schema.ChartDef{XColumn: "region", YColumn: "sales"}
	_, ok = InitialChartState(none).Select(none, "East")
	assert.False(t, ok)

	withDrill := schema.ChartDef{XColumn: "region", YColumn: "sales", DrillDownColumn: "city"}
	_, ok = InitialChartState(withDrill).Select(withDrill, "")
	assert.False(t, ok)
}

func TestNonFiniteValues(t *testing.T) {
	rows := []dataset.Row{
		{"k": dataset.String("a"), "v": dataset.String("Infinity")},
		{"k": dataset.String("a"), "v": dataset.String("-Infinity")},
		{"k": dataset.String("b"), "v": dataset.Number(3)},
	}
	def := schema.ChartDef{Title: "t", XColumn: "k", YColumn: "v"}
	pts, err := ComputeSeries(rows, def, InitialChartState(def))
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "b", pts[0].Name)
	assert.Equal(t, "a", pts[1].Name)
	assert.True(t, math.IsNaN(pts[1].Value))

	data, err := json.Marshal(pts)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"b","value":3},{"name":"a","value":null}]`, string(data))

	res := ComputeKPIs(rows, []schema.KPIDef{{Label: "Total", Column: "v", Aggregation: "sum"}})
	require.Len(t, res, 1)
	data, err = json.Marshal(res[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":null`)
	assert.Contains(t, string(data), `"label":"Total"`)
}

func TestDescendingPutsNaNLast(t *testing.T) {
	nan := math.NaN()
	assert.True(t, descending(2, 1))
	assert.False(t, descending(1, 2))
	assert.True(t, descending(-5, nan))
	assert.False(t, descending(nan, -5))
	assert.False(t, descending(nan, nan))
}

func TestIsolateRecoversPanic(t *testing.T) {
	err := isolate("chart Sales", func() error {
		var m map[string]int
		m["boom"]++
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chart Sales")

	assert.NoError(t, isolate("ok", func() error { return nil }))
	sentinel := errors.New("plain failure")
	assert.ErrorIs(t, isolate("kpi", func() error { return sentinel }), sentinel)
}
