package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var raw any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestNormalize_NilAndNonObject(t *testing.T) {
	for _, raw := range []any{nil, "text", 42.0, []any{1.0}} {
		d := Normalize(raw)
		assert.Empty(t, d.Title)
		assert.Empty(t, d.Summary)
		assert.NotNil(t, d.Filters)
		assert.NotNil(t, d.KPIs)
		assert.NotNil(t, d.Charts)
		assert.NotNil(t, d.Insights)
		assert.Empty(t, d.KPIs)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	d := Normalize(map[string]any{})
	assert.Equal(t, DefaultTitle, d.Title)
	assert.Equal(t, DefaultSummary, d.Summary)
	assert.Empty(t, d.Filters)
	assert.Empty(t, d.Insights)
}

func TestNormalize_DropsKPIWithoutColumn(t *testing.T) {
	d, errs := Validate(decodeJSON(t, `{"kpis":[{"label":"X"}]}`))
	assert.Empty(t, d.KPIs)
	require.Len(t, errs, 1)
	assert.Equal(t, "kpis[0]", errs[0].Path)
	assert.Equal(t, "missing column", errs[0].Reason)
}

func TestNormalize_FullDocument(t *testing.T) {
	raw := decodeJSON(t, `{
		"dashboardTitle": "Sales",
		"filters": [
			{"id": "f1", "column": "region", "options": ["West", null, 3]},
			{"id": "", "column": "region"},
			"garbage"
		],
		"kpis": [
			{"label": "Revenue", "column": "amount", "prefix": "$"},
			{"label": "Avg", "column": "amount", "aggregation": "AVG", "suffix": "%"}
		],
		"charts": [
			{"visualType": "PIE", "xColumn": "region", "yColumn": "amount", "drillDownColumn": "city"},
			{"visualType": "bar", "xColumn": "region"}
		],
		"keyInsights": ["one", 2, null, "three"]
	}`)
	d, errs := Validate(raw)

	assert.Equal(t, "Sales", d.Title)
	assert.Equal(t, DefaultSummary, d.Summary)

	require.Len(t, d.Filters, 1)
	f := d.Filters[0]
	assert.Equal(t, "f1", f.ID)
	assert.Equal(t, "region", f.Label)
	assert.Equal(t, DefaultFilterType, f.FilterType)
	assert.Equal(t, []string{"West", "3"}, f.Options)

	require.Len(t, d.KPIs, 2)
	assert.Equal(t, "sum", d.KPIs[0].Aggregation)
	assert.Equal(t, "$", d.KPIs[0].Prefix)
	assert.Equal(t, "avg", d.KPIs[1].Aggregation)

	require.Len(t, d.Charts, 1)
	c := d.Charts[0]
	assert.Equal(t, VisualPie, c.VisualType)
	assert.Equal(t, DefaultChartTitle, c.Title)
	assert.Equal(t, "sum", c.Aggregation)
	assert.True(t, c.CanDrill())

	assert.Equal(t, []string{"one", "three"}, d.Insights)

	paths := make([]string, 0, len(errs))
	for _, e := range errs {
		paths = append(paths, e.Path)
	}
	assert.ElementsMatch(t, []string{"filters[1]", "filters[2]", "charts[1]", "keyInsights[1]", "keyInsights[2]"}, paths)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := decodeJSON(t, `{"dashboardTitle":"T","kpis":[{"label":"L","column":"c"}],
		"charts":[{"visualType":"line","xColumn":"x","yColumn":"y","aggregation":"count"}]}`)
	first := Normalize(raw)
	b, err := json.Marshal(first)
	require.NoError(t, err)
	second := Normalize(decodeJSON(t, string(b)))
	assert.Equal(t, first, second)
}

func TestParse_YAMLAndJSON(t *testing.T) {
	yml := []byte(`
dashboardTitle: Ops
kpis:
  - label: Tickets
    column: id
    aggregation: count
filters:
  - id: 7
    column: team
    options: [a, b]
`)
	d, errs, err := Parse(yml)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, "Ops", d.Title)
	require.Len(t, d.KPIs, 1)
	assert.Equal(t, "count", d.KPIs[0].Aggregation)
	require.Len(t, d.Filters, 1)
	assert.Equal(t, "7", d.Filters[0].ID)

	d, _, err = Parse([]byte(`{"dashboardSummary":"s"}`))
	require.NoError(t, err)
	assert.Equal(t, "s", d.Summary)
}

func TestParse_NotObject(t *testing.T) {
	_, _, err := Parse([]byte(`[1,2,3]`))
	assert.ErrorIs(t, err, ErrNotObject)

	_, _, err = Parse([]byte("{not: [valid"))
	assert.Error(t, err)
}

func TestParseAggregation(t *testing.T) {
	a, ok := ParseAggregation(" AVG ")
	assert.True(t, ok)
	assert.Equal(t, AggAvg, a)

	a, ok = ParseAggregation("median")
	assert.False(t, ok)
	assert.Equal(t, AggSum, a)
	assert.Equal(t, VisualBar, ParseVisualType("scatter"))
}
