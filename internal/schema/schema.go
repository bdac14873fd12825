package schema

import "strings"

// Aggregation selects how grouped numeric values are reduced.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggCount Aggregation = "count"
)

// Aggregations lists the selectable aggregations in display order.
var Aggregations = []Aggregation{AggSum, AggAvg, AggCount}

// ParseAggregation maps a case-insensitive name to an Aggregation.
func ParseAggregation(s string) (Aggregation, bool) {
	switch Aggregation(strings.ToLower(strings.TrimSpace(s))) {
	case AggSum:
		return AggSum, true
	case AggAvg:
		return AggAvg, true
	case AggCount:
		return AggCount, true
	}
	return AggSum, false
}

// AggregationOrSum parses s and falls back to sum for unknown names.
func AggregationOrSum(s string) Aggregation {
	a, _ := ParseAggregation(s)
	return a
}

// VisualType is the chart kind requested by the schema.
type VisualType string

const (
	VisualBar  VisualType = "bar"
	VisualLine VisualType = "line"
	VisualPie  VisualType = "pie"
)

// ParseVisualType lowercases s; anything other than line or pie renders as a bar chart.
func ParseVisualType(s string) VisualType {
	switch VisualType(strings.ToLower(strings.TrimSpace(s))) {
	case VisualLine:
		return VisualLine
	case VisualPie:
		return VisualPie
	}
	return VisualBar
}

// Dashboard is the normalized dashboard schema. Every field is populated; no
// element of a list fails its required-field check.
type Dashboard struct {
	Title    string      `json:"dashboardTitle" yaml:"dashboardTitle"`
	Summary  string      `json:"dashboardSummary" yaml:"dashboardSummary"`
	Filters  []FilterDef `json:"filters" yaml:"filters"`
	KPIs     []KPIDef    `json:"kpis" yaml:"kpis"`
	Charts   []ChartDef  `json:"charts" yaml:"charts"`
	Insights []string    `json:"keyInsights" yaml:"keyInsights"`
}

// FilterDef declares an equality filter on a column.
type FilterDef struct {
	ID         string   `json:"id" yaml:"id"`
	Column     string   `json:"column" yaml:"column"`
	Label      string   `json:"label" yaml:"label"`
	FilterType string   `json:"filterType" yaml:"filterType"`
	Options    []string `json:"options" yaml:"options"`
}

// KPIDef declares a single aggregated metric tile.
type KPIDef struct {
	Label          string `json:"label" yaml:"label"`
	Column         string `json:"column" yaml:"column"`
	Aggregation    string `json:"aggregation" yaml:"aggregation"`
	Prefix         string `json:"prefix" yaml:"prefix"`
	Suffix         string `json:"suffix" yaml:"suffix"`
	BusinessReason string `json:"business_reason" yaml:"business_reason"`
}

// ChartDef declares a grouped chart with an optional drill-down dimension.
type ChartDef struct {
	VisualType      VisualType `json:"visualType" yaml:"visualType"`
	Title           string     `json:"title" yaml:"title"`
	XColumn         string     `json:"xColumn" yaml:"xColumn"`
	YColumn         string     `json:"yColumn" yaml:"yColumn"`
	Aggregation     string     `json:"aggregation" yaml:"aggregation"`
	Insight         string     `json:"insight" yaml:"insight"`
	DrillDownColumn string     `json:"drillDownColumn" yaml:"drillDownColumn"`
	BusinessReason  string     `json:"business_reason" yaml:"business_reason"`
}

// CanDrill reports whether the chart declares a drill-down dimension distinct from its x axis.
func (c ChartDef) CanDrill() bool {
	return c.DrillDownColumn != "" && c.DrillDownColumn != c.XColumn
}

// Empty returns a structurally complete schema with no content.
func Empty() Dashboard {
	return Dashboard{
		Filters:  []FilterDef{},
		KPIs:     []KPIDef{},
		Charts:   []ChartDef{},
		Insights: []string{},
	}
}
