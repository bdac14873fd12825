package dashboard

import (
	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/engine"
	"github.com/KaramelBytes/dashloom-cli/internal/schema"
)

// Tooltip titles.
const (
	TooltipDimension = "X-Axis"
	TooltipMetric    = "Metric"
	TooltipKPI       = "Metric Logic"
)

// View is everything the presentation layer needs to draw the dashboard.
type View struct {
	SessionID     string             `json:"sessionId"`
	Source        string             `json:"source"`
	Title         string             `json:"dashboardTitle"`
	Summary       string             `json:"dashboardSummary"`
	Filters       []FilterView       `json:"filters"`
	ActiveFilters int                `json:"activeFilters"`
	Records       int                `json:"records"`
	TotalRecords  int                `json:"totalRecords"`
	KPIs          []engine.KPIResult `json:"kpis"`
	Charts        []ChartView        `json:"charts"`
	Insights      []string           `json:"keyInsights"`
	Tooltip       *Tooltip           `json:"tooltip,omitempty"`
}

// FilterView is a declared filter with its current value ("" when unconstrained).
type FilterView struct {
	schema.FilterDef
	Value string `json:"value"`
}

// ChartView is one chart's computed series and interactive state.
type ChartView struct {
	Index       int                `json:"index"`
	Title       string             `json:"title"`
	VisualType  schema.VisualType  `json:"visualType"`
	Dimension   string             `json:"dimension"`
	Metric      string             `json:"metric"`
	Aggregation schema.Aggregation `json:"aggregation"`
	DrillValue  string             `json:"drillValue,omitempty"`
	Drillable   bool               `json:"drillable"`
	Insight     string             `json:"insight,omitempty"`
	Points      []engine.Point     `json:"points"`
	NoData      bool               `json:"noData"`
	Error       string             `json:"error,omitempty"`
}

// Tooltip is the hover payload: the profile of the hovered column and the
// free-text explanation attached to it.
type Tooltip struct {
	Title   string                 `json:"title"`
	Column  string                 `json:"column"`
	Profile *dataset.ColumnProfile `json:"profile,omitempty"`
	Insight string                 `json:"insight,omitempty"`
}

// View recomputes the filtered rows, KPIs and chart series from the current state.
func (s *Session) View() View {
	rows := engine.ApplyFilters(s.data.Rows, s.selection)
	v := View{
		SessionID:     s.id,
		Source:        s.data.Name,
		Title:         s.schema.Title,
		Summary:       s.schema.Summary,
		Filters:       make([]FilterView, 0, len(s.schema.Filters)),
		ActiveFilters: engine.ActiveFilterCount(s.selection),
		Records:       len(rows),
		TotalRecords:  s.data.Len(),
		KPIs:          engine.ComputeKPIs(rows, s.schema.KPIs),
		Charts:        make([]ChartView, 0, len(s.schema.Charts)),
		Insights:      s.schema.Insights,
		Tooltip:       s.tooltip(),
	}
	for _, f := range s.schema.Filters {
		v.Filters = append(v.Filters, FilterView{FilterDef: f, Value: s.selection[f.Column]})
	}
	for _, k := range v.KPIs {
		if k.Err != nil {
			s.log.Debug("kpi unavailable", "label", k.Label, "error", k.Err)
		}
	}
	for i, def := range s.schema.Charts {
		st := s.charts[i]
		pts, err := engine.ComputeSeries(rows, def, st)
		cv := ChartView{
			Index:       i,
			Title:       st.Title(def),
			VisualType:  def.VisualType,
			Dimension:   st.Dimension(def),
			Metric:      def.YColumn,
			Aggregation: st.Aggregation,
			DrillValue:  st.DrillValue,
			Drillable:   def.CanDrill() && !st.Drilled(),
			Insight:     def.Insight,
			Points:      pts,
			NoData:      len(pts) == 0,
		}
		if err != nil {
			cv.Error = err.Error()
			s.log.Warn("chart unavailable", "chart", i, "error", err)
		}
		v.Charts = append(v.Charts, cv)
	}
	s.log.Debug("view computed", "records", v.Records, "active_filters", v.ActiveFilters)
	return v
}

func (s *Session) tooltip() *Tooltip {
	var t Tooltip
	switch s.hover.kind {
	case HoverKPI:
		k := s.schema.KPIs[s.hover.index]
		t = Tooltip{Title: TooltipKPI, Column: k.Column, Insight: k.BusinessReason}
	case HoverDimension:
		c := s.schema.Charts[s.hover.index]
		t = Tooltip{Title: TooltipDimension, Column: s.charts[s.hover.index].Dimension(c), Insight: c.Insight}
	case HoverMetric:
		c := s.schema.Charts[s.hover.index]
		t = Tooltip{Title: TooltipMetric, Column: c.YColumn, Insight: c.BusinessReason}
	default:
		return nil
	}
	t.Profile = s.profile.Lookup(t.Column)
	if t.Profile == nil && t.Insight == "" {
		return nil
	}
	return &t
}
