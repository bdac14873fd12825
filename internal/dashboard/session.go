// Package dashboard owns the interactive state of one dashboard session and
// recomputes every derived view from it.
package dashboard

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/engine"
	"github.com/KaramelBytes/dashloom-cli/internal/schema"
)

var (
	// ErrNoData is returned by New for a nil dataset or one without rows.
	ErrNoData = errors.New("dataset has no rows")
	// ErrNoSchema is returned by New when no schema is given.
	ErrNoSchema = errors.New("no dashboard schema")
	// ErrChartIndex is reported for a chart index outside the schema's charts.
	ErrChartIndex = errors.New("chart index out of range")
	// ErrKPIIndex is reported for a KPI index outside the schema's KPIs.
	ErrKPIIndex = errors.New("kpi index out of range")
	// ErrUnknownFilter is reported for a key that matches no declared filter id or column.
	ErrUnknownFilter = errors.New("unknown filter")
)

// HoverKind identifies what the tooltip is attached to.
type HoverKind int

const (
	HoverNone HoverKind = iota
	HoverKPI
	HoverDimension
	HoverMetric
)

type hoverTarget struct {
	kind  HoverKind
	index int
}

// Session holds one loaded dataset and schema together with the user's
// selections. Dataset and schema are never mutated; every setter leaves the
// session in a consistent state and View recomputes from scratch.
//
// A Session is not safe for concurrent use.
type Session struct {
	id        string
	data      *dataset.Dataset
	schema    schema.Dashboard
	profile   dataset.Profile
	selection engine.Selection
	charts    []engine.ChartState
	hover     hoverTarget
	log       *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// New starts a session. The dataset must hold at least one row and a schema
// must be present; the schema is expected to be normalized already.
func New(ds *dataset.Dataset, sch *schema.Dashboard, opts ...Option) (*Session, error) {
	if ds.Len() == 0 {
		return nil, ErrNoData
	}
	if sch == nil {
		return nil, ErrNoSchema
	}
	s := &Session{
		id:        uuid.NewString(),
		data:      ds,
		schema:    *sch,
		profile:   dataset.ProfileRows(ds.Rows),
		selection: engine.Selection{},
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("session_id", s.id)
	s.charts = make([]engine.ChartState, len(s.schema.Charts))
	for i, c := range s.schema.Charts {
		s.charts[i] = engine.InitialChartState(c)
	}
	s.log.Debug("session started", "source", ds.Name, "rows", ds.Len(),
		"kpis", len(s.schema.KPIs), "charts", len(s.schema.Charts), "filters", len(s.schema.Filters))
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Schema returns the session's dashboard schema.
func (s *Session) Schema() schema.Dashboard { return s.schema }

// Profile returns the column profile computed when the session started.
func (s *Session) Profile() dataset.Profile { return s.profile }

// Dataset returns the loaded dataset.
func (s *Session) Dataset() *dataset.Dataset { return s.data }

// Selection returns a copy of the active filter selection.
func (s *Session) Selection() engine.Selection { return s.selection.Clone() }

// ChartState returns the interactive state of chart i.
func (s *Session) ChartState(i int) (engine.ChartState, error) {
	if err := s.checkChart(i); err != nil {
		return engine.ChartState{}, err
	}
	return s.charts[i], nil
}

// SetFilter constrains a declared filter, addressed by id or column, to value.
// An empty value removes the constraint.
func (s *Session) SetFilter(key, value string) error {
	f, ok := s.lookupFilter(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, key)
	}
	if value == "" {
		s.selection = s.selection.Without(f.Column)
	} else {
		s.selection = s.selection.With(f.Column, value)
	}
	s.log.Debug("filter set", "column", f.Column, "value", value, "active", engine.ActiveFilterCount(s.selection))
	return nil
}

// ClearFilter removes the constraint of one declared filter.
func (s *Session) ClearFilter(key string) error {
	return s.SetFilter(key, "")
}

// ResetFilters clears every constraint.
func (s *Session) ResetFilters() {
	s.selection = engine.Selection{}
	s.log.Debug("filters reset")
}

// SetAggregation switches the aggregation selector of chart i.
func (s *Session) SetAggregation(i int, agg schema.Aggregation) error {
	if err := s.checkChart(i); err != nil {
		return err
	}
	s.charts[i] = s.charts[i].WithAggregation(agg)
	s.log.Debug("aggregation set", "chart", i, "aggregation", agg)
	return nil
}

// SelectCategory drills chart i into the named bucket. It reports false when
// the chart cannot drill or is already drilled.
func (s *Session) SelectCategory(i int, name string) (bool, error) {
	if err := s.checkChart(i); err != nil {
		return false, err
	}
	next, ok := s.charts[i].Select(s.schema.Charts[i], name)
	s.charts[i] = next
	s.log.Debug("category selected", "chart", i, "name", name, "drilled", ok)
	return ok, nil
}

// ResetDrill returns chart i to its undrilled state.
func (s *Session) ResetDrill(i int) error {
	if err := s.checkChart(i); err != nil {
		return err
	}
	s.charts[i] = s.charts[i].Reset()
	s.log.Debug("drill reset", "chart", i)
	return nil
}

// HoverKPI attaches the tooltip to KPI i.
func (s *Session) HoverKPI(i int) error {
	if i < 0 || i >= len(s.schema.KPIs) {
		return fmt.Errorf("%w: %d", ErrKPIIndex, i)
	}
	s.hover = hoverTarget{kind: HoverKPI, index: i}
	return nil
}

// HoverDimension attaches the tooltip to the current dimension of chart i.
func (s *Session) HoverDimension(i int) error {
	return s.hoverChart(HoverDimension, i)
}

// HoverMetric attaches the tooltip to the metric column of chart i.
func (s *Session) HoverMetric(i int) error {
	return s.hoverChart(HoverMetric, i)
}

// ClearHover removes the tooltip.
func (s *Session) ClearHover() { s.hover = hoverTarget{} }

func (s *Session) hoverChart(kind HoverKind, i int) error {
	if err := s.checkChart(i); err != nil {
		return err
	}
	s.hover = hoverTarget{kind: kind, index: i}
	return nil
}

func (s *Session) checkChart(i int) error {
	if i < 0 || i >= len(s.charts) {
		return fmt.Errorf("%w: %d", ErrChartIndex, i)
	}
	return nil
}

func (s *Session) lookupFilter(key string) (schema.FilterDef, bool) {
	for _, f := range s.schema.Filters {
		if f.ID == key {
			return f, true
		}
	}
	for _, f := range s.schema.Filters {
		if f.Column == key {
			return f, true
		}
	}
	return schema.FilterDef{}, false
}
