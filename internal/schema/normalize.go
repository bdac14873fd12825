package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Defaults applied when an object is present but an optional field is missing.
const (
	DefaultTitle      = "Intelligence Report"
	DefaultSummary    = "Dataset analysis successful."
	DefaultChartTitle = "Data Insight"
	DefaultFilterType = "category"
)

// ErrNotObject is returned by Parse when the document decodes to something other than an object.
var ErrNotObject = errors.New("schema document is not an object")

// FieldError describes one entry discarded during normalization.
type FieldError struct {
	Path   string
	Reason string
}

func (e FieldError) Error() string { return e.Path + ": " + e.Reason }

// Normalize sanitizes an untrusted, decoded schema document into a Dashboard.
// It never fails: malformed entries are dropped and missing fields defaulted.
func Normalize(raw any) Dashboard {
	d, _ := Validate(raw)
	return d
}

// Validate is Normalize that also reports every dropped entry.
func Validate(raw any) (Dashboard, []FieldError) {
	out := Empty()
	obj, ok := asObject(raw)
	if !ok {
		if raw != nil {
			return out, []FieldError{{Path: "$", Reason: fmt.Sprintf("expected object, got %T", raw)}}
		}
		return out, nil
	}
	var errs []FieldError
	out.Title = str(obj["dashboardTitle"], DefaultTitle)
	out.Summary = str(obj["dashboardSummary"], DefaultSummary)

	for i, item := range list(obj["filters"]) {
		f, missing := requireFields(item, "id", "column")
		if missing != "" {
			errs = append(errs, FieldError{Path: fmt.Sprintf("filters[%d]", i), Reason: missing})
			continue
		}
		column := stringify(f["column"])
		out.Filters = append(out.Filters, FilterDef{
			ID:         stringify(f["id"]),
			Column:     column,
			Label:      str(f["label"], column),
			FilterType: str(f["filterType"], DefaultFilterType),
			Options:    stringList(f["options"]),
		})
	}

	for i, item := range list(obj["kpis"]) {
		k, missing := requireFields(item, "column", "label")
		if missing != "" {
			errs = append(errs, FieldError{Path: fmt.Sprintf("kpis[%d]", i), Reason: missing})
			continue
		}
		out.KPIs = append(out.KPIs, KPIDef{
			Label:          stringify(k["label"]),
			Column:         stringify(k["column"]),
			Aggregation:    strings.ToLower(str(k["aggregation"], string(AggSum))),
			Prefix:         str(k["prefix"], ""),
			Suffix:         str(k["suffix"], ""),
			BusinessReason: str(k["business_reason"], ""),
		})
	}

	for i, item := range list(obj["charts"]) {
		c, missing := requireFields(item, "xColumn", "yColumn", "visualType")
		if missing != "" {
			errs = append(errs, FieldError{Path: fmt.Sprintf("charts[%d]", i), Reason: missing})
			continue
		}
		out.Charts = append(out.Charts, ChartDef{
			VisualType:      ParseVisualType(stringify(c["visualType"])),
			Title:           str(c["title"], DefaultChartTitle),
			XColumn:         stringify(c["xColumn"]),
			YColumn:         stringify(c["yColumn"]),
			Aggregation:     strings.ToLower(str(c["aggregation"], string(AggSum))),
			Insight:         str(c["insight"], ""),
			DrillDownColumn: str(c["drillDownColumn"], ""),
			BusinessReason:  str(c["business_reason"], ""),
		})
	}

	for i, item := range list(obj["keyInsights"]) {
		s, ok := item.(string)
		if !ok {
			errs = append(errs, FieldError{Path: fmt.Sprintf("keyInsights[%d]", i), Reason: fmt.Sprintf("expected string, got %T", item)})
			continue
		}
		out.Insights = append(out.Insights, s)
	}
	return out, errs
}

// Parse decodes a JSON or YAML schema document and normalizes it. A document
// that decodes to a non-object yields ErrNotObject alongside an empty schema.
func Parse(data []byte) (Dashboard, []FieldError, error) {
	raw, err := decode(data)
	if err != nil {
		return Empty(), nil, err
	}
	if _, ok := asObject(raw); !ok {
		return Empty(), nil, ErrNotObject
	}
	d, errs := Validate(raw)
	return d, errs, nil
}

func decode(data []byte) (any, error) {
	trimmed := bytes.TrimSpace(data)
	var raw any
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(trimmed, &raw); err == nil {
			return raw, nil
		}
	}
	if err := yaml.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return raw, nil
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

func requireFields(item any, fields ...string) (map[string]any, string) {
	obj, ok := asObject(item)
	if !ok {
		return nil, "not an object"
	}
	for _, f := range fields {
		if !truthy(obj[f]) {
			return nil, "missing " + f
		}
	}
	return obj, ""
}

// truthy mirrors the presence check used by the schema generator: empty
// strings, zero numbers, false and null count as missing.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	return true
}

func str(v any, def string) string {
	if !truthy(v) {
		return def
	}
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e21 {
			return fmt.Sprintf("%.0f", t)
		}
		return fmt.Sprint(t)
	case int, int64, int32, uint64:
		return fmt.Sprint(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func stringList(v any) []string {
	return lo.FilterMap(list(v), func(item any, _ int) (string, bool) {
		if item == nil {
			return "", false
		}
		return stringify(item), true
	})
}
