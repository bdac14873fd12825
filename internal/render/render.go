package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/KaramelBytes/dashloom-cli/internal/dashboard"
	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
)

// Format selects an output renderer.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// NoData is printed in place of an empty chart series.
const NoData = "(no data)"

// ParseFormat accepts table, markdown (or md) and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (use table, markdown or json)", s)
}

// View writes v in the requested format.
func View(w io.Writer, v dashboard.View, f Format) error {
	switch f {
	case FormatJSON:
		return JSON(w, v)
	case FormatMarkdown:
		return Markdown(w, v)
	default:
		return Table(w, v)
	}
}

// JSON writes any value as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table draws the dashboard with box tables for KPIs and chart series.
func Table(w io.Writer, v dashboard.View) error {
	_, _ = fmt.Fprintln(w, v.Title)
	_, _ = fmt.Fprintln(w, strings.Repeat("=", max(len([]rune(v.Title)), 20)))
	if v.Summary != "" {
		_, _ = fmt.Fprintln(w, v.Summary)
	}
	_, _ = fmt.Fprintf(w, "Records: %d of %d", v.Records, v.TotalRecords)
	if v.Source != "" {
		_, _ = fmt.Fprintf(w, " (%s)", v.Source)
	}
	_, _ = fmt.Fprintln(w)

	if len(v.Filters) > 0 {
		_, _ = fmt.Fprintf(w, "\nFilters (%d active):\n", v.ActiveFilters)
		for _, f := range v.Filters {
			_, _ = fmt.Fprintf(w, "  %s [%s]: %s\n", f.Label, f.Column, filterValue(f))
		}
	}

	if len(v.KPIs) > 0 {
		_, _ = fmt.Fprintln(w)
		t := newTable(w)
		t.AppendHeader(table.Row{"KPI", "Value", "Column", "Aggregation"})
		for _, k := range v.KPIs {
			t.AppendRow(table.Row{k.Label, k.Display, k.Column, k.Aggregation})
		}
		t.Render()
	}

	for _, c := range v.Charts {
		_, _ = fmt.Fprintf(w, "\n#%d %s [%s, %s of %s by %s]\n", c.Index, c.Title, c.VisualType, c.Aggregation, c.Metric, c.Dimension)
		if c.Insight != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", c.Insight)
		}
		if c.NoData {
			_, _ = fmt.Fprintln(w, NoData)
			continue
		}
		t := newTable(w)
		t.AppendHeader(table.Row{c.Dimension, c.Metric})
		for _, p := range c.Points {
			t.AppendRow(table.Row{p.Name, formatPoint(p.Value)})
		}
		t.Render()
	}

	if len(v.Insights) > 0 {
		_, _ = fmt.Fprintln(w, "\nKey insights:")
		for _, s := range v.Insights {
			_, _ = fmt.Fprintf(w, "  • %s\n", s)
		}
	}
	if v.Tooltip != nil {
		_, _ = fmt.Fprintln(w)
		writeTooltip(w, v.Tooltip)
	}
	return nil
}

// Markdown writes the dashboard as bracketed sections with markdown tables.
func Markdown(w io.Writer, v dashboard.View) error {
	var b strings.Builder
	b.WriteString("[DASHBOARD]\n")
	b.WriteString(fmt.Sprintf("Title: %s\n", v.Title))
	if v.Summary != "" {
		b.WriteString(fmt.Sprintf("Summary: %s\n", v.Summary))
	}
	if v.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", v.Source))
	}
	b.WriteString(fmt.Sprintf("Records: %d of %d\n", v.Records, v.TotalRecords))

	active := lo.FilterMap(v.Filters, func(f dashboard.FilterView, _ int) (string, bool) {
		return fmt.Sprintf("%s = %s", safeName(f.Label), safeVal(f.Value)), f.Value != ""
	})
	if len(v.Filters) > 0 {
		b.WriteString(fmt.Sprintf("\n[FILTERS] (%d active)\n", v.ActiveFilters))
		for _, s := range active {
			b.WriteString("- " + s + "\n")
		}
	}

	if len(v.KPIs) > 0 {
		b.WriteString("\n[KPIS]\n")
		b.WriteString("| KPI | Value |\n| --- | --- |\n")
		for _, k := range v.KPIs {
			b.WriteString(fmt.Sprintf("| %s | %s |\n", safeName(k.Label), safeVal(k.Display)))
		}
	}

	for _, c := range v.Charts {
		b.WriteString(fmt.Sprintf("\n[CHART %d] %s\n", c.Index, c.Title))
		b.WriteString(fmt.Sprintf("%s: %s of %s by %s\n", c.VisualType, c.Aggregation, safeName(c.Metric), safeName(c.Dimension)))
		if c.NoData {
			b.WriteString(NoData + "\n")
			continue
		}
		b.WriteString(fmt.Sprintf("| %s | %s |\n| --- | --- |\n", safeName(c.Dimension), safeName(c.Metric)))
		for _, p := range c.Points {
			b.WriteString(fmt.Sprintf("| %s | %s |\n", safeVal(p.Name), formatPoint(p.Value)))
		}
	}

	if len(v.Insights) > 0 {
		b.WriteString("\n[KEY INSIGHTS]\n")
		for _, s := range v.Insights {
			b.WriteString("- " + s + "\n")
		}
	}
	if v.Tooltip != nil {
		b.WriteString("\n[TOOLTIP]\n")
		writeTooltip(&b, v.Tooltip)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Profile writes the column profile of a dataset.
func Profile(w io.Writer, name string, rows int, p dataset.Profile, f Format) error {
	if f == FormatJSON {
		return JSON(w, struct {
			File    string          `json:"file"`
			Rows    int             `json:"rows"`
			Columns dataset.Profile `json:"columns"`
		}{name, rows, p})
	}
	if f == FormatMarkdown {
		var b strings.Builder
		b.WriteString("[DATASET SUMMARY]\n")
		b.WriteString(fmt.Sprintf("File: %s\nRows: %d\nColumns: %d\n\n[SCHEMA]\n", name, rows, len(p)))
		for _, col := range p.Names() {
			cp := p[col]
			b.WriteString(fmt.Sprintf("- %s: %s (unique %d)\n", safeName(col), cp.Type, cp.UniqueCount))
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
	_, _ = fmt.Fprintf(w, "%s: %d rows, %d columns\n", name, rows, len(p))
	t := newTable(w)
	t.AppendHeader(table.Row{"Column", "Type", "Unique"})
	for _, col := range p.Names() {
		cp := p[col]
		t.AppendRow(table.Row{col, cp.Type, cp.UniqueCount})
	}
	t.Render()
	return nil
}

func writeTooltip(w io.Writer, tt *dashboard.Tooltip) {
	_, _ = fmt.Fprintf(w, "%s: %s\n", tt.Title, tt.Column)
	if tt.Profile != nil {
		_, _ = fmt.Fprintf(w, "  type: %s, unique values: %d\n", tt.Profile.Type, tt.Profile.UniqueCount)
	}
	if tt.Insight != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", tt.Insight)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func filterValue(f dashboard.FilterView) string {
	if f.Value == "" {
		return "All"
	}
	return f.Value
}

// formatPoint prints a series value with at most two decimals.
func formatPoint(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return dataset.FormatNumber(v)
	}
	return dataset.FormatNumber(math.Round(v*100) / 100)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return safeVal(s)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
