package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/dashloom-cli/internal/schema"
)

// SystemPrompt instructs the model to design a dashboard schema for a data sample.
const SystemPrompt = `You are a lead Business Intelligence Architect. Design a production-grade Dashboard Schema. ` +
	`Use 'visualType' (bar, line, pie) and 'filterType' (category, range). Use standard aggregations: sum, avg, count. ` +
	`For each chart, identify a 'drillDownColumn' which is a logical sub-dimension or more granular field than xColumn. ` +
	`For each KPI and Chart, provide a 'business_reason' explaining why this metric matters for strategic decision making.

Reply with a single JSON object and nothing else, shaped like:
{
  "dashboardTitle": string,
  "dashboardSummary": string,
  "filters": [{"id": string, "column": string, "label": string, "filterType": string, "options": [string]}],
  "kpis": [{"label": string, "column": string, "aggregation": string, "prefix": string, "suffix": string, "business_reason": string}],
  "charts": [{"visualType": string, "title": string, "xColumn": string, "yColumn": string, "aggregation": string, "insight": string, "drillDownColumn": string, "business_reason": string}],
  "keyInsights": [string]
}
Column names must match the keys of the data sample exactly.`

// Synthesizer asks a Runtime to design a dashboard schema for a data sample.
type Synthesizer struct {
	Runtime     Runtime
	Model       string
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// Result carries the normalized schema together with what normalization dropped.
type Result struct {
	Schema    schema.Dashboard
	Dropped   []schema.FieldError
	RequestID string
	Usage     Usage
}

// Synthesize sends the file name and sample to the model and normalizes the
// reply. A reply that holds no JSON object fails with ErrMalformedSchema; the
// caller must not build a dashboard in that case.
func (s *Synthesizer) Synthesize(ctx context.Context, fileName, sample string) (*Result, error) {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	req := GenerateRequest{
		Model: s.Model,
		Messages: []Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: BuildUserPrompt(fileName, sample)},
		},
		MaxTokens:      s.MaxTokens,
		Temperature:    s.Temperature,
		ResponseFormat: JSONObject,
	}
	log.Debug("requesting schema", "model", s.Model, "file", fileName, "sample_bytes", len(sample))
	resp, err := s.Runtime.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate schema: %w", err)
	}
	out := resp.Content()
	if strings.TrimSpace(out) == "" {
		return nil, ErrEmptyResponse
	}
	raw, err := ExtractJSONObject(out)
	if err != nil {
		log.Debug("unparseable schema reply", "request_id", resp.RequestID, "reply", truncate(out, 512))
		return nil, err
	}
	d, dropped := schema.Validate(raw)
	for _, fe := range dropped {
		log.Debug("schema entry dropped", "path", fe.Path, "reason", fe.Reason)
	}
	log.Info("schema synthesized", "request_id", resp.RequestID,
		"kpis", len(d.KPIs), "charts", len(d.Charts), "filters", len(d.Filters), "dropped", len(dropped))
	return &Result{Schema: d, Dropped: dropped, RequestID: resp.RequestID, Usage: resp.Usage}, nil
}

// BuildUserPrompt formats the synthesis request body.
func BuildUserPrompt(fileName, sample string) string {
	return "FILE: " + fileName + "\nDATA_SAMPLE: " + sample
}

// ExtractJSONObject decodes the first JSON object in a model reply. Markdown
// code fences and leading prose are tolerated; anything that does not decode
// to an object is ErrMalformedSchema.
func ExtractJSONObject(reply string) (map[string]any, error) {
	text := stripFences(strings.TrimSpace(reply))
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedSchema)
	}
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: null object", ErrMalformedSchema)
	}
	return obj, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
