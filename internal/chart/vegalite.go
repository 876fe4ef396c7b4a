// Package chart builds Vega-Lite line chart specs for a result series.
package chart

import (
	"encoding/json"
	"time"

	"github.com/splax/cubedash/internal/result"
)

const schemaURL = "https://vega.github.io/schema/vega-lite/v5.json"

// Spec is a Vega-Lite document ready to hand to vega-embed.
type Spec map[string]any

// LineSpec charts series over time. Percentage series get a "%" axis format.
func LineSpec(series result.Series, title string) Spec {
	values := make([]map[string]any, 0, len(series.Points))
	for _, p := range series.Points {
		values = append(values, map[string]any{
			"time":         p.Time.UTC().Format(time.RFC3339),
			series.Measure: p.Value,
		})
	}

	yAxis := map[string]any{"title": series.Measure}
	if series.Format == result.FormatPercentage {
		yAxis["format"] = "%"
	}

	return Spec{
		"$schema":  schemaURL,
		"title":    title,
		"width":    "container",
		"height":   320,
		"data":     map[string]any{"values": values},
		"mark":     map[string]any{"type": "line", "point": len(values) == 1},
		"encoding": map[string]any{
			"x": map[string]any{"field": "time", "type": "temporal", "title": "time"},
			"y": map[string]any{"field": series.Measure, "type": "quantitative", "axis": yAxis},
		},
	}
}

// JSON encodes the spec.
func (s Spec) JSON() ([]byte, error) {
	return json.Marshal(s)
}
