// Package dashboard runs one metric selection through lookup, query, adapt
// and chart.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/splax/cubedash/internal/chart"
	"github.com/splax/cubedash/internal/cube"
	"github.com/splax/cubedash/internal/metric"
	"github.com/splax/cubedash/internal/query"
	"github.com/splax/cubedash/internal/result"
)

// Executor runs a compiled statement against the query engine.
type Executor interface {
	Query(ctx context.Context, stmt query.Statement) ([]result.RawRow, error)
}

// Panel is everything the page shows for one selection.
type Panel struct {
	Metric    metric.Definition `json:"metric"`
	Selection Selection         `json:"selection"`
	SQL       string            `json:"sql"`
	Series    result.Series     `json:"series"`
	Chart     chart.Spec        `json:"chart"`
	DataModel string            `json:"data_model"`
}

// Service renders panels. It keeps no state between calls.
type Service struct {
	registry *metric.Registry
	exec     Executor
	logger   *slog.Logger
}

// New constructs a Service. A nil registry means metric.Default().
func New(registry *metric.Registry, exec Executor, logger *slog.Logger) *Service {
	if registry == nil {
		registry = metric.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: registry, exec: exec, logger: logger}
}

// Registry exposes the metric table for selectors.
func (s *Service) Registry() *metric.Registry {
	return s.registry
}

// Render runs the whole pipeline for sel. Errors come back unchanged so
// callers can match UnknownMetricError, QueryExecutionError and
// MalformedRowError.
func (s *Service) Render(ctx context.Context, sel Selection) (*Panel, error) {
	def, err := s.registry.Lookup(sel.Metric)
	if err != nil {
		s.logger.Warn("metric lookup failed", "metric", sel.Metric, "error", err)
		return nil, err
	}

	stmt, err := query.Compile(query.Parameters{
		Measure: def.Measure,
		Start:   sel.From,
		End:     sel.To,
		Grain:   sel.Grain,
	})
	if err != nil {
		s.logger.Error("compile query failed", "measure", def.Measure, "error", err)
		return nil, err
	}

	rows, err := s.exec.Query(ctx, stmt)
	if err != nil {
		s.logger.Error("cube query failed", "measure", def.Measure, "from", sel.FromDate(), "to", sel.ToDate(), "grain", sel.Grain.String(), "error", err)
		return nil, err
	}

	series, err := result.Adapt(rows, def.Measure)
	if err != nil {
		s.logger.Error("cube returned malformed rows", "measure", def.Measure, "error", err)
		return nil, err
	}
	s.logger.Debug("panel rendered", "measure", def.Measure, "points", len(series.Points))

	return &Panel{
		Metric:    def,
		Selection: sel,
		SQL:       stmt.Literal(),
		Series:    series,
		Chart:     chart.LineSpec(series, def.Title),
		DataModel: metric.DataModel,
	}, nil
}

// StatusFor maps a Render or ParseSelection error to an HTTP status.
func StatusFor(err error) int {
	var (
		unknown   *metric.UnknownMetricError
		execErr   *cube.QueryExecutionError
		malformed *result.MalformedRowError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidSelection), errors.As(err, &unknown),
		errors.Is(err, query.ErrInvalidGranularity):
		return http.StatusBadRequest
	case errors.As(err, &execErr), errors.As(err, &malformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
