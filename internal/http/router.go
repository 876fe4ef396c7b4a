package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/cubedash/internal/dashboard"
	"github.com/splax/cubedash/internal/metric"
	"github.com/splax/cubedash/internal/query"
)

const (
	healthCheckTimeout = 2 * time.Second
	requestIDHeader    = "X-Request-ID"
)

// Options carries the Router's collaborators. Budget defaults to an
// unmetered in-memory ledger; Registry to the process-wide Prometheus
// registry.
type Options struct {
	Logger     *slog.Logger
	Service    *dashboard.Service
	Page       http.Handler
	Budget     Budget
	Registry   *prometheus.Registry
	CubeHealth func(context.Context) error
}

// Router serves the JSON API, the live-update socket and the page.
type Router struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	svc        *dashboard.Service
	budget     Budget
	metrics    *routerMetrics
	upgrader   websocket.Upgrader
	cubeHealth func(context.Context) error
}

// NewRouter assembles routes with dependencies.
func NewRouter(opts Options) *Router {
	r := &Router{
		mux:        http.NewServeMux(),
		logger:     opts.Logger,
		svc:        opts.Service,
		budget:     opts.Budget,
		cubeHealth: opts.CubeHealth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.budget == nil {
		r.budget = NewMemoryBudget(0, time.Minute)
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	exporter := promhttp.Handler()
	if opts.Registry != nil {
		reg = opts.Registry
		exporter = promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})
	}
	r.metrics = newRouterMetrics(reg)

	r.mux.Handle("GET /metrics", exporter)
	r.mux.HandleFunc("GET /healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.HandleFunc("GET /api/metrics", r.audit("/api/metrics", r.handleMetrics))
	r.mux.HandleFunc("GET /api/model", r.audit("/api/model", r.handleModel))
	r.mux.HandleFunc("GET /api/series", r.audit("/api/series", r.metered("/api/series", r.handleSeries)))
	r.mux.HandleFunc("GET /ws", r.audit("/ws", r.handleWS))
	if opts.Page != nil {
		r.mux.HandleFunc("/", r.audit("/", r.metered("/", opts.Page.ServeHTTP)))
	}
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases the budget ledger.
func (r *Router) Close() error {
	return r.budget.Close()
}

func (r *Router) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	def := dashboard.DefaultSelection()
	grains := make([]string, 0, 4)
	for _, g := range query.Granularities() {
		grains = append(grains, g.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":       r.svc.Registry().Definitions(),
		"granularities": grains,
		"defaults": map[string]string{
			"metric": def.Metric,
			"from":   def.FromDate(),
			"to":     def.ToDate(),
			"grain":  def.Grain.String(),
		},
	})
}

func (r *Router) handleModel(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, metric.DataModel)
}

// handleSeries is charged by metered, so a selection that fails to parse
// here has not spent anything.
func (r *Router) handleSeries(w http.ResponseWriter, req *http.Request) {
	sel, err := dashboard.ParseSelection(req.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	panel, err := r.svc.Render(req.Context(), sel)
	if err != nil {
		writeError(w, dashboard.StatusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	payload := map[string]any{
		"status":    "ok",
		"cube":      "unchecked",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if r.cubeHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.cubeHealth(ctx); err != nil {
			payload["status"] = "degraded"
			payload["cube"] = "down"
			payload["error"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			payload["cube"] = "up"
		}
	}
	writeJSON(w, code, payload)
}

// audit tags the request with an id, records route metrics and writes one
// access log line once the handler returns.
func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimSpace(req.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, req)
		took := time.Since(start)
		r.metrics.observe(route, rec.status, took)

		attrs := []slog.Attr{
			slog.String("request_id", id),
			slog.String("method", req.Method),
			slog.String("route", route),
			slog.String("query", req.URL.RawQuery),
			slog.Int("status", rec.status),
			slog.Int("bytes", rec.bytes),
			slog.Duration("took", took),
			slog.String("remote", remoteHost(req)),
		}
		if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
			attrs = append(attrs, slog.String("forwarded_for", fwd))
		}
		level := slog.LevelInfo
		switch {
		case rec.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case rec.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		r.logger.LogAttrs(req.Context(), level, "http_request", attrs...)
	}
}

// responseRecorder captures status and size for audit. It passes Hijack
// through so /ws can upgrade behind it.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("httpx: connection cannot be hijacked")
	}
	rr.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
