// Package server renders the dashboard page.
package server

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/splax/cubedash/internal/dashboard"
	"github.com/splax/cubedash/internal/metric"
	"github.com/splax/cubedash/internal/query"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server hosts the dashboard web UI.
type Server struct {
	svc       *dashboard.Service
	templates *template.Template
	mux       *http.ServeMux
	logger    *slog.Logger
}

// New constructs a configured server ready to serve HTTP traffic.
func New(svc *dashboard.Service, logger *slog.Logger) (*Server, error) {
	tmplFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	templates, err := template.New("base").Funcs(template.FuncMap{}).ParseFS(tmplFS, "*.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		svc:       svc,
		templates: templates,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	srv.registerRoutes()
	return srv, nil
}

// ServeHTTP conforms to http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleHome)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
	case http.MethodHead:
		// Answered without a Cube round trip.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	default:
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	data := map[string]any{
		"Title":         "Active users",
		"Metrics":       s.svc.Registry().Definitions(),
		"Granularities": query.Granularities(),
		"Selection":     dashboard.DefaultSelection(),
		"Panel":         (*dashboard.Panel)(nil),
		"Error":         "",
		"DataModel":     metric.DataModel,
	}

	sel, err := dashboard.ParseSelection(r.URL.Query())
	if err != nil {
		s.renderStatus(w, r, http.StatusBadRequest, "dashboard", withError(data, err))
		return
	}
	data["Selection"] = sel

	panel, err := s.svc.Render(r.Context(), sel)
	if err != nil {
		s.renderStatus(w, r, dashboard.StatusFor(err), "dashboard", withError(data, err))
		return
	}
	data["Panel"] = panel
	data["Title"] = panel.Metric.Title
	s.render(w, r, "dashboard", data)
}

func withError(data map[string]any, err error) map[string]any {
	data["Error"] = err.Error()
	return data
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, tpl string, data map[string]any) {
	s.renderStatus(w, r, http.StatusOK, tpl, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, tpl string, data map[string]any) {
	if status >= http.StatusBadRequest {
		s.logger.Warn("dashboard error", "status", status, "message", data["Error"])
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, tpl, data); err != nil {
		s.logger.Error("template render failed", "template", tpl, "error", err)
	}
}
