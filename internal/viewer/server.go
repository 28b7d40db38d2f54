// Package viewer serves the interactive coverage dashboard over the SQLite
// store. It is strictly read-only: every user interaction is one synchronous
// query-render cycle, and store failures render as inline messages so the
// session survives a missing or mid-refresh store.
package viewer

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/artifact"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/observability"
)

//go:embed templates/index.html
var templateFS embed.FS

// Server exposes the dashboard plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	store      *sqlite.Store
	window     domain.CampaignWindow
	metrics    *observability.Metrics
	logger     *slog.Logger
	tmpl       *template.Template
}

// NewServer creates the dashboard HTTP server.
func NewServer(addr string, store *sqlite.Store, window domain.CampaignWindow, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:   store,
		window:  window,
		metrics: metrics,
		logger:  logger,
		tmpl:    template.Must(template.ParseFS(templateFS, "templates/index.html")),
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /chart.png", s.handleChart)
	mux.HandleFunc("GET /export.csv", s.handleExport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// pageData is everything the dashboard template needs for one render.
type pageData struct {
	Countries []string
	Antigens  []string
	Country   string
	Antigen   string
	Series    []domain.CoverageRecord
	Analysis  *domain.CampaignResult
	Window    domain.CampaignWindow
	ChartURL  string
	ExportURL string
	Refreshed string
	// StoreMessage is set when the store is missing or empty; it replaces
	// the whole selection UI.
	StoreMessage string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	data := pageData{Window: s.window}

	countries, err := s.store.Countries(ctx)
	if err != nil {
		s.logger.Warn("store unavailable", "error", err)
		s.metrics.Queries.WithLabelValues("error").Inc()
		data.StoreMessage = "The coverage store is not available yet. Run the loader to populate it."
		s.render(w, data)
		return
	}
	if len(countries) == 0 {
		s.metrics.Queries.WithLabelValues("empty").Inc()
		data.StoreMessage = "The coverage store is empty."
		s.render(w, data)
		return
	}

	data.Countries = countries
	data.Country = r.URL.Query().Get("country")
	if data.Country == "" {
		data.Country = countries[0]
	}

	antigens, err := s.store.Antigens(ctx, data.Country)
	if err != nil {
		s.queryError(w, data, err)
		return
	}
	data.Antigens = antigens
	data.Antigen = r.URL.Query().Get("antigen")
	if data.Antigen == "" && len(antigens) > 0 {
		data.Antigen = antigens[0]
	}

	series, err := s.store.Series(ctx, data.Country, data.Antigen)
	if err != nil {
		s.queryError(w, data, err)
		return
	}
	data.Series = series

	if len(series) > 0 {
		analysis := domain.AnalyzeCampaign(series, s.window)
		data.Analysis = &analysis
		data.ExportURL = "/export.csv?" + s.selectionQuery(data.Country, data.Antigen)
	}
	if len(series) >= 2 {
		data.ChartURL = "/chart.png?" + s.selectionQuery(data.Country, data.Antigen)
	}

	if refreshed, err := s.store.LastRefreshed(ctx); err == nil && !refreshed.IsZero() {
		data.Refreshed = refreshed.Format("2006-01-02 15:04 UTC")
	}

	if len(series) == 0 {
		s.metrics.Queries.WithLabelValues("empty").Inc()
	} else {
		s.metrics.Queries.WithLabelValues("ok").Inc()
	}
	s.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	s.render(w, data)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	country, antigen, ok := selection(w, r)
	if !ok {
		return
	}

	series, err := s.store.Series(r.Context(), country, antigen)
	if err != nil {
		s.logger.Warn("chart query failed", "error", err)
		http.Error(w, "coverage store unavailable", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	window := s.windowFromQuery(r)
	if err := artifact.RenderChart(&buf, country, antigen, series, &window); err != nil {
		status := http.StatusInternalServerError
		if len(series) < 2 {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	country, antigen, ok := selection(w, r)
	if !ok {
		return
	}

	series, err := s.store.Series(r.Context(), country, antigen)
	if err != nil {
		s.logger.Warn("export query failed", "error", err)
		http.Error(w, "coverage store unavailable", http.StatusServiceUnavailable)
		return
	}

	filename := strings.ReplaceAll(fmt.Sprintf("%s_%s_coverage.csv", country, antigen), " ", "_")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := artifact.EncodeCSV(w, series); err != nil {
		s.logger.Warn("export encode failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	count, err := s.store.Count(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	s.metrics.StoreRows.Set(float64(count))
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "rows": count})
}

// render buffers the template output so a render error never emits half a page.
func (s *Server) render(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("template render failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) queryError(w http.ResponseWriter, data pageData, err error) {
	s.logger.Warn("store query failed", "error", err)
	s.metrics.Queries.WithLabelValues("error").Inc()
	data.StoreMessage = "Query failed: " + err.Error()
	s.render(w, data)
}

func (s *Server) selectionQuery(country, antigen string) string {
	params := url.Values{
		"country": {country},
		"antigen": {antigen},
		"start":   {strconv.Itoa(s.window.StartYear)},
		"pre":     {strconv.Itoa(s.window.PreYears)},
		"post":    {strconv.Itoa(s.window.PostYears)},
	}
	return params.Encode()
}

// windowFromQuery overlays any start/pre/post query params on the configured
// campaign window.
func (s *Server) windowFromQuery(r *http.Request) domain.CampaignWindow {
	window := s.window
	if v, err := strconv.Atoi(r.URL.Query().Get("start")); err == nil && v > 0 {
		window.StartYear = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("pre")); err == nil && v > 0 {
		window.PreYears = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("post")); err == nil && v > 0 {
		window.PostYears = v
	}
	return window
}

func selection(w http.ResponseWriter, r *http.Request) (country, antigen string, ok bool) {
	country = r.URL.Query().Get("country")
	antigen = r.URL.Query().Get("antigen")
	if country == "" || antigen == "" {
		http.Error(w, "country and antigen query parameters are required", http.StatusBadRequest)
		return "", "", false
	}
	return country, antigen, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
