package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/time/rate"

	"github.com/raysh454/vulnprobe/internal/app"
	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/registry"
	"github.com/raysh454/vulnprobe/internal/report"
	_ "github.com/raysh454/vulnprobe/internal/server/docs"
)

// Server is the HTTP + WebSocket API surface for asynchronous scans.
type Server struct {
	cfg      Config
	app      *app.Application
	router   chi.Router
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
	logger   logging.Logger
}

// NewServer creates a Server on top of an already wired Application.
func NewServer(cfg Config, application *app.Application) (*Server, error) {
	if application == nil || application.Tasks == nil {
		return nil, errors.New("server: application is not initialised")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}

	limit := rate.Inf
	if cfg.SubmitRate > 0 {
		limit = rate.Limit(cfg.SubmitRate)
	}
	burst := cfg.SubmitBurst
	if burst <= 0 {
		burst = 1
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:     cfg,
		app:     application,
		router:  r,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/scans", s.optionsHandler("GET, POST"))
	r.Options("/scans/{id}", s.optionsHandler("GET, DELETE"))
	r.Options("/scans/{id}/report", s.optionsHandler("GET"))
	r.Options("/scans/{id}/report/download", s.optionsHandler("GET"))
	r.Options("/reports", s.optionsHandler("GET"))
	r.Options("/reports/{id}", s.optionsHandler("DELETE"))

	// Scans
	r.Post("/scans", s.handleSubmitScan)
	r.Get("/scans", s.handleListScans)
	r.Get("/scans/{id}", s.handleGetScan)
	r.Delete("/scans/{id}", s.handleCancelScan)
	r.Get("/scans/{id}/report", s.handleGetReport)
	r.Get("/scans/{id}/report/download", s.handleDownloadReport)

	// Persisted reports
	r.Get("/reports", s.handleListReports)
	r.Delete("/reports/{id}", s.handleDeleteReport)

	// WebSocket for scan progress
	r.Get("/ws/scans/{id}", s.handleScanWS)

	r.Handle("/metrics", s.app.Metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Debug("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

// handleSubmitScan godoc
// @Summary Submit a scan
// @Tags scans
// @Accept json
// @Produce json
// @Param request body SubmitScanRequest true "Scan target"
// @Success 202 {object} app.Task
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /scans [post]
func (s *Server) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		s.logger.Warn("scan submission rate limited")
		writeError(w, http.StatusTooManyRequests, "too many scan submissions, retry later")
		return
	}

	var body SubmitScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding submit body", logging.Field{Key: "error", Value: err})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	task, err := s.app.Tasks.Submit(r.Context(), model.ScanRequest{
		Target:   body.Target,
		Depth:    body.Depth,
		MaxPages: body.MaxPages,
	})
	if err != nil {
		s.logger.Warn("submitting scan", logging.Field{Key: "error", Value: err})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("submitted scan",
		logging.Field{Key: "task_id", Value: task.ID},
		logging.Field{Key: "target", Value: task.Target})
	writeJSON(w, http.StatusAccepted, task)
}

// handleListScans godoc
// @Summary List scans submitted to this process
// @Tags scans
// @Produce json
// @Success 200 {array} app.Task
// @Router /scans [get]
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Tasks.List())
}

// handleGetScan godoc
// @Summary Get scan status
// @Tags scans
// @Produce json
// @Param id path string true "Scan ID"
// @Success 200 {object} app.Task
// @Failure 404 {object} ErrorResponse
// @Router /scans/{id} [get]
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := s.app.Tasks.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleCancelScan godoc
// @Summary Cancel a running scan
// @Tags scans
// @Param id path string true "Scan ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /scans/{id} [delete]
func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.app.Tasks.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.app.Tasks.Cancel(id)
	s.logger.Info("canceled scan", logging.Field{Key: "task_id", Value: id})
	w.WriteHeader(http.StatusNoContent)
}

// lookupReport prefers the in-memory task and falls back to the registry
// for scans run by an earlier process.
func (s *Server) lookupReport(r *http.Request, id string) (*model.Report, int, error) {
	rep, err := s.app.Tasks.Report(id)
	switch {
	case err == nil:
		return rep, http.StatusOK, nil
	case errors.Is(err, app.ErrReportNotReady):
		return nil, http.StatusConflict, err
	}

	if s.app.Registry == nil {
		return nil, http.StatusNotFound, err
	}
	rep, err = s.app.Registry.GetReport(r.Context(), id)
	switch {
	case err == nil:
		return rep, http.StatusOK, nil
	case errors.Is(err, registry.ErrReportNotFound):
		return nil, http.StatusNotFound, app.ErrTaskNotFound
	default:
		s.logger.Error("loading report", logging.Field{Key: "task_id", Value: id}, logging.Field{Key: "error", Value: err})
		return nil, http.StatusInternalServerError, err
	}
}

// handleGetReport godoc
// @Summary Get a scan report with severity aggregates
// @Tags reports
// @Produce json
// @Param id path string true "Scan ID"
// @Success 200 {object} report.Enriched
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /scans/{id}/report [get]
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, status, err := s.lookupReport(r, id)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report.Enrich(rep))
}

// handleDownloadReport godoc
// @Summary Download the raw report as a JSON attachment
// @Tags reports
// @Produce json
// @Param id path string true "Scan ID"
// @Success 200 {object} model.Report
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /scans/{id}/report/download [get]
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, status, err := s.lookupReport(r, id)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	data, err := report.Marshal(rep)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.json"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleListReports godoc
// @Summary List persisted reports
// @Tags reports
// @Produce json
// @Param limit query int false "Maximum number of reports"
// @Success 200 {array} registry.ReportMeta
// @Failure 503 {object} ErrorResponse
// @Router /reports [get]
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.app.Registry == nil {
		writeError(w, http.StatusServiceUnavailable, "report persistence is disabled")
		return
	}
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}
	metas, err := s.app.Registry.ListReports(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing reports", logging.Field{Key: "error", Value: err})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if metas == nil {
		metas = []registry.ReportMeta{}
	}
	writeJSON(w, http.StatusOK, metas)
}

// handleDeleteReport godoc
// @Summary Delete a persisted report
// @Tags reports
// @Param id path string true "Scan ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /reports/{id} [delete]
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if s.app.Registry == nil {
		writeError(w, http.StatusServiceUnavailable, "report persistence is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	err := s.app.Registry.DeleteReport(r.Context(), id)
	switch {
	case errors.Is(err, registry.ErrReportNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// WebSockets

// handleScanWS streams the task snapshot followed by its events until the
// scan ends, then sends the final snapshot.
func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := s.app.Tasks.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	events, _ := s.app.Tasks.Events(id)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err})
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(task); err != nil {
		return
	}
	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			// Client went away; the scan keeps running.
			return
		}
	}

	if final, err := s.app.Tasks.Get(id); err == nil {
		_ = conn.WriteJSON(final)
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan finished"))
}
