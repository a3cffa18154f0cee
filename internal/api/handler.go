// Package api implements the destinyclock REST API: the per-subject query
// surface over configured profiles, plus generation runs when a database is
// attached.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/destinyclock/destinyclock/internal/ingestion"
	"github.com/destinyclock/destinyclock/internal/subject"
	"github.com/destinyclock/destinyclock/pkg/config"
	"github.com/destinyclock/destinyclock/pkg/engine"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/scoring"
)

// RunReader reads stored subjects, runs and records. *subject.Service
// implements it.
type RunReader interface {
	ListSubjects(ctx context.Context) ([]subject.Subject, error)
	ListRuns(ctx context.Context, subjectID string, limit int) ([]subject.Run, error)
	GetRun(ctx context.Context, runID string) (*subject.Run, error)
	LatestRun(ctx context.Context, subjectID string) (*subject.Run, error)
	Records(ctx context.Context, runID string, start, end time.Time) ([]scoring.DailyRecord, error)
}

// RunService executes generation runs. *ingestion.Service implements it.
type RunService interface {
	Process(ctx context.Context, req ingestion.RunRequest) (*subject.Run, error)
	Storage() ingestion.StorageClient
}

// Handler is the top-level API handler.
type Handler struct {
	subjects *engine.Registry
	runs     RunReader
	runSvc   RunService
	cache    *SeriesCache
	defaults *config.Config
	log      *slog.Logger
}

// NewHandler creates a new API handler. runs and runSvc may be nil, which
// disables the run endpoints.
func NewHandler(subjects *engine.Registry, runs RunReader, runSvc RunService, cache *SeriesCache, defaults *config.Config) *Handler {
	if cache == nil {
		cache = NewSeriesCache(0)
	}
	if defaults == nil {
		defaults = config.DefaultConfig()
	}
	return &Handler{
		subjects: subjects,
		runs:     runs,
		runSvc:   runSvc,
		cache:    cache,
		defaults: defaults,
		log:      slog.Default().With(slog.String("component", "api")),
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Query surface
	mux.HandleFunc("GET /api/subjects", h.handleListSubjects)
	mux.HandleFunc("GET /api/subjects/{subjectID}/days/{date}", h.handleDay)
	mux.HandleFunc("GET /api/subjects/{subjectID}/reading", h.handleReading)
	mux.HandleFunc("GET /api/subjects/{subjectID}/series", h.handleSeries)
	mux.HandleFunc("GET /api/subjects/{subjectID}/periods", h.handlePeriods)
	mux.HandleFunc("GET /api/compare", h.handleCompare)

	// Runs
	mux.HandleFunc("POST /api/v1/runs", h.handleCreateRun)
	mux.HandleFunc("GET /api/subjects/{subjectID}/runs", h.handleListRuns)
	mux.HandleFunc("GET /api/subjects/{subjectID}/runs/latest", h.handleLatestRun)
	mux.HandleFunc("GET /api/runs/{runID}", h.handleGetRun)
	mux.HandleFunc("GET /api/runs/{runID}/series", h.handleRunSeries)
	mux.HandleFunc("GET /api/runs/{runID}/records", h.handleRunRecords)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps an error class to a status code.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownSubject), errors.Is(err, subject.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ganzhi.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ganzhi.ErrOracle):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	writeError(w, status, err.Error())
}
