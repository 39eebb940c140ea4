// Package api implements the tamperscope REST API. Documents are analyzed on
// submission; analysis rows live in Postgres and reports in blob storage.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamperscope/tamperscope/internal/ingestion"
	"github.com/tamperscope/tamperscope/pkg/config"
	"github.com/tamperscope/tamperscope/pkg/risk"
)

// AnalysisService is the part of ingestion.Service the handlers use.
type AnalysisService interface {
	Analyze(ctx context.Context, req ingestion.AnalysisRequest) (*ingestion.Analysis, *risk.Report, error)
	GetAnalysis(ctx context.Context, id string) (*ingestion.Analysis, error)
	GetReport(ctx context.Context, id string) (*risk.Report, error)
	ListAnalyses(ctx context.Context, f ingestion.ListFilter) ([]ingestion.Analysis, error)
	Ping(ctx context.Context) error
}

// Handler is the top-level API handler.
type Handler struct {
	svc    AnalysisService
	store  *config.Store
	cache  *ReportCache
	logger *slog.Logger

	// MaxUploadBytes caps request bodies. Zero means 64 MiB.
	MaxUploadBytes int64
}

// NewHandler creates a new API handler.
func NewHandler(svc AnalysisService, store *config.Store, cache *ReportCache, logger *slog.Logger) *Handler {
	if cache == nil {
		cache = NewReportCacheFromEnv()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:    svc,
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Write endpoints (auth-protected)
	mux.HandleFunc("POST /api/v1/analyses", h.handleCreateAnalysis)
	mux.HandleFunc("POST /api/v1/config/reload", h.handleReloadConfig)

	// Read endpoints
	mux.HandleFunc("GET /api/v1/analyses", h.handleListAnalyses)
	mux.HandleFunc("GET /api/v1/analyses/{id}", h.handleGetAnalysis)
	mux.HandleFunc("GET /api/v1/analyses/{id}/report", h.handleGetReport)
	mux.HandleFunc("GET /api/v1/config", h.handleGetConfig)

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"config_version": h.store.Current().Version,
	})
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
