package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tamperscope/tamperscope/internal/ingestion"
	"github.com/tamperscope/tamperscope/pkg/risk"
	"github.com/tamperscope/tamperscope/pkg/surface"
)

// loadReport loads a report by analysis ID, checking the cache first.
func (h *Handler) loadReport(ctx context.Context, id string) (*risk.Report, error) {
	if report := h.cache.Get(id); report != nil {
		return report, nil
	}

	report, err := h.svc.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}

	h.cache.Put(id, report)
	return report, nil
}

func (h *Handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	analysis, err := h.svc.GetAnalysis(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	resp := analysisResponse{Analysis: analysis}
	if analysis.Status == ingestion.StatusCompleted {
		report, err := h.loadReport(r.Context(), id)
		if err != nil {
			h.writeLookupError(w, err)
			return
		}
		resp.Report = report
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetReport renders a stored report. ?format= selects json (default),
// markdown or text.
func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	report, err := h.loadReport(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, report)
		return
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	default:
		writeError(w, http.StatusBadRequest, "unknown format "+strconv.Quote(format))
		return
	}

	renderer, err := surface.ForFormat(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if tr, ok := renderer.(*surface.TerminalRenderer); ok {
		tr.Verbose = true
	}
	if err := renderer.Render(w, report); err != nil {
		h.logger.Error("render report", "analysis_id", id, "error", err)
	}
}

func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ingestion.ListFilter{RiskLevel: q.Get("risk_level")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		f.Offset = n
	}

	analyses, err := h.svc.ListAnalyses(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list analyses: "+err.Error())
		return
	}
	if analyses == nil {
		analyses = []ingestion.Analysis{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": analyses})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ingestion.ErrAnalysisNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	h.logger.Error("analysis lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
