package api

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/tamperscope/tamperscope/internal/ingestion"
	"github.com/tamperscope/tamperscope/pkg/risk"
)

const defaultMaxUpload = 64 << 20

type analysisResponse struct {
	Analysis *ingestion.Analysis `json:"analysis"`
	Report   *risk.Report        `json:"report,omitempty"`
}

// handleCreateAnalysis handles POST /api/v1/analyses. The body is either a
// JSON ingestion.AnalysisRequest (document bytes base64 encoded) or the raw
// document itself, with Content-Type application/pdf or image/*. Raw uploads
// take name, invoice and emission_date from the query string. The size
// limit applies to the body both before and after gzip decoding. A duplicate
// of an analysis that is still running gets 202 with no report.
func (h *Handler) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	var body io.Reader = http.MaxBytesReader(w, r.Body, limit)
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid gzip body: "+err.Error())
			return
		}
		defer gz.Close()
		body = http.MaxBytesReader(w, io.NopCloser(gz), limit)
	}

	req, err := decodeAnalysisRequest(r, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis, report, err := h.svc.Analyze(r.Context(), req)
	switch {
	case errors.Is(err, ingestion.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, "document is empty")
		return
	case errors.Is(err, ingestion.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("analysis failed", "document", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed: "+err.Error())
		return
	}

	if report == nil {
		writeJSON(w, http.StatusAccepted, analysisResponse{Analysis: analysis})
		return
	}
	h.cache.Put(analysis.ID, report)
	writeJSON(w, http.StatusCreated, analysisResponse{Analysis: analysis, Report: report})
}

func decodeAnalysisRequest(r *http.Request, body io.Reader) (ingestion.AnalysisRequest, error) {
	var req ingestion.AnalysisRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "application/json" || mediaType == "":
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return req, wrapBodyErr("invalid request body: ", err)
		}
		switch req.Kind {
		case "", risk.KindPDF, risk.KindImage:
		default:
			return req, fmt.Errorf("kind %q: %w", req.Kind, ingestion.ErrUnknownKind)
		}
		return req, nil

	case mediaType == "application/pdf" || strings.HasPrefix(mediaType, "image/"):
		data, err := io.ReadAll(body)
		if err != nil {
			return req, wrapBodyErr("failed to read body: ", err)
		}
		q := r.URL.Query()
		req = ingestion.AnalysisRequest{
			Name:         q.Get("name"),
			Kind:         risk.KindPDF,
			Data:         data,
			Text:         q.Get("text"),
			Invoice:      q.Get("invoice") == "true",
			EmissionDate: q.Get("emission_date"),
		}
		if mediaType != "application/pdf" {
			req.Kind = risk.KindImage
		}
		return req, nil

	default:
		return req, errors.New("unsupported content type " + mediaType)
	}
}

// wrapBodyErr keeps MaxBytesError matchable while adding context.
func wrapBodyErr(prefix string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return errors.New(prefix + err.Error())
}
