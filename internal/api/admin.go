package api

import (
	"net/http"

	"github.com/tamperscope/tamperscope/internal/metrics"
)

// handleGetConfig returns the live configuration snapshot.
func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Current())
}

// handleReloadConfig re-reads the config file. A file that fails validation
// is rejected and the previous snapshot stays live.
func (h *Handler) handleReloadConfig(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Reload()
	metrics.RecordConfigReload(err)
	if err != nil {
		h.logger.Warn("config reload rejected", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":          err.Error(),
			"config_version": snap.Version,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "reloaded",
		"config_version": snap.Version,
	})
}
