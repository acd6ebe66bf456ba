package handlers

import (
	"net/http"

	"github.com/wolfman30/chart-console/internal/clinical"
	"github.com/wolfman30/chart-console/internal/summarizer"
	"github.com/wolfman30/chart-console/pkg/logging"
)

type SummaryConfig struct {
	// Summarizer is nil when no provider is configured.
	Summarizer clinical.Summarizer
	Logger     *logging.Logger
}

// SummaryHandler serves the stand-alone summary endpoint used by remote
// summarizer clients.
type SummaryHandler struct {
	summarizer clinical.Summarizer
	logger     *logging.Logger
}

func NewSummaryHandler(cfg SummaryConfig) *SummaryHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &SummaryHandler{summarizer: cfg.Summarizer, logger: cfg.Logger}
}

// GenerateSummary summarizes a posted bundle. The bundle is sanitized here
// regardless of what the caller already did.
// Route: POST /api/generate-summary
func (h *SummaryHandler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, summarizer.SummaryResponse{Error: "Method not allowed"})
		return
	}
	if h.summarizer == nil {
		h.logger.Error("summary requested without a configured provider")
		writeJSON(w, http.StatusInternalServerError, summarizer.SummaryResponse{Error: "Server configuration error: summarizer not configured"})
		return
	}

	var req summarizer.SummaryRequest
	if err := decodeJSON(r, &req); err != nil || req.Bundle == nil {
		writeJSON(w, http.StatusBadRequest, summarizer.SummaryResponse{Error: "No patient data provided"})
		return
	}

	sanitized, err := clinical.Sanitize(req.Bundle)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, summarizer.SummaryResponse{Error: err.Error()})
		return
	}

	text, err := h.summarizer.Summarize(r.Context(), sanitized)
	if err != nil {
		h.logger.Error("summary generation failed", "error", err)
		writeJSON(w, summarizer.HTTPStatus(err), summarizer.SummaryResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summarizer.SummaryResponse{Summary: text})
}
