package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/chart-console/internal/clinical"
	"github.com/wolfman30/chart-console/internal/narrative"
	"github.com/wolfman30/chart-console/pkg/logging"
)

type ChartConfig struct {
	Store       *clinical.Store
	Browser     *clinical.Browser
	Coordinator *clinical.Coordinator
	// Summary reports the pipeline stage; optional.
	Summary *clinical.SummaryPipeline
	Logger  *logging.Logger
}

// ChartHandler exposes the per-patient section cache, the open-section
// pointer and appointment cancellation.
type ChartHandler struct {
	store       *clinical.Store
	browser     *clinical.Browser
	coordinator *clinical.Coordinator
	summary     *clinical.SummaryPipeline
	logger      *logging.Logger
}

func NewChartHandler(cfg ChartConfig) *ChartHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &ChartHandler{
		store:       cfg.Store,
		browser:     cfg.Browser,
		coordinator: cfg.Coordinator,
		summary:     cfg.Summary,
		logger:      cfg.Logger,
	}
}

type sectionResponse struct {
	PatientID string         `json:"patientId"`
	Category  string         `json:"category"`
	Open      bool           `json:"open"`
	Entry     clinical.Entry `json:"entry"`
}

// ToggleSection opens the section (starting its fetch when needed) or closes
// it when it is already the open one.
// Route: POST /patients/{patientID}/sections/{category}/toggle
func (h *ChartHandler) ToggleSection(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sectionKey(w, r)
	if !ok {
		return
	}
	open, err := h.browser.Toggle(r.Context(), key)
	if err != nil {
		jsonError(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, h.section(key, open, h.store.Get(key)))
}

// GetSection returns the cached entry for a section without starting a fetch.
// With wait=true the fetch is started if needed and the call blocks until it
// settles or the request ends.
// Route: GET /patients/{patientID}/sections/{category}
func (h *ChartHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sectionKey(w, r)
	if !ok {
		return
	}
	entry, err := h.entry(r, key)
	if err != nil {
		jsonError(w, err.Error(), statusForError(err))
		return
	}
	open, _ := h.isOpen(key)
	writeJSON(w, http.StatusOK, h.section(key, open, entry))
}

type openSectionResponse struct {
	Open      bool   `json:"open"`
	PatientID string `json:"patientId,omitempty"`
	Category  string `json:"category,omitempty"`
}

// OpenSection reports which section is open, if any.
// Route: GET /session/open-section
func (h *ChartHandler) OpenSection(w http.ResponseWriter, r *http.Request) {
	key, open := h.browser.OpenSection()
	if !open {
		writeJSON(w, http.StatusOK, openSectionResponse{})
		return
	}
	writeJSON(w, http.StatusOK, openSectionResponse{
		Open:      true,
		PatientID: key.PatientID,
		Category:  string(key.Category),
	})
}

// CloseSection clears the open-section pointer.
// Route: DELETE /session/open-section
func (h *ChartHandler) CloseSection(w http.ResponseWriter, r *http.Request) {
	h.browser.Close()
	writeJSON(w, http.StatusOK, openSectionResponse{})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelAppointment cancels one of the patient's appointments.
// Route: POST /patients/{patientID}/appointments/{appointmentID}/cancel
func (h *ChartHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	patientID := chi.URLParam(r, "patientID")
	appointmentID := chi.URLParam(r, "appointmentID")

	updated, err := h.coordinator.Cancel(r.Context(), patientID, appointmentID, req.Reason)
	if err != nil {
		jsonError(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type summaryResponse struct {
	PatientID  string            `json:"patientId"`
	Status     clinical.Status   `json:"status"`
	Stage      clinical.Stage    `json:"stage"`
	Error      string            `json:"error,omitempty"`
	FailedStep string            `json:"failedStep,omitempty"`
	Narrative  string            `json:"narrative,omitempty"`
	Blocks     []narrative.Block `json:"blocks,omitempty"`
	HTML       string            `json:"html,omitempty"`
}

// GetSummary returns the summary section rendered for display. Like
// GetSection it only starts generation when wait=true.
// Route: GET /patients/{patientID}/summary
func (h *ChartHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	key := clinical.Key{PatientID: patientID, Category: clinical.CategorySummary}
	entry, err := h.entry(r, key)
	if err != nil {
		jsonError(w, err.Error(), statusForError(err))
		return
	}

	resp := summaryResponse{
		PatientID: patientID,
		Status:    entry.Status,
		Stage:     clinical.StageIdle,
		Error:     entry.Error,
	}
	if h.summary != nil {
		resp.Stage = h.summary.Stage(patientID)
	}
	if step, ok := failedStepOf(entry.Error); ok {
		resp.FailedStep = string(step)
	}
	if text, ok := clinical.Payload[string](entry); ok {
		resp.Narrative = text
		resp.Blocks = narrative.Parse(text)
		resp.HTML = narrative.RenderHTML(resp.Blocks)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChartHandler) entry(r *http.Request, key clinical.Key) (clinical.Entry, error) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		if key.PatientID == "" {
			return clinical.Entry{}, clinical.ErrPatientRequired
		}
		return h.store.Get(key), nil
	}
	entry, err := h.store.Load(r.Context(), key)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The load keeps running; report what is cached now.
		return entry, nil
	}
	return entry, err
}

func (h *ChartHandler) sectionKey(w http.ResponseWriter, r *http.Request) (clinical.Key, bool) {
	category, err := clinical.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return clinical.Key{}, false
	}
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		jsonError(w, clinical.ErrPatientRequired.Error(), http.StatusBadRequest)
		return clinical.Key{}, false
	}
	return clinical.Key{PatientID: patientID, Category: category}, true
}

func (h *ChartHandler) isOpen(key clinical.Key) (bool, bool) {
	open, ok := h.browser.OpenSection()
	return ok && open == key, ok
}

func (h *ChartHandler) section(key clinical.Key, open bool, entry clinical.Entry) sectionResponse {
	return sectionResponse{
		PatientID: key.PatientID,
		Category:  string(key.Category),
		Open:      open,
		Entry:     entry,
	}
}

// failedStepOf recovers the failed step from a stored error message; entries
// keep only the rendered text.
func failedStepOf(message string) (clinical.Step, bool) {
	if message == "" {
		return "", false
	}
	for _, step := range []clinical.Step{clinical.StepFetch, clinical.StepSanitize, clinical.StepSummarize} {
		if strings.HasPrefix(message, (&clinical.StepError{Step: step}).Error()) {
			return step, true
		}
	}
	return "", false
}
