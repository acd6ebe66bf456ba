package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wolfman30/chart-console/internal/clinical"
	"github.com/wolfman30/chart-console/internal/fhir"
	"github.com/wolfman30/chart-console/pkg/logging"
)

// recordStore is the part of the FHIR client the create and search flows use.
type recordStore interface {
	CreatePatient(ctx context.Context, in fhir.PatientInput) (fhir.Resource, error)
	CreatePractitioner(ctx context.Context, in fhir.PractitionerInput) (fhir.Resource, error)
	CreateAppointment(ctx context.Context, in fhir.AppointmentInput) (fhir.Resource, error)
	SearchPatients(ctx context.Context, query fhir.PatientQuery) ([]fhir.Resource, error)
	Read(ctx context.Context, resourceType, id string) (fhir.Resource, error)
}

type RecordsConfig struct {
	Store       recordStore
	SearchCount int
	Logger      *logging.Logger
}

// RecordsHandler serves record creation and patient search.
type RecordsHandler struct {
	store       recordStore
	searchCount int
	logger      *logging.Logger
}

func NewRecordsHandler(cfg RecordsConfig) *RecordsHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.SearchCount <= 0 {
		cfg.SearchCount = 10
	}
	return &RecordsHandler{
		store:       cfg.Store,
		searchCount: cfg.SearchCount,
		logger:      cfg.Logger,
	}
}

// CreatePatient creates a patient from the form fields.
// Route: POST /patients
func (h *RecordsHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var in fhir.PatientInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	created, err := h.store.CreatePatient(r.Context(), in)
	if err != nil {
		h.fail(w, "create patient", err)
		return
	}
	h.logger.Info("patient created", "patient_id", created.ID())
	writeJSON(w, http.StatusCreated, created)
}

// CreatePractitioner creates a practitioner from the form fields.
// Route: POST /practitioners
func (h *RecordsHandler) CreatePractitioner(w http.ResponseWriter, r *http.Request) {
	var in fhir.PractitionerInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	created, err := h.store.CreatePractitioner(r.Context(), in)
	if err != nil {
		h.fail(w, "create practitioner", err)
		return
	}
	h.logger.Info("practitioner created", "practitioner_id", created.ID())
	writeJSON(w, http.StatusCreated, created)
}

// CreateAppointment books an appointment after checking that both the patient
// and the practitioner exist.
// Route: POST /appointments
func (h *RecordsHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var in fhir.AppointmentInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := in.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	for _, ref := range []struct{ resourceType, id string }{
		{"Patient", in.PatientID},
		{"Practitioner", in.PractitionerID},
	} {
		if _, err := h.store.Read(ctx, ref.resourceType, ref.id); err != nil {
			if errors.Is(err, fhir.ErrNotFound) {
				jsonError(w, fmt.Sprintf("%s %s not found", strings.ToLower(ref.resourceType), ref.id), http.StatusNotFound)
				return
			}
			h.fail(w, "appointment pre-check", err)
			return
		}
	}

	created, err := h.store.CreateAppointment(ctx, in)
	if err != nil {
		h.fail(w, "create appointment", err)
		return
	}
	h.logger.Info("appointment created",
		"appointment_id", created.ID(),
		"patient_id", in.PatientID,
		"practitioner_id", in.PractitionerID,
	)
	writeJSON(w, http.StatusCreated, clinical.NormalizeAppointment(created))
}

type searchPatientsResponse struct {
	Patients []clinical.PatientCard `json:"patients"`
}

// SearchPatients lists matching patients, most recently updated first.
// Route: GET /patients?id=&name=
func (h *RecordsHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	query := fhir.PatientQuery{
		ID:    strings.TrimSpace(r.URL.Query().Get("id")),
		Name:  strings.TrimSpace(r.URL.Query().Get("name")),
		Count: h.searchCount,
	}
	patients, err := h.store.SearchPatients(r.Context(), query)
	if err != nil {
		h.fail(w, "search patients", err)
		return
	}
	resp := searchPatientsResponse{Patients: make([]clinical.PatientCard, 0, len(patients))}
	for _, p := range patients {
		resp.Patients = append(resp.Patients, clinical.NormalizePatient(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RecordsHandler) fail(w http.ResponseWriter, action string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(action+" failed", "error", err)
	}
	jsonError(w, err.Error(), status)
}
