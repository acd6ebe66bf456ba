package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/chart-console/internal/clinical"
	"github.com/wolfman30/chart-console/internal/fhir"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusForError maps domain errors onto HTTP statuses. Anything unrecognised
// is an upstream record store failure.
func statusForError(err error) int {
	switch {
	case errors.Is(err, fhir.ErrInvalidInput),
		errors.Is(err, clinical.ErrReasonRequired),
		errors.Is(err, clinical.ErrUnknownCategory),
		errors.Is(err, clinical.ErrPatientRequired),
		errors.Is(err, clinical.ErrAppointmentRequired):
		return http.StatusBadRequest
	case errors.Is(err, fhir.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, clinical.ErrNotPatientAppointment):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 10<<20))
	return dec.Decode(v)
}
