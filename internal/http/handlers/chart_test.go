package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/chart-console/internal/clinical"
	"github.com/wolfman30/chart-console/internal/fhir"
)

type stubSummarizer struct {
	mu   sync.Mutex
	text string
	err  error
	got  []*fhir.Bundle
}

func (s *stubSummarizer) Summarize(ctx context.Context, bundle *fhir.Bundle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, bundle)
	return s.text, s.err
}

func (s *stubSummarizer) bundles() []*fhir.Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fhir.Bundle(nil), s.got...)
}

func newChartRouter(t *testing.T, fake *fakeFHIR, summarizer clinical.Summarizer) http.Handler {
	t.Helper()
	gateway := clinical.NewFHIRGateway(newFakeFHIRClient(t, fake), nil)

	var pipeline *clinical.SummaryPipeline
	if summarizer != nil {
		var err error
		pipeline, err = clinical.NewSummaryPipeline(clinical.SummaryPipelineConfig{
			Gateway:    gateway,
			Summarizer: summarizer,
		})
		require.NoError(t, err)
	}
	store, err := clinical.NewStore(clinical.StoreConfig{Gateway: gateway, Summary: pipeline})
	require.NoError(t, err)
	t.Cleanup(store.Drain)

	h := NewChartHandler(ChartConfig{
		Store:       store,
		Browser:     clinical.NewBrowser(store),
		Coordinator: clinical.NewCoordinator(store),
		Summary:     pipeline,
	})
	r := chi.NewRouter()
	r.Post("/patients/{patientID}/sections/{category}/toggle", h.ToggleSection)
	r.Get("/patients/{patientID}/sections/{category}", h.GetSection)
	r.Post("/patients/{patientID}/appointments/{appointmentID}/cancel", h.CancelAppointment)
	r.Get("/patients/{patientID}/summary", h.GetSummary)
	r.Get("/session/open-section", h.OpenSection)
	r.Delete("/session/open-section", h.CloseSection)
	return r
}

type sectionBody struct {
	PatientID string `json:"patientId"`
	Category  string `json:"category"`
	Open      bool   `json:"open"`
	Entry     struct {
		Status     string          `json:"status"`
		Data       json.RawMessage `json:"data"`
		Error      string          `json:"error"`
		StatusCode int             `json:"statusCode"`
	} `json:"entry"`
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSection(t *testing.T, rec *httptest.ResponseRecorder) sectionBody {
	t.Helper()
	var out sectionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestToggleSectionOpensAndCloses(t *testing.T) {
	fake := newFakeFHIR()
	fake.searchResult("Immunization", fhir.Resource{
		"resourceType":       "Immunization",
		"id":                 "imm1",
		"status":             "completed",
		"vaccineCode":        map[string]any{"text": "Influenza"},
		"occurrenceDateTime": "2023-10-01",
	})
	h := newChartRouter(t, fake, nil)

	rec := serve(t, h, http.MethodPost, "/patients/p1/sections/immunization/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	opened := decodeSection(t, rec)
	assert.True(t, opened.Open)
	assert.Contains(t, []string{"loading", "success"}, opened.Entry.Status)

	rec = serve(t, h, http.MethodGet, "/patients/p1/sections/immunization?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	loaded := decodeSection(t, rec)
	assert.True(t, loaded.Open)
	require.Equal(t, "success", loaded.Entry.Status)
	var items []clinical.Immunization
	require.NoError(t, json.Unmarshal(loaded.Entry.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Influenza", items[0].Name)

	rec = serve(t, h, http.MethodGet, "/session/open-section", "")
	assert.JSONEq(t, `{"open":true,"patientId":"p1","category":"immunization"}`, rec.Body.String())

	rec = serve(t, h, http.MethodPost, "/patients/p1/sections/immunization/toggle", "")
	closed := decodeSection(t, rec)
	assert.False(t, closed.Open)
	assert.Equal(t, "success", closed.Entry.Status, "closing keeps the cached entry")

	rec = serve(t, h, http.MethodGet, "/session/open-section", "")
	assert.JSONEq(t, `{"open":false}`, rec.Body.String())
}

func TestGetSectionWithoutWaitDoesNotFetch(t *testing.T) {
	h := newChartRouter(t, newFakeFHIR(), nil)

	rec := serve(t, h, http.MethodGet, "/patients/p1/sections/allergy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeSection(t, rec)
	assert.Equal(t, "idle", got.Entry.Status)
	assert.False(t, got.Open)
}

func TestSectionRejectsUnknownCategory(t *testing.T) {
	h := newChartRouter(t, newFakeFHIR(), nil)

	rec := serve(t, h, http.MethodPost, "/patients/p1/sections/vitals/toggle", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAppointmentUpdatesCachedList(t *testing.T) {
	fake := newFakeFHIR()
	a1 := appointment("a1", "p1", "dr1")
	a2 := appointment("a2", "p1", "dr1")
	fake.searchResult("Appointment", a1, a2, fhir.Resource{
		"resourceType": "Practitioner",
		"id":           "dr1",
		"name":         []any{map[string]any{"given": []any{"Gregory"}, "family": "House"}},
	})
	fake.put(a1)
	fake.put(a2)
	h := newChartRouter(t, fake, nil)

	rec := serve(t, h, http.MethodGet, "/patients/p1/sections/appointment?wait=true", "")
	require.Equal(t, "success", decodeSection(t, rec).Entry.Status)

	rec = serve(t, h, http.MethodPost, "/patients/p1/appointments/a1/cancel", `{"reason":"patient request"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cancelled clinical.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "patient request", cancelled.CancellationReason)

	updated := fake.updatedResources()
	require.Len(t, updated, 1)
	assert.Equal(t, "patient request", updated[0].Object("cancelationReason").String("text"))

	rec = serve(t, h, http.MethodGet, "/patients/p1/sections/appointment", "")
	var bundle clinical.AppointmentBundle
	require.NoError(t, json.Unmarshal(decodeSection(t, rec).Entry.Data, &bundle))
	require.Len(t, bundle.Appointments, 2)
	assert.Equal(t, "cancelled", bundle.Appointments[0].Status)
	assert.Equal(t, "booked", bundle.Appointments[1].Status)
	assert.Equal(t, "Gregory House", bundle.Appointments[1].PractitionerName)
}

func TestCancelAppointmentErrors(t *testing.T) {
	fake := newFakeFHIR()
	fake.put(appointment("a1", "p1", "dr1"))
	fake.put(appointment("b1", "p2", "dr1"))
	h := newChartRouter(t, fake, nil)

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"blank reason", "/patients/p1/appointments/a1/cancel", `{"reason":"  "}`, http.StatusBadRequest},
		{"bad body", "/patients/p1/appointments/a1/cancel", `nope`, http.StatusBadRequest},
		{"missing appointment", "/patients/p1/appointments/zz/cancel", `{"reason":"x"}`, http.StatusNotFound},
		{"other patient", "/patients/p1/appointments/b1/cancel", `{"reason":"x"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
	assert.Empty(t, fake.updatedResources())
}

func TestCancelAppointmentUpstreamFailure(t *testing.T) {
	fake := newFakeFHIR()
	fake.put(appointment("a1", "p1", "dr1"))
	fake.failPut = true
	h := newChartRouter(t, fake, nil)

	rec := serve(t, h, http.MethodPost, "/patients/p1/appointments/a1/cancel", `{"reason":"x"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetSummaryRendersNarrative(t *testing.T) {
	fake := newFakeFHIR()
	fake.searchResult("$everything",
		fhir.Resource{
			"resourceType": "Patient",
			"id":           "p1",
			"name":         []any{map[string]any{"family": "Lovelace"}},
			"gender":       "female",
			"birthDate":    "1815-12-10",
		},
		fhir.Resource{"resourceType": "Condition", "id": "c1"},
	)
	stub := &stubSummarizer{text: "## Conditions\n- Asthma\n- **Hypertension**\nStable overall."}
	h := newChartRouter(t, fake, stub)

	rec := serve(t, h, http.MethodGet, "/patients/p1/summary?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, clinical.StatusSuccess, got.Status)
	assert.Equal(t, clinical.StageDone, got.Stage)
	require.Len(t, got.Blocks, 3)
	assert.Contains(t, got.HTML, "<li><strong>Hypertension</strong></li>")

	bundles := stub.bundles()
	require.Len(t, bundles, 1)
	patient := bundles[0].ResourcesOfType("Patient")[0]
	assert.NotContains(t, patient, "name")
	assert.Equal(t, "1815-12-10", patient.String("birthDate"))
}

func TestGetSummaryReportsFailedStep(t *testing.T) {
	fake := newFakeFHIR()
	fake.searchResult("$everything", fhir.Resource{"resourceType": "Patient", "id": "p1"})
	h := newChartRouter(t, fake, &stubSummarizer{err: errors.New("quota exhausted")})

	rec := serve(t, h, http.MethodGet, "/patients/p1/summary?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, clinical.StatusError, got.Status)
	assert.Equal(t, clinical.StageFailed, got.Stage)
	assert.Equal(t, "summarize", got.FailedStep)
	assert.Contains(t, got.Error, "could not generate narrative")
	assert.Empty(t, got.HTML)
}

func TestGetSummaryWithoutProvider(t *testing.T) {
	h := newChartRouter(t, newFakeFHIR(), nil)

	rec := serve(t, h, http.MethodGet, "/patients/p1/summary?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, clinical.StatusError, got.Status)
	assert.Equal(t, clinical.StageIdle, got.Stage)
}
