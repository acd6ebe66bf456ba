package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/chart-console/internal/fhir"
)

// fakeFHIR is an in-memory record store speaking enough FHIR REST for the
// handlers: read, create, update, type searches and $everything.
type fakeFHIR struct {
	mu       sync.Mutex
	records  map[string]fhir.Resource // "Type/id"
	searches map[string][]fhir.Resource
	created  []fhir.Resource
	updated  []fhir.Resource
	failPut  bool
	nextID   int
}

func newFakeFHIR() *fakeFHIR {
	return &fakeFHIR{
		records:  map[string]fhir.Resource{},
		searches: map[string][]fhir.Resource{},
	}
}

func (f *fakeFHIR) put(r fhir.Resource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[r.Type()+"/"+r.ID()] = r
}

func (f *fakeFHIR) searchResult(resourceType string, resources ...fhir.Resource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches[resourceType] = resources
}

func (f *fakeFHIR) createdResources() []fhir.Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fhir.Resource(nil), f.created...)
}

func (f *fakeFHIR) updatedResources() []fhir.Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fhir.Resource(nil), f.updated...)
}

func (f *fakeFHIR) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "$everything":
		writeBundle(w, f.searches["$everything"])
	case r.Method == http.MethodGet && len(parts) == 1:
		writeBundle(w, f.searches[parts[0]])
	case r.Method == http.MethodGet && len(parts) == 2:
		res, ok := f.records[parts[0]+"/"+parts[1]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	case r.Method == http.MethodPost && len(parts) == 1:
		var res fhir.Resource
		_ = json.NewDecoder(r.Body).Decode(&res)
		f.nextID++
		res["id"] = strings.ToLower(parts[0]) + "-" + strconv.Itoa(f.nextID)
		f.created = append(f.created, res)
		f.records[parts[0]+"/"+res.ID()] = res
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(res)
	case r.Method == http.MethodPut && len(parts) == 2:
		if f.failPut {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var res fhir.Resource
		_ = json.NewDecoder(r.Body).Decode(&res)
		f.updated = append(f.updated, res)
		f.records[parts[0]+"/"+parts[1]] = res
		_ = json.NewEncoder(w).Encode(res)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func writeBundle(w http.ResponseWriter, resources []fhir.Resource) {
	bundle := fhir.Bundle{ResourceType: "Bundle", Type: "searchset"}
	for _, res := range resources {
		bundle.Entry = append(bundle.Entry, fhir.BundleEntry{Resource: res})
	}
	_ = json.NewEncoder(w).Encode(bundle)
}

func newFakeFHIRClient(t *testing.T, fake *fakeFHIR) *fhir.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client, err := fhir.New(fhir.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func appointment(id, patientID, practitionerID string) fhir.Resource {
	return fhir.Resource{
		"resourceType": "Appointment",
		"id":           id,
		"status":       "booked",
		"description":  "Follow-up " + id,
		"start":        "2024-03-01T10:00:00Z",
		"end":          "2024-03-01T10:30:00Z",
		"participant": []any{
			map[string]any{"actor": map[string]any{"reference": "Patient/" + patientID}},
			map[string]any{"actor": map[string]any{"reference": "Practitioner/" + practitionerID}},
		},
	}
}
