package clinical

import (
	"context"
	"sync"

	"github.com/wolfman30/chart-console/internal/fhir"
)

type fakeGateway struct {
	mu sync.Mutex

	lists      map[Category][]fhir.Resource
	listErr    error
	everything *fhir.Bundle
	everyErr   error
	records    map[string]fhir.Resource // "Type/id"
	replaced   []fhir.Resource
	replErr    error

	listCalls  map[Category]int
	everyCalls int
	getCalls   int

	// gate, when set, blocks list calls until closed.
	gate chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		lists:     map[Category][]fhir.Resource{},
		records:   map[string]fhir.Resource{},
		listCalls: map[Category]int{},
	}
}

func (f *fakeGateway) ListByCategory(ctx context.Context, patientID string, category Category) ([]fhir.Resource, error) {
	f.mu.Lock()
	f.listCalls[category]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.lists[category], nil
}

func (f *fakeGateway) FetchEverything(ctx context.Context, patientID string) (*fhir.Bundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.everyCalls++
	if f.everyErr != nil {
		return nil, f.everyErr
	}
	return f.everything, nil
}

func (f *fakeGateway) GetByID(ctx context.Context, resourceType, id string) (fhir.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	r, ok := f.records[resourceType+"/"+id]
	if !ok {
		return nil, &fhir.APIError{StatusCode: 404}
	}
	return r, nil
}

func (f *fakeGateway) Replace(ctx context.Context, resourceType, id string, resource fhir.Resource) (fhir.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replErr != nil {
		return nil, f.replErr
	}
	f.replaced = append(f.replaced, resource)
	f.records[resourceType+"/"+id] = resource
	return resource, nil
}

func (f *fakeGateway) calls(category Category) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[category]
}

func appointmentResource(id, patientID, practitionerID, status string) fhir.Resource {
	return fhir.Resource{
		"resourceType": "Appointment",
		"id":           id,
		"status":       status,
		"description":  "Visit " + id,
		"start":        "2025-03-01T09:00:00Z",
		"participant": []any{
			map[string]any{"actor": map[string]any{"reference": "Patient/" + patientID}},
			map[string]any{"actor": map[string]any{"reference": "Practitioner/" + practitionerID, "display": "Dr Display"}},
		},
	}
}
