package clinical

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wolfman30/chart-console/internal/fhir"
)

// Gateway is the remote record store as the clinical layer sees it.
type Gateway interface {
	ListByCategory(ctx context.Context, patientID string, category Category) ([]fhir.Resource, error)
	FetchEverything(ctx context.Context, patientID string) (*fhir.Bundle, error)
	GetByID(ctx context.Context, resourceType, id string) (fhir.Resource, error)
	Replace(ctx context.Context, resourceType, id string, resource fhir.Resource) (fhir.Resource, error)
}

// DefaultUnsortedCategories are fetched without a date sort; the public HAPI
// server rejects sort-by-date on MedicationRequest and Condition.
var DefaultUnsortedCategories = []Category{CategoryMedication, CategoryCondition}

// FHIRGateway implements Gateway over a FHIR REST client.
type FHIRGateway struct {
	client   *fhir.Client
	unsorted map[Category]bool
}

// NewFHIRGateway builds a gateway. A nil unsorted list means DefaultUnsortedCategories;
// an empty non-nil list sorts every category.
func NewFHIRGateway(client *fhir.Client, unsorted []Category) *FHIRGateway {
	if unsorted == nil {
		unsorted = DefaultUnsortedCategories
	}
	g := &FHIRGateway{client: client, unsorted: make(map[Category]bool, len(unsorted))}
	for _, c := range unsorted {
		g.unsorted[c] = true
	}
	return g
}

// ListParams returns the search parameters sent for a category. Only the first
// page is requested, so no _count is set.
func (g *FHIRGateway) ListParams(patientID string, category Category) url.Values {
	params := url.Values{}
	params.Set("patient", patientID)
	if !g.unsorted[category] {
		params.Set("_sort", "-date")
	}
	if category == CategoryAppointment {
		params.Set("_include", "Appointment:practitioner")
	}
	return params
}

// ListByCategory searches the category's resource type for the patient.
func (g *FHIRGateway) ListByCategory(ctx context.Context, patientID string, category Category) ([]fhir.Resource, error) {
	resourceType := category.ResourceType()
	if resourceType == "" {
		return nil, fmt.Errorf("%w: %s has no resource list", ErrUnknownCategory, category)
	}
	bundle, err := g.client.Search(ctx, resourceType, g.ListParams(patientID, category))
	if err != nil {
		return nil, err
	}
	return bundle.Resources(), nil
}

// FetchEverything reads the patient's complete record.
func (g *FHIRGateway) FetchEverything(ctx context.Context, patientID string) (*fhir.Bundle, error) {
	return g.client.Everything(ctx, patientID)
}

// GetByID reads one resource; fhir.ErrNotFound matches a missing id.
func (g *FHIRGateway) GetByID(ctx context.Context, resourceType, id string) (fhir.Resource, error) {
	return g.client.Read(ctx, resourceType, id)
}

// Replace overwrites a resource in full.
func (g *FHIRGateway) Replace(ctx context.Context, resourceType, id string, resource fhir.Resource) (fhir.Resource, error) {
	return g.client.Update(ctx, resourceType, id, resource)
}
