package clinical

import (
	"errors"

	"github.com/wolfman30/chart-console/internal/fhir"
)

// patientKeptFields are the only Patient fields that leave the process.
var patientKeptFields = []string{"resourceType", "id", "gender", "birthDate"}

// Sanitize returns a deep copy of bundle in which every Patient resource,
// including Patients contained in other resources, is reduced to its id,
// gender and birth date. The input is not modified.
func Sanitize(bundle *fhir.Bundle) (*fhir.Bundle, error) {
	if bundle == nil {
		return nil, errors.New("clinical: bundle is empty")
	}
	if bundle.ResourceType != "" && bundle.ResourceType != "Bundle" {
		return nil, errors.New("clinical: not a bundle: " + bundle.ResourceType)
	}

	out := &fhir.Bundle{
		ResourceType: "Bundle",
		ID:           bundle.ID,
		Type:         bundle.Type,
		Total:        bundle.Total,
		Link:         append([]fhir.BundleLink(nil), bundle.Link...),
		Entry:        make([]fhir.BundleEntry, 0, len(bundle.Entry)),
	}
	for _, entry := range bundle.Entry {
		clean := fhir.BundleEntry{FullURL: entry.FullURL, Resource: sanitizeResource(entry.Resource)}
		if entry.Search != nil {
			search := *entry.Search
			clean.Search = &search
		}
		out.Entry = append(out.Entry, clean)
	}
	return out, nil
}

func sanitizeResource(r fhir.Resource) fhir.Resource {
	if r == nil {
		return nil
	}
	if r.Type() == "Patient" {
		return minimalPatient(r)
	}
	clone := r.Clone()
	contained := clone.Array("contained")
	if len(contained) == 0 {
		return clone
	}
	items := make([]any, 0, len(contained))
	for _, item := range contained {
		if obj, ok := fhir.AsResource(item); ok {
			items = append(items, map[string]any(sanitizeResource(obj)))
			continue
		}
		items = append(items, item)
	}
	clone["contained"] = items
	return clone
}

func minimalPatient(r fhir.Resource) fhir.Resource {
	minimal := fhir.Resource{}
	for _, key := range patientKeptFields {
		if v, ok := r[key]; ok && v != nil {
			minimal[key] = v
		}
	}
	minimal["resourceType"] = "Patient"
	return minimal
}
