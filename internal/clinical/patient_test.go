package clinical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/chart-console/internal/fhir"
)

func TestIdentifierLabel(t *testing.T) {
	tests := []struct {
		name       string
		identifier fhir.Resource
		want       string
	}{
		{"type text", fhir.Resource{"type": map[string]any{"text": "Medical Record Number"}, "system": "urn:ssn"}, "Medical Record Number"},
		{"type coding display", fhir.Resource{"type": map[string]any{"coding": []any{map[string]any{"display": "Passport"}}}}, "Passport"},
		{"ssn system", fhir.Resource{"system": "http://hl7.org/fhir/sid/us-ssn"}, "SSN"},
		{"driver system", fhir.Resource{"system": "urn:oid:2.16.840.1.113883.4.3.25/drivers"}, "License"},
		{"other system", fhir.Resource{"system": "https://github.com/synthetichealth/synthea"}, "System ID"},
		// Approximate by design: any URL containing "ssn" is read as an SSN.
		{"coincidental match", fhir.Resource{"system": "https://lessnoise.example.org/ids"}, "SSN"},
		{"no system", fhir.Resource{"value": "123"}, "ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentifierLabel(tt.identifier))
		})
	}
}

func TestNormalizePatient(t *testing.T) {
	card := NormalizePatient(fhir.Resource{
		"resourceType": "Patient",
		"id":           "p1",
		"gender":       "female",
		"birthDate":    "1980-01-01",
		"name":         []any{map[string]any{"family": "Doe", "given": []any{"Jane", "Q"}}},
		"address": []any{map[string]any{
			"line":       []any{"1 Main St", "Apt 2"},
			"city":       "Springfield",
			"state":      "IL",
			"postalCode": "62701",
		}},
		"telecom":    []any{map[string]any{"system": "phone", "value": "555-0100"}},
		"identifier": []any{map[string]any{"system": "http://hl7.org/fhir/sid/us-ssn", "value": "999-99-9999"}, map[string]any{}},
	})

	assert.Equal(t, "Jane Q Doe", card.Name)
	assert.Equal(t, "female", card.Gender)
	assert.Equal(t, "1980-01-01", card.BirthDate)
	assert.Equal(t, "1 Main St Apt 2, Springfield, IL, 62701", card.Address)
	assert.Equal(t, "555-0100 (phone)", card.Telecom)
	require.Len(t, card.Identifiers, 2)
	assert.Equal(t, IdentifierDisplay{Label: "SSN", Value: "999-99-9999"}, card.Identifiers[0])
	assert.Equal(t, IdentifierDisplay{Label: "ID", Value: "N/A"}, card.Identifiers[1])
}

func TestNormalizePatientDefaults(t *testing.T) {
	card := NormalizePatient(fhir.Resource{"resourceType": "Patient", "id": "p2", "name": []any{map[string]any{}}})
	assert.Equal(t, "Unnamed Patient", card.Name)
	assert.Equal(t, "Unknown", card.Gender)
	assert.Equal(t, "N/A", card.BirthDate)
	assert.Equal(t, "No address recorded", card.Address)
	assert.Empty(t, card.Telecom)
	assert.Empty(t, card.Identifiers)
}
