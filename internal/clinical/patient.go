package clinical

import (
	"fmt"
	"strings"

	"github.com/wolfman30/chart-console/internal/fhir"
)

// PatientCard is the search-result projection of a Patient resource.
type PatientCard struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Gender      string              `json:"gender"`
	BirthDate   string              `json:"birthDate"`
	Address     string              `json:"address"`
	Telecom     string              `json:"telecom,omitempty"`
	Identifiers []IdentifierDisplay `json:"identifiers,omitempty"`
}

// IdentifierDisplay is one labelled business identifier.
type IdentifierDisplay struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// NormalizePatient projects a Patient resource for the search list.
func NormalizePatient(r fhir.Resource) PatientCard {
	card := PatientCard{
		ID:        r.ID(),
		Name:      patientName(r),
		Gender:    orDefault(r.String("gender"), "Unknown"),
		BirthDate: orDefault(r.String("birthDate"), "N/A"),
		Address:   patientAddress(r),
	}
	if telecom := r.Objects("telecom"); len(telecom) > 0 {
		card.Telecom = fmt.Sprintf("%s (%s)", telecom[0].String("value"), telecom[0].String("system"))
	}
	for _, id := range r.Objects("identifier") {
		card.Identifiers = append(card.Identifiers, IdentifierDisplay{
			Label: IdentifierLabel(id),
			Value: orDefault(id.String("value"), "N/A"),
		})
	}
	return card
}

// IdentifierLabel names an identifier from its type text, then its type coding
// display, then a substring guess on the system URL. The guess is approximate:
// any system whose URL happens to contain "ssn" or "driver" is classified as such.
func IdentifierLabel(identifier fhir.Resource) string {
	idType := identifier.Object("type")
	if text := strings.TrimSpace(idType.String("text")); text != "" {
		return text
	}
	if codings := idType.Objects("coding"); len(codings) > 0 {
		if display := strings.TrimSpace(codings[0].String("display")); display != "" {
			return display
		}
	}
	system := identifier.String("system")
	switch {
	case system == "":
		return "ID"
	case strings.Contains(system, "driver"):
		return "License"
	case strings.Contains(system, "ssn"):
		return "SSN"
	default:
		return "System ID"
	}
}

func patientName(r fhir.Resource) string {
	names := r.Objects("name")
	if len(names) == 0 {
		return "Unnamed Patient"
	}
	return orDefault(humanName(names[0]), "Unnamed Patient")
}

// humanName joins given names and family name of a HumanName.
func humanName(name fhir.Resource) string {
	parts := append([]string{}, name.Strings("given")...)
	if family := strings.TrimSpace(name.String("family")); family != "" {
		parts = append(parts, family)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func patientAddress(r fhir.Resource) string {
	addresses := r.Objects("address")
	if len(addresses) == 0 {
		return "No address recorded"
	}
	addr := addresses[0]
	var parts []string
	if line := strings.Join(addr.Strings("line"), " "); line != "" {
		parts = append(parts, line)
	}
	for _, key := range []string{"city", "state", "postalCode"} {
		if v := addr.String(key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}
