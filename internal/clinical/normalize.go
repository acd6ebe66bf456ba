package clinical

import (
	"strings"

	"github.com/wolfman30/chart-console/internal/fhir"
)

// Immunization is the display record for an Immunization resource.
type Immunization struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// Medication is the display record for a MedicationRequest resource.
type Medication struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Dosage     string `json:"dosage,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Status     string `json:"status"`
	AuthoredOn string `json:"authoredOn"`
}

// Reaction is one adverse reaction recorded on an allergy.
type Reaction struct {
	Manifestation string `json:"manifestation"`
	Severity      string `json:"severity"`
}

// Allergy is the display record for an AllergyIntolerance resource.
type Allergy struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ClinicalStatus string     `json:"clinicalStatus"`
	Type           string     `json:"type"`
	Category       string     `json:"category"`
	Criticality    string     `json:"criticality"`
	Reactions      []Reaction `json:"reactions"`
	RecordedDate   string     `json:"recordedDate"`
	Onset          string     `json:"onset"`
}

// Procedure is the display record for a Procedure resource.
type Procedure struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Performed string `json:"performed"`
	Outcome   string `json:"outcome,omitempty"`
}

// Condition is the display record for a Condition resource.
type Condition struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	ClinicalStatus     string `json:"clinicalStatus"`
	VerificationStatus string `json:"verificationStatus"`
	Severity           string `json:"severity,omitempty"`
	Onset              string `json:"onset"`
	RecordedDate       string `json:"recordedDate"`
}

const unknownValue = "unknown"

// NormalizeImmunization projects an Immunization resource.
func NormalizeImmunization(r fhir.Resource) Immunization {
	date := r.String("occurrenceDateTime")
	if date == "" {
		date = r.String("occurrenceString")
	}
	return Immunization{
		ID:     r.ID(),
		Name:   ConceptOf(r["vaccineCode"]).Label(CategoryImmunization.UnknownLabel()),
		Date:   FormatDate(date, UnknownDate),
		Status: orDefault(r.String("status"), unknownValue),
	}
}

// NormalizeMedication projects a MedicationRequest (or MedicationStatement) resource.
func NormalizeMedication(r fhir.Resource) Medication {
	concept := ConceptOf(r["medicationCodeableConcept"])
	if concept.Kind == ConceptAbsent {
		// Referenced medications only carry a display on the reference.
		concept = ConceptOf(r.Object("medicationReference").String("display"))
	}

	var dosage string
	for _, d := range r.Objects("dosageInstruction") {
		if text := strings.TrimSpace(d.String("text")); text != "" {
			dosage = text
			break
		}
	}
	if dosage == "" {
		for _, d := range r.Objects("dosage") {
			if text := strings.TrimSpace(d.String("text")); text != "" {
				dosage = text
				break
			}
		}
	}

	reason := FirstConceptOf(r["reasonCode"]).Label("")
	if reason == "" {
		reason = firstReferenceDisplay(r.Objects("reasonReference"))
	}

	authored := r.String("authoredOn")
	if authored == "" {
		authored = r.String("dateAsserted")
	}

	return Medication{
		ID:         r.ID(),
		Name:       concept.Label(CategoryMedication.UnknownLabel()),
		Dosage:     dosage,
		Reason:     reason,
		Status:     orDefault(r.String("status"), unknownValue),
		AuthoredOn: FormatDate(authored, UnknownDate),
	}
}

// NormalizeAllergy projects an AllergyIntolerance resource.
func NormalizeAllergy(r fhir.Resource) Allergy {
	reactions := make([]Reaction, 0, len(r.Objects("reaction")))
	for _, reaction := range r.Objects("reaction") {
		var labels []string
		for _, m := range reaction.Array("manifestation") {
			if label := ConceptOf(m).Label(""); label != "" {
				labels = append(labels, label)
			}
		}
		reactions = append(reactions, Reaction{
			Manifestation: strings.Join(labels, ", "),
			Severity:      reaction.String("severity"),
		})
	}

	category := strings.Join(r.Strings("category"), ", ")

	return Allergy{
		ID:             r.ID(),
		Name:           ConceptOf(r["code"]).Label(CategoryAllergy.UnknownLabel()),
		ClinicalStatus: statusLabel(r["clinicalStatus"]),
		Type:           orDefault(r.String("type"), unknownValue),
		Category:       orDefault(category, unknownValue),
		Criticality:    orDefault(r.String("criticality"), unknownValue),
		Reactions:      reactions,
		RecordedDate:   FormatDate(r.String("recordedDate"), UnknownDate),
		Onset:          FormatDate(onsetOf(r), UnknownDate),
	}
}

// NormalizeProcedure projects a Procedure resource.
func NormalizeProcedure(r fhir.Resource) Procedure {
	performed := r.String("performedDateTime")
	if performed == "" {
		performed = r.Object("performedPeriod").String("start")
	}
	if performed == "" {
		performed = r.String("performedString")
	}
	return Procedure{
		ID:        r.ID(),
		Name:      ConceptOf(r["code"]).Label(CategoryProcedure.UnknownLabel()),
		Status:    orDefault(r.String("status"), unknownValue),
		Performed: FormatDate(performed, UnknownDate),
		Outcome:   ConceptOf(r["outcome"]).Label(""),
	}
}

// NormalizeCondition projects a Condition resource.
func NormalizeCondition(r fhir.Resource) Condition {
	return Condition{
		ID:                 r.ID(),
		Name:               ConceptOf(r["code"]).Label(CategoryCondition.UnknownLabel()),
		ClinicalStatus:     statusLabel(r["clinicalStatus"]),
		VerificationStatus: statusLabel(r["verificationStatus"]),
		Severity:           ConceptOf(r["severity"]).Label(""),
		Onset:              FormatDate(onsetOf(r), UnknownDate),
		RecordedDate:       FormatDate(r.String("recordedDate"), UnknownDate),
	}
}

// normalizeList projects every resource of the category's type, in store order.
// Included or outcome entries of other types are skipped.
func normalizeList(category Category, resources []fhir.Resource) any {
	resourceType := category.ResourceType()
	matching := make([]fhir.Resource, 0, len(resources))
	for _, r := range resources {
		if r.Type() == resourceType {
			matching = append(matching, r)
		}
	}

	switch category {
	case CategoryImmunization:
		out := make([]Immunization, 0, len(matching))
		for _, r := range matching {
			out = append(out, NormalizeImmunization(r))
		}
		return out
	case CategoryMedication:
		out := make([]Medication, 0, len(matching))
		for _, r := range matching {
			out = append(out, NormalizeMedication(r))
		}
		return out
	case CategoryAllergy:
		out := make([]Allergy, 0, len(matching))
		for _, r := range matching {
			out = append(out, NormalizeAllergy(r))
		}
		return out
	case CategoryProcedure:
		out := make([]Procedure, 0, len(matching))
		for _, r := range matching {
			out = append(out, NormalizeProcedure(r))
		}
		return out
	case CategoryCondition:
		out := make([]Condition, 0, len(matching))
		for _, r := range matching {
			out = append(out, NormalizeCondition(r))
		}
		return out
	default:
		return nil
	}
}

// statusLabel reads status fields that are codes in R4 and plain strings in older stores.
func statusLabel(v any) string {
	return ConceptOf(v).Label(unknownValue)
}

func onsetOf(r fhir.Resource) string {
	if onset := r.String("onsetDateTime"); onset != "" {
		return onset
	}
	if onset := r.Object("onsetPeriod").String("start"); onset != "" {
		return onset
	}
	return r.String("onsetString")
}

func firstReferenceDisplay(refs []fhir.Resource) string {
	for _, ref := range refs {
		if display := strings.TrimSpace(ref.String("display")); display != "" {
			return display
		}
	}
	return ""
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
