package clinical

import (
	"fmt"
	"strings"
)

// Category is one of the clinical-data kinds tracked per patient.
type Category string

const (
	CategoryImmunization Category = "immunization"
	CategoryMedication   Category = "medication"
	CategoryAllergy      Category = "allergy"
	CategoryProcedure    Category = "procedure"
	CategoryCondition    Category = "condition"
	CategoryAppointment  Category = "appointment"
	CategorySummary      Category = "summary"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryImmunization,
	CategoryMedication,
	CategoryAllergy,
	CategoryProcedure,
	CategoryCondition,
	CategoryAppointment,
	CategorySummary,
}

// ParseCategory accepts the category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c is part of the enumeration.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ResourceType is the FHIR resource type listed for the category, "" for summary.
func (c Category) ResourceType() string {
	switch c {
	case CategoryImmunization:
		return "Immunization"
	case CategoryMedication:
		return "MedicationRequest"
	case CategoryAllergy:
		return "AllergyIntolerance"
	case CategoryProcedure:
		return "Procedure"
	case CategoryCondition:
		return "Condition"
	case CategoryAppointment:
		return "Appointment"
	default:
		return ""
	}
}

// UnknownLabel is the last step of the concept fallback chain.
func (c Category) UnknownLabel() string {
	switch c {
	case CategoryImmunization:
		return "Unknown Vaccine"
	case CategoryMedication:
		return "Unknown Medication"
	case CategoryAllergy:
		return "Unknown Allergy"
	case CategoryProcedure:
		return "Unknown Procedure"
	case CategoryCondition:
		return "Unknown Condition"
	case CategoryAppointment:
		return "Unknown Appointment"
	default:
		return "Unknown"
	}
}

func (c Category) String() string { return string(c) }
