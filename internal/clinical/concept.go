package clinical

import (
	"strings"

	"github.com/wolfman30/chart-console/internal/fhir"
)

// ConceptKind tags how much of a coded concept is present.
type ConceptKind int

const (
	ConceptAbsent ConceptKind = iota
	ConceptText
	ConceptCoded
)

// Concept is a coded concept resolved once: free text, the first coding, or nothing.
type Concept struct {
	Kind    ConceptKind
	Text    string
	Display string
	Code    string
}

// ConceptOf resolves a raw CodeableConcept value. A bare string is taken as text.
func ConceptOf(v any) Concept {
	if s, ok := v.(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return Concept{Kind: ConceptText, Text: s}
		}
		return Concept{}
	}
	obj, ok := fhir.AsResource(v)
	if !ok {
		return Concept{}
	}
	if text := strings.TrimSpace(obj.String("text")); text != "" {
		return Concept{Kind: ConceptText, Text: text}
	}
	codings := obj.Objects("coding")
	if len(codings) == 0 {
		return Concept{}
	}
	display := strings.TrimSpace(codings[0].String("display"))
	code := strings.TrimSpace(codings[0].String("code"))
	if display == "" && code == "" {
		return Concept{}
	}
	return Concept{Kind: ConceptCoded, Display: display, Code: code}
}

// FirstConceptOf resolves the first element of a list of concepts.
func FirstConceptOf(v any) Concept {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return Concept{}
		}
		return ConceptOf(list[0])
	}
	return ConceptOf(v)
}

// Label walks text, coding display, coding code, then fallback.
func (c Concept) Label(fallback string) string {
	switch c.Kind {
	case ConceptText:
		return c.Text
	case ConceptCoded:
		if c.Display != "" {
			return c.Display
		}
		return c.Code
	default:
		return fallback
	}
}
