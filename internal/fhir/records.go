package fhir

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInput is returned when a create request is missing required fields.
var ErrInvalidInput = errors.New("fhir: invalid input")

// PatientInput carries the fields of the create-patient form.
type PatientInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`    // male, female, other, unknown
	BirthDate string `json:"birthDate"` // YYYY-MM-DD
}

// Validate checks required fields and normalizes gender.
func (in *PatientInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	if in.FirstName == "" || in.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", in.BirthDate); err != nil {
		return fmt.Errorf("%w: birth date must be YYYY-MM-DD", ErrInvalidInput)
	}
	gender, err := normalizeGender(in.Gender)
	if err != nil {
		return err
	}
	in.Gender = gender
	return nil
}

// PractitionerInput carries the fields of the create-practitioner form.
type PractitionerInput struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Prefix        string `json:"prefix,omitempty"`        // e.g. "Dr."
	Qualification string `json:"qualification,omitempty"` // e.g. "MD"
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Validate checks required fields.
func (in *PractitionerInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	return nil
}

// AppointmentInput carries the fields of the create-appointment form.
type AppointmentInput struct {
	PatientID      string    `json:"patientId"`
	PractitionerID string    `json:"practitionerId"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Description    string    `json:"description,omitempty"`
	ServiceType    string    `json:"serviceType,omitempty"`
	Status         string    `json:"status,omitempty"` // proposed, pending, booked (default)
}

// Validate checks required fields and the time window.
func (in *AppointmentInput) Validate() error {
	in.PatientID = strings.TrimSpace(in.PatientID)
	in.PractitionerID = strings.TrimSpace(in.PractitionerID)
	if in.PatientID == "" || in.PractitionerID == "" {
		return fmt.Errorf("%w: patient and practitioner are required", ErrInvalidInput)
	}
	if in.Start.IsZero() || in.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidInput)
	}
	if !in.End.After(in.Start) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	switch in.Status {
	case "":
		in.Status = "booked"
	case "proposed", "pending", "booked":
	default:
		return fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, in.Status)
	}
	return nil
}

// PatientQuery is a patient search. ID takes precedence over Name; with neither
// the most recently updated patients are returned.
type PatientQuery struct {
	ID    string
	Name  string
	Count int
}

// CreatePatient creates a new patient record
// FHIR: POST /Patient
func (c *Client) CreatePatient(ctx context.Context, in PatientInput) (Resource, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.Create(ctx, Resource{
		"resourceType": "Patient",
		"active":       true,
		"name": []any{map[string]any{
			"use":    "official",
			"family": in.LastName,
			"given":  []any{in.FirstName},
		}},
		"gender":    in.Gender,
		"birthDate": in.BirthDate,
	})
}

// CreatePractitioner creates a new practitioner record
// FHIR: POST /Practitioner
func (c *Client) CreatePractitioner(ctx context.Context, in PractitionerInput) (Resource, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	name := map[string]any{
		"use":    "official",
		"family": in.LastName,
		"given":  []any{in.FirstName},
	}
	if p := strings.TrimSpace(in.Prefix); p != "" {
		name["prefix"] = []any{p}
	}
	res := Resource{
		"resourceType": "Practitioner",
		"active":       true,
		"name":         []any{name},
	}
	var telecom []any
	if in.Phone != "" {
		telecom = append(telecom, map[string]any{"system": "phone", "value": in.Phone, "use": "work"})
	}
	if in.Email != "" {
		telecom = append(telecom, map[string]any{"system": "email", "value": in.Email, "use": "work"})
	}
	if len(telecom) > 0 {
		res["telecom"] = telecom
	}
	if q := strings.TrimSpace(in.Qualification); q != "" {
		res["qualification"] = []any{map[string]any{"code": map[string]any{"text": q}}}
	}
	return c.Create(ctx, res)
}

// CreateAppointment books an appointment between a patient and a practitioner.
// FHIR: POST /Appointment
func (c *Client) CreateAppointment(ctx context.Context, in AppointmentInput) (Resource, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	res := Resource{
		"resourceType": "Appointment",
		"status":       in.Status,
		"start":        in.Start.Format(time.RFC3339),
		"end":          in.End.Format(time.RFC3339),
		"participant": []any{
			map[string]any{
				"actor":  map[string]any{"reference": "Patient/" + in.PatientID},
				"status": "accepted",
			},
			map[string]any{
				"actor":  map[string]any{"reference": "Practitioner/" + in.PractitionerID},
				"status": "accepted",
			},
		},
	}
	if in.Description != "" {
		res["description"] = in.Description
	}
	if in.ServiceType != "" {
		res["serviceType"] = []any{map[string]any{"text": in.ServiceType}}
	}
	return c.Create(ctx, res)
}

// SearchPatients returns the first page of matching patients, most recently updated first.
// FHIR: GET /Patient?_sort=-_lastUpdated&_count={n}&(_id|name)={value}
func (c *Client) SearchPatients(ctx context.Context, query PatientQuery) ([]Resource, error) {
	params := url.Values{}
	params.Set("_sort", "-_lastUpdated")
	if query.Count > 0 {
		params.Set("_count", strconv.Itoa(query.Count))
	}
	if id := strings.TrimSpace(query.ID); id != "" {
		params.Set("_id", id)
	} else if name := strings.TrimSpace(query.Name); name != "" {
		params.Set("name", name)
	}

	bundle, err := c.Search(ctx, "Patient", params)
	if err != nil {
		return nil, err
	}
	return bundle.ResourcesOfType("Patient"), nil
}

func normalizeGender(gender string) (string, error) {
	switch g := strings.ToLower(strings.TrimSpace(gender)); g {
	case "":
		return "unknown", nil
	case "male", "female", "other", "unknown":
		return g, nil
	default:
		return "", fmt.Errorf("%w: unsupported gender %q", ErrInvalidInput, gender)
	}
}
