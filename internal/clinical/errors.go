package clinical

import "errors"

var (
	// ErrUnknownCategory is returned for names outside the category enumeration.
	ErrUnknownCategory = errors.New("clinical: unknown category")

	// ErrPatientRequired is returned when a cache key has no patient id.
	ErrPatientRequired = errors.New("clinical: patient id is required")

	// ErrAppointmentRequired is returned when a mutation names no appointment.
	ErrAppointmentRequired = errors.New("clinical: appointment id is required")

	// ErrReasonRequired is returned when a cancellation has no reason.
	ErrReasonRequired = errors.New("clinical: cancellation reason is required")

	// ErrNotPatientAppointment is returned when the appointment does not list the patient.
	ErrNotPatientAppointment = errors.New("clinical: appointment does not belong to patient")

	// ErrSummaryUnavailable is returned when no summarizer is configured.
	ErrSummaryUnavailable = errors.New("clinical: summarization is not configured")
)
