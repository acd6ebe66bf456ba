package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/chart-console/pkg/logging"
)

// Coordinator applies appointment mutations through the gateway and keeps the
// section cache consistent with the remote write.
type Coordinator struct {
	gateway Gateway
	store   *Store
	logger  *logging.Logger
	metrics Metrics
}

// NewCoordinator builds a coordinator writing into store.
func NewCoordinator(store *Store) *Coordinator {
	return &Coordinator{
		gateway: store.gateway,
		store:   store,
		logger:  store.logger,
		metrics: store.metrics,
	}
}

// Cancel marks an appointment cancelled with the given reason. The remote
// record is replaced in full; only after that succeeds is the matching cached
// appointment swapped, leaving the rest of the patient's list untouched. On any
// failure the cache is not modified.
func (c *Coordinator) Cancel(ctx context.Context, patientID, appointmentID, reason string) (*Appointment, error) {
	appointment, err := c.cancel(ctx, patientID, appointmentID, reason)
	c.metrics.IncCancellation(outcomeOf(err))
	if err != nil {
		c.logger.Warn("appointment cancellation failed",
			"patient_id", patientID,
			"appointment_id", appointmentID,
			"error", err,
		)
		return nil, err
	}
	c.logger.Info("appointment cancelled", "patient_id", patientID, "appointment_id", appointmentID)
	return appointment, nil
}

func (c *Coordinator) cancel(ctx context.Context, patientID, appointmentID, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if patientID == "" {
		return nil, ErrPatientRequired
	}
	if appointmentID == "" {
		return nil, ErrAppointmentRequired
	}

	current, err := c.gateway.GetByID(ctx, "Appointment", appointmentID)
	if err != nil {
		return nil, fmt.Errorf("clinical: read appointment %s: %w", appointmentID, err)
	}
	if NormalizeAppointment(current).PatientID != patientID {
		return nil, ErrNotPatientAppointment
	}

	record := current.Clone()
	record["status"] = "cancelled"
	record["cancelationReason"] = map[string]any{"text": reason}

	saved, err := c.gateway.Replace(ctx, "Appointment", appointmentID, record)
	if err != nil {
		return nil, fmt.Errorf("clinical: replace appointment %s: %w", appointmentID, err)
	}
	if saved == nil || saved.ID() == "" {
		saved = record
	}

	updated := NormalizeAppointment(saved)
	c.store.replaceAppointment(patientID, updated)
	return updated, nil
}
