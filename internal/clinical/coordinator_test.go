package clinical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/chart-console/internal/fhir"
)

func loadedAppointments(t *testing.T) (*fakeGateway, *Store, *AppointmentBundle) {
	t.Helper()
	gw := newFakeGateway()
	a1 := appointmentResource("A1", "P1", "dr1", "booked")
	a2 := appointmentResource("A2", "P1", "dr1", "booked")
	a3 := appointmentResource("A3", "P1", "dr1", "booked")
	gw.lists[CategoryAppointment] = []fhir.Resource{
		a1, a2, a3,
		{"resourceType": "Practitioner", "id": "dr1", "name": []any{map[string]any{"text": "Dr. Kim"}}},
	}
	gw.records["Appointment/A1"] = a1
	gw.records["Appointment/A2"] = a2
	store := newTestStore(t, gw, nil)

	entry, err := store.Load(context.Background(), Key{PatientID: "P1", Category: CategoryAppointment})
	require.NoError(t, err)
	bundle, ok := Payload[*AppointmentBundle](entry)
	require.True(t, ok)
	return gw, store, bundle
}

func cachedAppointments(t *testing.T, store *Store) *AppointmentBundle {
	t.Helper()
	bundle, ok := Payload[*AppointmentBundle](store.Get(Key{PatientID: "P1", Category: CategoryAppointment}))
	require.True(t, ok)
	return bundle
}

func TestCancelReplacesOnlyTargetAppointment(t *testing.T) {
	gw, store, before := loadedAppointments(t)
	coordinator := NewCoordinator(store)

	updated, err := coordinator.Cancel(context.Background(), "P1", "A1", "no longer needed")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", updated.Status)
	assert.Equal(t, "no longer needed", updated.CancellationReason)
	assert.Equal(t, "Dr. Kim", updated.PractitionerName)

	require.Len(t, gw.replaced, 1)
	assert.Equal(t, "cancelled", gw.replaced[0]["status"])
	assert.Equal(t, map[string]any{"text": "no longer needed"}, gw.replaced[0]["cancelationReason"])
	assert.Equal(t, "Visit A1", gw.replaced[0]["description"])

	after := cachedAppointments(t, store)
	require.Len(t, after.Appointments, 3)
	assert.Same(t, updated, after.Appointments[0])
	assert.Same(t, before.Appointments[1], after.Appointments[1])
	assert.Same(t, before.Appointments[2], after.Appointments[2])
	assert.Equal(t, before.Practitioners, after.Practitioners)

	// The bundle handed out before the write is not modified.
	assert.Equal(t, "booked", before.Appointments[0].Status)
	assert.Equal(t, 1, gw.calls(CategoryAppointment))
}

func TestCancelRequiresReason(t *testing.T) {
	gw, store, before := loadedAppointments(t)
	coordinator := NewCoordinator(store)

	_, err := coordinator.Cancel(context.Background(), "P1", "A1", "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)
	assert.Zero(t, gw.getCalls)
	assert.Empty(t, gw.replaced)
	assert.Same(t, before, cachedAppointments(t, store))
}

func TestCancelFailureLeavesCacheUntouched(t *testing.T) {
	gw, store, before := loadedAppointments(t)
	gw.replErr = &fhir.APIError{StatusCode: 409, Body: "conflict"}
	coordinator := NewCoordinator(store)

	_, err := coordinator.Cancel(context.Background(), "P1", "A2", "duplicate booking")
	require.Error(t, err)
	assert.Equal(t, 409, fhir.StatusCode(err))
	assert.Same(t, before, cachedAppointments(t, store))
	assert.Equal(t, "booked", before.Appointments[1].Status)
}

func TestCancelMissingAppointment(t *testing.T) {
	_, store, before := loadedAppointments(t)
	coordinator := NewCoordinator(store)

	_, err := coordinator.Cancel(context.Background(), "P1", "A9", "gone")
	assert.ErrorIs(t, err, fhir.ErrNotFound)
	assert.Same(t, before, cachedAppointments(t, store))
}

func TestCancelOtherPatientsAppointment(t *testing.T) {
	gw, store, _ := loadedAppointments(t)
	gw.records["Appointment/B1"] = appointmentResource("B1", "P2", "dr1", "booked")
	coordinator := NewCoordinator(store)

	_, err := coordinator.Cancel(context.Background(), "P1", "B1", "wrong chart")
	assert.ErrorIs(t, err, ErrNotPatientAppointment)
	assert.Empty(t, gw.replaced)
}

func TestCancelWithoutCachedList(t *testing.T) {
	gw := newFakeGateway()
	gw.records["Appointment/A1"] = appointmentResource("A1", "P1", "dr1", "booked")
	store := newTestStore(t, gw, nil)

	updated, err := NewCoordinator(store).Cancel(context.Background(), "P1", "A1", "patient request")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", updated.Status)
	assert.Equal(t, StatusIdle, store.Get(Key{PatientID: "P1", Category: CategoryAppointment}).Status)
}

func TestCancelDuringAppointmentLoad(t *testing.T) {
	gw := newFakeGateway()
	gw.gate = make(chan struct{})
	a1 := appointmentResource("A1", "P1", "dr1", "booked")
	a2 := appointmentResource("A2", "P1", "dr1", "booked")
	gw.lists[CategoryAppointment] = []fhir.Resource{
		a1, a2,
		{"resourceType": "Practitioner", "id": "dr1", "name": []any{map[string]any{"text": "Dr. Kim"}}},
	}
	gw.records["Appointment/A1"] = a1
	store := newTestStore(t, gw, nil)
	key := Key{PatientID: "P1", Category: CategoryAppointment}

	started, err := store.EnsureLoaded(context.Background(), key)
	require.NoError(t, err)
	require.True(t, started)

	updated, err := NewCoordinator(store).Cancel(context.Background(), "P1", "A1", "no longer needed")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", updated.Status)
	assert.Equal(t, StatusLoading, store.Get(key).Status)

	// The in-flight fetch still returns the record as it was before the write.
	close(gw.gate)
	entry, err := store.Wait(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, entry.Status)

	bundle := cachedAppointments(t, store)
	require.Len(t, bundle.Appointments, 2)
	assert.Equal(t, "A1", bundle.Appointments[0].ID)
	assert.Equal(t, "cancelled", bundle.Appointments[0].Status)
	assert.Equal(t, "no longer needed", bundle.Appointments[0].CancellationReason)
	assert.Equal(t, "Dr. Kim", bundle.Appointments[0].PractitionerName)
	assert.Equal(t, "booked", bundle.Appointments[1].Status)
}
