package clinical

import (
	"strings"

	"github.com/wolfman30/chart-console/internal/fhir"
)

// Appointment is the display record for an Appointment resource.
type Appointment struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	Description        string `json:"description"`
	ServiceType        string `json:"serviceType"`
	Start              string `json:"start"`
	End                string `json:"end"`
	PatientID          string `json:"patientId,omitempty"`
	PractitionerID     string `json:"practitionerId,omitempty"`
	PractitionerName   string `json:"practitionerName,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`
}

// Practitioner is the display record for a Practitioner resource.
type Practitioner struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Qualification string `json:"qualification,omitempty"`
}

// AppointmentBundle is the payload of the appointment category: the patient's
// appointments joined with the practitioners they reference.
type AppointmentBundle struct {
	Appointments  []*Appointment           `json:"appointments"`
	Practitioners map[string]*Practitioner `json:"practitioners"`
}

// Practitioner returns the practitioner joined to a, or nil.
func (b *AppointmentBundle) Practitioner(a *Appointment) *Practitioner {
	if b == nil || a == nil || a.PractitionerID == "" {
		return nil
	}
	return b.Practitioners[a.PractitionerID]
}

// NormalizeAppointment projects an Appointment resource. The practitioner name
// is filled from the participant display and overwritten by the join.
func NormalizeAppointment(r fhir.Resource) *Appointment {
	a := &Appointment{
		ID:                 r.ID(),
		Status:             orDefault(r.String("status"), unknownValue),
		Description:        r.String("description"),
		ServiceType:        FirstConceptOf(r["serviceType"]).Label(""),
		Start:              FormatDateTime(r.String("start"), PendingDate),
		End:                FormatDateTime(r.String("end"), PendingDate),
		CancellationReason: ConceptOf(r["cancelationReason"]).Label(""),
	}
	if a.Description == "" {
		a.Description = orDefault(a.ServiceType, CategoryAppointment.UnknownLabel())
	}
	for _, participant := range r.Objects("participant") {
		actor := participant.Object("actor")
		ref := actor.String("reference")
		switch fhir.ReferenceType(ref) {
		case "Patient":
			if a.PatientID == "" {
				a.PatientID = fhir.ReferenceID(ref)
			}
		case "Practitioner":
			if a.PractitionerID == "" {
				a.PractitionerID = fhir.ReferenceID(ref)
				a.PractitionerName = actor.String("display")
			}
		}
	}
	return a
}

// NormalizePractitioner projects a Practitioner resource.
func NormalizePractitioner(r fhir.Resource) *Practitioner {
	p := &Practitioner{ID: r.ID(), Name: "Unnamed Practitioner"}
	if names := r.Objects("name"); len(names) > 0 {
		name := names[0]
		if text := strings.TrimSpace(name.String("text")); text != "" {
			p.Name = text
		} else {
			full := humanName(name)
			if prefix := strings.Join(name.Strings("prefix"), " "); prefix != "" && full != "" {
				full = prefix + " " + full
			}
			p.Name = orDefault(full, p.Name)
		}
	}
	for _, q := range r.Objects("qualification") {
		if label := ConceptOf(q["code"]).Label(""); label != "" {
			p.Qualification = label
			break
		}
	}
	return p
}

// JoinAppointments builds the appointment bundle from a search result holding
// Appointment and (included) Practitioner resources. Appointment order is kept.
func JoinAppointments(resources []fhir.Resource) *AppointmentBundle {
	bundle := &AppointmentBundle{
		Appointments:  []*Appointment{},
		Practitioners: map[string]*Practitioner{},
	}
	for _, r := range resources {
		switch r.Type() {
		case "Appointment":
			bundle.Appointments = append(bundle.Appointments, NormalizeAppointment(r))
		case "Practitioner":
			p := NormalizePractitioner(r)
			bundle.Practitioners[p.ID] = p
		}
	}
	for _, a := range bundle.Appointments {
		if p := bundle.Practitioners[a.PractitionerID]; p != nil {
			a.PractitionerName = p.Name
		}
	}
	return bundle
}

// MissingPractitioners lists referenced practitioner ids that the bundle has not joined.
func (b *AppointmentBundle) MissingPractitioners() []string {
	seen := map[string]bool{}
	var missing []string
	for _, a := range b.Appointments {
		id := a.PractitionerID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := b.Practitioners[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// withReplaced returns a copy of b in which only the appointment with a.ID is
// swapped for a. Other appointment pointers and the practitioner map are shared.
func (b *AppointmentBundle) withReplaced(a *Appointment) (*AppointmentBundle, bool) {
	for i, existing := range b.Appointments {
		if existing.ID != a.ID {
			continue
		}
		appointments := make([]*Appointment, len(b.Appointments))
		copy(appointments, b.Appointments)
		appointments[i] = a
		return &AppointmentBundle{Appointments: appointments, Practitioners: b.Practitioners}, true
	}
	return b, false
}

// named fills the practitioner display name from the bundle's practitioners.
func (b *AppointmentBundle) named(a *Appointment) *Appointment {
	if p := b.Practitioners[a.PractitionerID]; p != nil {
		a.PractitionerName = p.Name
	}
	return a
}

// applied is withReplaced for a write that raced a load. a may already be in
// a caller's hands, so a copy is stored. Ids absent from the bundle leave it
// unchanged.
func (b *AppointmentBundle) applied(a *Appointment) *AppointmentBundle {
	cp := *a
	next, _ := b.withReplaced(b.named(&cp))
	return next
}
