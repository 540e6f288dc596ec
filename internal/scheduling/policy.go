package scheduling

import "clinic-scheduling/internal/auth"

// Field identifies a patchable appointment field.
type Field uint16

const (
	FieldStatus Field = 1 << iota
	FieldReason
	FieldSymptoms
	FieldNotes
	FieldDate
	FieldTime
	FieldDoctorNotes
	FieldPrescription
	FieldPaymentStatus
)

// FieldSet is a set of patchable fields.
type FieldSet uint16

const (
	allFields     = FieldSet(FieldStatus | FieldReason | FieldSymptoms | FieldNotes | FieldDate | FieldTime | FieldDoctorNotes | FieldPrescription | FieldPaymentStatus)
	doctorFields  = FieldSet(FieldStatus | FieldDoctorNotes | FieldPrescription)
	patientFields = FieldSet(FieldReason | FieldSymptoms | FieldNotes | FieldDate | FieldTime)
)

// Has reports whether the field belongs to the set.
func (s FieldSet) Has(field Field) bool {
	return s&FieldSet(field) != 0
}

// IsEmpty reports whether the set has no fields.
func (s FieldSet) IsEmpty() bool {
	return s == 0
}

// AllowedFields decides which appointment fields an actor may change.
// An empty set means the actor has no business with the appointment.
func AllowedFields(role auth.Role, isPatientOwner, isDoctorOwner bool) FieldSet {
	switch {
	case role == auth.AdminRole:
		return allFields
	case isDoctorOwner:
		return doctorFields
	case isPatientOwner:
		return patientFields
	}
	return 0
}

// CanAccess reports whether the actor may read or act on the appointment.
func CanAccess(user auth.User, appointment Appointment) bool {
	return user.Role == auth.AdminRole || isPatientOwner(user, appointment) || isDoctorOwner(user, appointment)
}

func isPatientOwner(user auth.User, appointment Appointment) bool {
	return user.ID != 0 && appointment.PatientUserID == user.ID
}

func isDoctorOwner(user auth.User, appointment Appointment) bool {
	return user.ID != 0 && appointment.DoctorUserID == user.ID
}

// Fields returns the set of fields present in the patch.
func (p AppointmentPatch) Fields() FieldSet {
	var set FieldSet
	add := func(present bool, field Field) {
		if present {
			set |= FieldSet(field)
		}
	}
	add(p.Status != nil, FieldStatus)
	add(p.Reason != nil, FieldReason)
	add(p.Symptoms != nil, FieldSymptoms)
	add(p.Notes != nil, FieldNotes)
	add(p.Date != nil, FieldDate)
	add(p.Time != nil, FieldTime)
	add(p.DoctorNotes != nil, FieldDoctorNotes)
	add(p.Prescription != nil, FieldPrescription)
	add(p.PaymentStatus != nil, FieldPaymentStatus)
	return set
}

// Filter drops the fields that are not in the allowed set.
func (p AppointmentPatch) Filter(allowed FieldSet) AppointmentPatch {
	filtered := AppointmentPatch{}
	if allowed.Has(FieldStatus) {
		filtered.Status = p.Status
	}
	if allowed.Has(FieldReason) {
		filtered.Reason = p.Reason
	}
	if allowed.Has(FieldSymptoms) {
		filtered.Symptoms = p.Symptoms
	}
	if allowed.Has(FieldNotes) {
		filtered.Notes = p.Notes
	}
	if allowed.Has(FieldDate) {
		filtered.Date = p.Date
	}
	if allowed.Has(FieldTime) {
		filtered.Time = p.Time
	}
	if allowed.Has(FieldDoctorNotes) {
		filtered.DoctorNotes = p.DoctorNotes
	}
	if allowed.Has(FieldPrescription) {
		filtered.Prescription = p.Prescription
	}
	if allowed.Has(FieldPaymentStatus) {
		filtered.PaymentStatus = p.PaymentStatus
	}
	return filtered
}

// transitions lists the statuses reachable from each status through a patch.
var transitions = map[Status][]Status{
	StatusPending:   {StatusScheduled, StatusConfirmed, StatusRejected, StatusCancelled},
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// canTransition reports whether an appointment may move between the given statuses.
func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
