// Package scheduling contains handlers, services and structures used to book appointments
// against the doctors' availability.
package scheduling

import (
	"context"
	"errors"
	"fmt"

	"clinic-scheduling/internal/apierrors"
	"clinic-scheduling/internal/auth"
	"clinic-scheduling/internal/database"
	"clinic-scheduling/internal/metrics"
	"clinic-scheduling/internal/redisclient"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultCancellationReason = "cancelled without a reason"

// Reader determines the methods available to read slots and appointments.
type Reader interface {

	// FreeSlots returns the bookable slots of the doctor on the given date, in order.
	// An unknown doctor has no free slots.
	FreeSlots(ctx context.Context, doctorUUID uuid.UUID, date Date) ([]string, error)

	// GetAppointment returns an appointment the user is involved in.
	GetAppointment(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error)

	// ListAppointments returns the appointments visible to the user, optionally restricted to a date.
	ListAppointments(ctx context.Context, user auth.User, date *Date) ([]*Appointment, error)
}

// Writer determines the methods available to manage the appointment lifecycle.
type Writer interface {

	// CreateAppointment books a free slot. Patients book for themselves, admins on behalf of a patient.
	CreateAppointment(ctx context.Context, user auth.User, request AppointmentRequest) (*Appointment, error)

	// UpdateAppointment applies the fields of the patch the user is allowed to change.
	UpdateAppointment(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, patch AppointmentPatch) (*Appointment, error)

	// CancelAppointment cancels the appointment, releasing its slot.
	CancelAppointment(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, reason string) (*Appointment, error)

	// DeleteAppointment removes the appointment. Admins only.
	DeleteAppointment(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) error
}

// Planner determines the methods available to manage the doctors' availability.
type Planner interface {

	// SetAvailability replaces the doctor's weekly pattern. Existing appointments are kept.
	SetAvailability(ctx context.Context, user auth.User, doctorUUID uuid.UUID, availability Availability) (*Doctor, error)

	// InsertBlocker creates a new calendar blocker for the authenticated doctor.
	InsertBlocker(ctx context.Context, user auth.User, blockPeriod BlockPeriod) error
}

// Service determines the methods used to manage the clinic schedule.
type Service interface {
	Reader
	Writer
	Planner
}

// ServiceOption determines the Functional Options used to create a new Service.
type ServiceOption func(service *defaultService)

// WithLocker sets the locker used to serialize bookings of the same slot.
func WithLocker(locker redisclient.SlotLocker) ServiceOption {
	return func(service *defaultService) {
		service.locker = locker
	}
}

// WithNotifier sets the dispatcher of appointment events.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(service *defaultService) {
		service.notifier = notifier
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(service *defaultService) {
		service.logger = logger
	}
}

type defaultService struct {
	repository Repository
	locker     redisclient.SlotLocker
	notifier   Notifier
	logger     zerolog.Logger
}

// NewService creates a new scheduling service.
func NewService(dbConn database.Connection, opts ...ServiceOption) Service {
	return newService(newRepository(dbConn), opts...)
}

func newService(repository Repository, opts ...ServiceOption) *defaultService {
	service := &defaultService{
		repository: repository,
		locker:     redisclient.NewNoopSlotLocker(),
		notifier:   noopNotifier{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// freeSlots resolves the doctor's pattern for the date and removes booked and blocked slots.
func (d defaultService) freeSlots(ctx context.Context, doctor Doctor, date Date) ([]string, error) {
	slots := ResolveSlots(doctor.Availability(), date.Time)
	if len(slots) == 0 {
		return slots, nil
	}
	booked, err := d.repository.ListBookedTimes(ctx, doctor.ID, date)
	if err != nil {
		return nil, err
	}
	blockers, err := d.repository.ListBlockers(ctx, doctor.ID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(booked))
	for _, slot := range booked {
		taken[slot] = struct{}{}
	}
	for _, slot := range slots {
		for _, blocker := range blockers {
			if blocker.Covers(date, slot) {
				taken[slot] = struct{}{}
				break
			}
		}
	}
	return subtractSlots(slots, taken), nil
}

func (d defaultService) FreeSlots(ctx context.Context, doctorUUID uuid.UUID, date Date) ([]string, error) {
	doctor, err := d.repository.FindDoctorByUUID(ctx, doctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return []string{}, nil
	}
	slots, err := d.freeSlots(ctx, *doctor, date)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return slots, nil
}

// bookSlot checks the slot is free and runs the write while holding the slot lock.
// The ledger unique index remains the source of truth if two writers get past the check.
// When the lock backend is unreachable the check and write run unlocked.
func (d defaultService) bookSlot(ctx context.Context, doctor Doctor, date Date, time string, write func(ctx context.Context) error) error {
	checkAndWrite := func(ctx context.Context) error {
		free, err := d.freeSlots(ctx, doctor, date)
		if err != nil {
			return err
		}
		if !containsSlot(free, time) {
			return ErrSlotUnavailable
		}
		return write(ctx)
	}
	err := d.locker.WithSlotLock(ctx, doctor.ID, date.String(), time, checkAndWrite)
	switch {
	case errors.Is(err, redisclient.ErrSlotLocked):
		return newAPIError(ErrSlotUnavailable)
	case errors.Is(err, redisclient.ErrLockUnavailable):
		d.logger.Warn().Err(err).
			Int64("doctor_id", doctor.ID).
			Str("date", date.String()).
			Str("time", time).
			Msg("booking without the slot lock")
		err = checkAndWrite(ctx)
	}
	return fromRepository(err)
}

// resolvePatient finds the patient the appointment is booked for.
func (d defaultService) resolvePatient(ctx context.Context, user auth.User, request AppointmentRequest) (*Patient, error) {
	switch user.Role {
	case auth.PatientRole:
		patient, err := d.repository.FindPatientByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		if patient == nil {
			return nil, newAPIError(ErrPatientNotFound)
		}
		return patient, nil
	case auth.AdminRole:
		if request.PatientUUID == nil {
			return nil, apierrors.NewValidationError("patient_uuid", "required")
		}
		patient, err := d.repository.FindPatientByUUID(ctx, *request.PatientUUID)
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		if patient == nil {
			return nil, newAPIError(ErrPatientNotFound)
		}
		return patient, nil
	}
	return nil, newAPIError(ErrDoctorCannotBook)
}

func (d defaultService) CreateAppointment(ctx context.Context, user auth.User, request AppointmentRequest) (appointment *Appointment, err error) {
	defer func() { metrics.ObserveAppointmentOperation("create", outcome(err)) }()
	if user.Role != auth.PatientRole && user.Role != auth.AdminRole {
		return nil, newAPIError(ErrDoctorCannotBook)
	}
	if err = request.Validate(); err != nil {
		return nil, err
	}
	patient, err := d.resolvePatient(ctx, user, request)
	if err != nil {
		return nil, err
	}
	doctor, err := d.repository.FindDoctorByUUID(ctx, request.DoctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, newAPIError(ErrDoctorNotFound)
	}
	appointment = &Appointment{
		UUID:          uuid.New(),
		DoctorID:      doctor.ID,
		PatientID:     patient.ID,
		DoctorUUID:    doctor.UUID,
		PatientUUID:   patient.UUID,
		DoctorUserID:  doctor.UserID,
		PatientUserID: patient.UserID,
		Date:          request.Date,
		Time:          request.Time,
		Status:        StatusPending,
		Reason:        request.Reason,
		Symptoms:      request.Symptoms,
		Notes:         request.Notes,
		PaymentStatus: paymentStatusPending,
	}
	err = d.bookSlot(ctx, *doctor, request.Date, request.Time, func(ctx context.Context) error {
		return d.repository.InsertAppointment(ctx, appointment)
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info().
		Str("appointment_uuid", appointment.UUID.String()).
		Str("doctor_uuid", doctor.UUID.String()).
		Str("date", appointment.Date.String()).
		Str("time", appointment.Time).
		Msg("appointment booked")
	d.notifier.Notify(ctx, newAppointmentEvent(EventAppointmentCreated, *appointment))
	return appointment, nil
}

// loadForActor loads the appointment and checks the user is involved in it.
func (d defaultService) loadForActor(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
	appointment, err := d.repository.FindAppointmentByUUID(ctx, appointmentUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if appointment == nil {
		return nil, newAPIError(ErrAppointmentNotFound)
	}
	if !CanAccess(user, *appointment) {
		return nil, newAPIError(ErrForbidden)
	}
	return appointment, nil
}

func (d defaultService) GetAppointment(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (*Appointment, error) {
	return d.loadForActor(ctx, user, appointmentUUID)
}

func (d defaultService) ListAppointments(ctx context.Context, user auth.User, date *Date) ([]*Appointment, error) {
	filter := AppointmentFilter{Date: date}
	switch user.Role {
	case auth.PatientRole:
		patient, err := d.repository.FindPatientByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		if patient == nil {
			return []*Appointment{}, nil
		}
		filter.PatientID = patient.ID
	case auth.DoctorRole:
		doctor, err := d.repository.FindDoctorByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		if doctor == nil {
			return []*Appointment{}, nil
		}
		filter.DoctorID = doctor.ID
	case auth.AdminRole:
	default:
		return nil, newAPIError(ErrForbidden)
	}
	appointments, err := d.repository.ListAppointments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return appointments, nil
}

// applyPatch copies the patch onto the appointment and reports whether its slot changed.
func applyPatch(appointment *Appointment, patch AppointmentPatch) (rescheduled bool) {
	if patch.Date != nil && !patch.Date.Equal(appointment.Date) {
		appointment.Date = *patch.Date
		rescheduled = true
	}
	if patch.Time != nil && *patch.Time != appointment.Time {
		appointment.Time = *patch.Time
		rescheduled = true
	}
	if patch.Status != nil {
		appointment.Status = *patch.Status
	}
	if patch.Reason != nil {
		appointment.Reason = *patch.Reason
	}
	if patch.Symptoms != nil {
		appointment.Symptoms = *patch.Symptoms
	}
	if patch.Notes != nil {
		appointment.Notes = *patch.Notes
	}
	if patch.DoctorNotes != nil {
		appointment.DoctorNotes = *patch.DoctorNotes
	}
	if patch.Prescription != nil {
		appointment.Prescription = *patch.Prescription
	}
	if patch.PaymentStatus != nil {
		appointment.PaymentStatus = *patch.PaymentStatus
	}
	return rescheduled
}

func (d defaultService) UpdateAppointment(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, patch AppointmentPatch) (updated *Appointment, err error) {
	defer func() { metrics.ObserveAppointmentOperation("update", outcome(err)) }()
	current, err := d.loadForActor(ctx, user, appointmentUUID)
	if err != nil {
		return nil, err
	}
	allowed := AllowedFields(user.Role, isPatientOwner(user, *current), isDoctorOwner(user, *current))
	patch = patch.Filter(allowed)
	if patch.Fields().IsEmpty() {
		return nil, newAPIError(ErrNoOp)
	}
	if err = patch.Validate(); err != nil {
		return nil, err
	}
	updated = new(Appointment)
	*updated = *current
	rescheduled := applyPatch(updated, patch)
	if rescheduled && current.Status != StatusPending {
		return nil, newAPIError(ErrRescheduleNotPending)
	}
	if !canTransition(current.Status, updated.Status) {
		return nil, newAPIError(ErrInvalidTransition)
	}
	if updated.Status == StatusCancelled && current.Status != StatusCancelled {
		updated.CancellationReason = defaultCancellationReason
	}
	write := func(ctx context.Context) error {
		return d.repository.UpdateAppointment(ctx, *updated, current.Status)
	}
	if rescheduled && updated.Status.IsLive() {
		doctor, err := d.repository.FindDoctorByUUID(ctx, current.DoctorUUID)
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		if doctor == nil {
			return nil, newAPIError(ErrDoctorNotFound)
		}
		err = d.bookSlot(ctx, *doctor, updated.Date, updated.Time, write)
		if err != nil {
			return nil, err
		}
	} else if err = fromRepository(write(ctx)); err != nil {
		return nil, err
	}
	eventType := EventAppointmentUpdated
	if updated.Status == StatusCancelled && current.Status != StatusCancelled {
		eventType = EventAppointmentCancelled
	}
	d.notifier.Notify(ctx, newAppointmentEvent(eventType, *updated))
	return updated, nil
}

func (d defaultService) CancelAppointment(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, reason string) (cancelled *Appointment, err error) {
	defer func() { metrics.ObserveAppointmentOperation("cancel", outcome(err)) }()
	current, err := d.loadForActor(ctx, user, appointmentUUID)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCompleted || current.Status == StatusCancelled {
		return nil, newAPIError(ErrCannotCancel)
	}
	if reason == "" {
		reason = defaultCancellationReason
	}
	cancelled = new(Appointment)
	*cancelled = *current
	cancelled.Status = StatusCancelled
	cancelled.CancellationReason = reason
	if err = fromRepository(d.repository.UpdateAppointment(ctx, *cancelled, current.Status)); err != nil {
		return nil, err
	}
	d.logger.Info().
		Str("appointment_uuid", cancelled.UUID.String()).
		Str("previous_status", string(current.Status)).
		Msg("appointment cancelled")
	d.notifier.Notify(ctx, newAppointmentEvent(EventAppointmentCancelled, *cancelled))
	return cancelled, nil
}

func (d defaultService) DeleteAppointment(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) (err error) {
	defer func() { metrics.ObserveAppointmentOperation("delete", outcome(err)) }()
	if user.Role != auth.AdminRole {
		return newAPIError(ErrOnlyAdminCanDelete)
	}
	appointment, err := d.repository.FindAppointmentByUUID(ctx, appointmentUUID)
	if err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if appointment == nil {
		return newAPIError(ErrAppointmentNotFound)
	}
	return fromRepository(d.repository.DeleteAppointment(ctx, appointment.ID))
}

func (d defaultService) SetAvailability(ctx context.Context, user auth.User, doctorUUID uuid.UUID, availability Availability) (*Doctor, error) {
	doctor, err := d.repository.FindDoctorByUUID(ctx, doctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, newAPIError(ErrDoctorNotFound)
	}
	if user.Role != auth.AdminRole && doctor.UserID != user.ID {
		return nil, newAPIError(ErrForbidden)
	}
	if err = availability.Validate(); err != nil {
		return nil, err
	}
	if err = fromRepository(d.repository.UpdateDoctorAvailability(ctx, doctor.ID, availability)); err != nil {
		return nil, err
	}
	doctor.AvailableDays = availability.Days
	doctor.AvailableTimeRanges = availability.TimeRanges
	return doctor, nil
}

func (d defaultService) InsertBlocker(ctx context.Context, user auth.User, blockPeriod BlockPeriod) error {
	doctor, err := d.repository.FindDoctorByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return newAPIError(ErrOnlyDoctorCanCreateBlocker)
	}
	if err = blockPeriod.Validate(); err != nil {
		return err
	}
	blocker := BlockPeriod{
		Doctor:      doctor,
		UUID:        uuid.New(),
		StartDate:   blockPeriod.StartDate.UTC(),
		EndDate:     blockPeriod.EndDate.UTC(),
		Description: blockPeriod.Description,
	}
	if err = d.repository.InsertBlocker(ctx, blocker); err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return nil
}
