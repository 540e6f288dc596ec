package scheduling

import (
	"context"
	"fmt"
	"strings"

	"clinic-scheduling/internal/database"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	doctorColumns  = "id, uuid, user_id, name, email, mobile_phone, specialty, consulting_fee, available_days, available_time_ranges"
	patientColumns = "id, uuid, user_id, name, email, mobile_phone"

	appointmentColumns = "a.id, a.uuid, a.doctor_id, a.patient_id, d.uuid AS doctor_uuid, p.uuid AS patient_uuid, " +
		"d.user_id AS doctor_user_id, p.user_id AS patient_user_id, a.date, a.time, a.status, a.reason, a.symptoms, " +
		"a.notes, a.doctor_notes, a.prescription, a.cancellation_reason, a.payment_status, a.created_at, a.updated_at"
	appointmentSource = " FROM tb_appointment a JOIN tb_doctor d ON d.id = a.doctor_id JOIN tb_patient p ON p.id = a.patient_id"

	findDoctorByUUIDQuery          = "SELECT " + doctorColumns + " FROM tb_doctor WHERE uuid = $1"
	findDoctorByUserIDQuery        = "SELECT " + doctorColumns + " FROM tb_doctor WHERE user_id = $1"
	findPatientByUUIDQuery         = "SELECT " + patientColumns + " FROM tb_patient WHERE uuid = $1"
	findPatientByUserIDQuery       = "SELECT " + patientColumns + " FROM tb_patient WHERE user_id = $1"
	updateDoctorAvailabilityQuery  = "UPDATE tb_doctor SET available_days = $1, available_time_ranges = $2 WHERE id = $3"
	insertBlockerQuery             = "INSERT INTO tb_block_period (uuid, doctor_id, start_date, end_date, description) VALUES ($1, $2, $3, $4, $5)"
	listBlockersQuery              = "SELECT id, uuid, doctor_id, start_date, end_date, description FROM tb_block_period WHERE doctor_id = $1 AND $2::date BETWEEN date_trunc('day', start_date) AND date_trunc('day', end_date)"
	listBookedTimesQuery           = "SELECT time FROM tb_appointment WHERE doctor_id = $1 AND date = $2 AND status NOT IN ('cancelled', 'rejected') ORDER BY time"
	insertAppointmentQuery         = "INSERT INTO tb_appointment (uuid, doctor_id, patient_id, date, time, status, reason, symptoms, notes, payment_status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at, updated_at"
	findAppointmentByUUIDQuery     = "SELECT " + appointmentColumns + appointmentSource + " WHERE a.uuid = $1"
	updateAppointmentQuery         = "UPDATE tb_appointment SET date = $1, time = $2, status = $3, reason = $4, symptoms = $5, notes = $6, doctor_notes = $7, prescription = $8, cancellation_reason = $9, payment_status = $10, updated_at = now() WHERE id = $11 AND status = $12"
	deleteAppointmentQuery         = "DELETE FROM tb_appointment WHERE id = $1"
	listAppointmentsQuery          = "SELECT " + appointmentColumns + appointmentSource + " WHERE ($1::bigint = 0 OR a.patient_id = $1) AND ($2::bigint = 0 OR a.doctor_id = $2) AND ($3::date IS NULL OR a.date = $3) ORDER BY a.date DESC, a.time DESC LIMIT 100"
)

// Repository provides access to the booking ledger and the doctor directory.
type Repository interface {

	// FindDoctorByUUID finds a doctor by its UUID.
	FindDoctorByUUID(ctx context.Context, uuid uuid.UUID) (*Doctor, error)

	// FindDoctorByUserID finds a doctor by its user ID.
	FindDoctorByUserID(ctx context.Context, userID int64) (*Doctor, error)

	// FindPatientByUUID finds a patient by its UUID.
	FindPatientByUUID(ctx context.Context, uuid uuid.UUID) (*Patient, error)

	// FindPatientByUserID finds a patient by its user ID.
	FindPatientByUserID(ctx context.Context, userID int64) (*Patient, error)

	// UpdateDoctorAvailability replaces the doctor's weekly pattern.
	UpdateDoctorAvailability(ctx context.Context, doctorID int64, availability Availability) error

	// InsertBlocker inserts a new block period.
	InsertBlocker(ctx context.Context, blockPeriod BlockPeriod) error

	// ListBlockers lists the doctor's blockers accordingly the given date.
	ListBlockers(ctx context.Context, doctorID int64, date Date) ([]*BlockPeriod, error)

	// ListBookedTimes lists the times taken by live appointments of the doctor on the given date.
	ListBookedTimes(ctx context.Context, doctorID int64, date Date) ([]string, error)

	// InsertAppointment inserts a new appointment, filling its ID and timestamps.
	// Returns ErrSlotUnavailable when a live appointment already holds the slot.
	InsertAppointment(ctx context.Context, appointment *Appointment) error

	// FindAppointmentByUUID finds an appointment by its UUID.
	FindAppointmentByUUID(ctx context.Context, uuid uuid.UUID) (*Appointment, error)

	// UpdateAppointment stores the appointment if its status is still the expected one.
	// Returns ErrConcurrentModification when it is not, and ErrSlotUnavailable when the new slot is taken.
	UpdateAppointment(ctx context.Context, appointment Appointment, expectedStatus Status) error

	// DeleteAppointment removes the appointment.
	DeleteAppointment(ctx context.Context, appointmentID int64) error

	// ListAppointments lists appointments matching the filter, newest first.
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]*Appointment, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

// newRepository creates a new Repository.
func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) findDoctor(ctx context.Context, query string, param interface{}) (*Doctor, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, param)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	doctor := new(Doctor)
	for rows.Next() {
		if err = database.TransformRow(rows, doctor); err != nil {
			return nil, err
		}
		if doctor.ID > 0 {
			return doctor, nil
		}
	}
	return nil, rows.Err()
}

func (d defaultRepository) findPatient(ctx context.Context, query string, param interface{}) (*Patient, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, param)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	patient := new(Patient)
	for rows.Next() {
		if err = database.TransformRow(rows, patient); err != nil {
			return nil, err
		}
		if patient.ID > 0 {
			return patient, nil
		}
	}
	return nil, rows.Err()
}

func (d defaultRepository) FindDoctorByUUID(ctx context.Context, uuid uuid.UUID) (*Doctor, error) {
	return d.findDoctor(ctx, findDoctorByUUIDQuery, uuid)
}

func (d defaultRepository) FindDoctorByUserID(ctx context.Context, userID int64) (*Doctor, error) {
	return d.findDoctor(ctx, findDoctorByUserIDQuery, userID)
}

func (d defaultRepository) FindPatientByUUID(ctx context.Context, uuid uuid.UUID) (*Patient, error) {
	return d.findPatient(ctx, findPatientByUUIDQuery, uuid)
}

func (d defaultRepository) FindPatientByUserID(ctx context.Context, userID int64) (*Patient, error) {
	return d.findPatient(ctx, findPatientByUserIDQuery, userID)
}

func (d defaultRepository) UpdateDoctorAvailability(ctx context.Context, doctorID int64, availability Availability) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	days := pq.Int64Array(availability.Days)
	if days == nil {
		days = pq.Int64Array{}
	}
	ranges := pq.StringArray(availability.TimeRanges)
	if ranges == nil {
		ranges = pq.StringArray{}
	}
	result, err := d.dbConn.DB().ExecContext(ctx, updateDoctorAvailabilityQuery, days, ranges, doctorID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (d defaultRepository) InsertBlocker(ctx context.Context, blockPeriod BlockPeriod) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 5)
	params[0] = blockPeriod.UUID
	params[1] = blockPeriod.Doctor.ID
	params[2] = blockPeriod.StartDate
	params[3] = blockPeriod.EndDate
	params[4] = blockPeriod.Description
	result, err := d.dbConn.DB().ExecContext(ctx, insertBlockerQuery, params...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("blocker not inserted")
	}
	return nil
}

func (d defaultRepository) ListBlockers(ctx context.Context, doctorID int64, date Date) ([]*BlockPeriod, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listBlockersQuery, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	blockers := make([]*BlockPeriod, 0)
	for rows.Next() {
		blocker := new(BlockPeriod)
		if err = database.TransformRow(rows, blocker); err != nil {
			return nil, err
		}
		blockers = append(blockers, blocker)
	}
	return blockers, rows.Err()
}

func (d defaultRepository) ListBookedTimes(ctx context.Context, doctorID int64, date Date) ([]string, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listBookedTimesQuery, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	times := make([]string, 0)
	for rows.Next() {
		var slot string
		if err = rows.Scan(&slot); err != nil {
			return nil, err
		}
		times = append(times, strings.TrimSpace(slot))
	}
	return times, rows.Err()
}

func (d defaultRepository) InsertAppointment(ctx context.Context, appointment *Appointment) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 10)
	params[0] = appointment.UUID
	params[1] = appointment.DoctorID
	params[2] = appointment.PatientID
	params[3] = appointment.Date
	params[4] = appointment.Time
	params[5] = string(appointment.Status)
	params[6] = appointment.Reason
	params[7] = appointment.Symptoms
	params[8] = appointment.Notes
	params[9] = appointment.PaymentStatus
	row := d.dbConn.DB().QueryRowContext(ctx, insertAppointmentQuery, params...)
	err := row.Scan(&appointment.ID, &appointment.CreatedAt, &appointment.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrSlotUnavailable
	}
	return err
}

func (d defaultRepository) FindAppointmentByUUID(ctx context.Context, uuid uuid.UUID) (*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findAppointmentByUUIDQuery, uuid)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointment := new(Appointment)
	for rows.Next() {
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		if appointment.ID > 0 {
			appointment.Time = strings.TrimSpace(appointment.Time)
			return appointment, nil
		}
	}
	return nil, rows.Err()
}

func (d defaultRepository) UpdateAppointment(ctx context.Context, appointment Appointment, expectedStatus Status) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 12)
	params[0] = appointment.Date
	params[1] = appointment.Time
	params[2] = string(appointment.Status)
	params[3] = appointment.Reason
	params[4] = appointment.Symptoms
	params[5] = appointment.Notes
	params[6] = appointment.DoctorNotes
	params[7] = appointment.Prescription
	params[8] = appointment.CancellationReason
	params[9] = appointment.PaymentStatus
	params[10] = appointment.ID
	params[11] = string(expectedStatus)
	result, err := d.dbConn.DB().ExecContext(ctx, updateAppointmentQuery, params...)
	if database.IsUniqueViolation(err) {
		return ErrSlotUnavailable
	}
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (d defaultRepository) DeleteAppointment(ctx context.Context, appointmentID int64) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.dbConn.DB().ExecContext(ctx, deleteAppointmentQuery, appointmentID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (d defaultRepository) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 3)
	params[0] = filter.PatientID
	params[1] = filter.DoctorID
	if filter.Date != nil {
		params[2] = *filter.Date
	}
	rows, err := d.dbConn.DB().QueryContext(ctx, listAppointmentsQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointments := make([]*Appointment, 0)
	for rows.Next() {
		appointment := new(Appointment)
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		appointment.Time = strings.TrimSpace(appointment.Time)
		appointments = append(appointments, appointment)
	}
	return appointments, rows.Err()
}
