package scheduling

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"clinic-scheduling/internal/apierrors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const dateLayout = "2006-01-02"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

const paymentStatusPending = "pending"

// IsLive reports whether an appointment in this status still occupies its slot.
func (s Status) IsLive() bool {
	return s != StatusCancelled && s != StatusRejected
}

// IsValid reports whether the status is a known one.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Date is a calendar date without time of day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate creates a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Equal reports whether both dates point to the same day.
func (d Date) Equal(other Date) bool {
	return d.String() == other.String()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	if value == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case []byte:
		return d.Scan(string(v))
	case string:
		if len(v) < len(dateLayout) {
			return fmt.Errorf("invalid date %q", v)
		}
		parsed, err := ParseDate(v[:len(dateLayout)])
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Availability is the recurring weekly pattern a doctor works on.
// Days use 0 for Sunday. Ranges are "HH:MM-HH:MM" with exclusive end.
type Availability struct {
	Days       []int64  `json:"days"`
	TimeRanges []string `json:"time_ranges"`
}

// Validate validates the availability pattern before it is stored.
func (a Availability) Validate() error {
	for _, day := range a.Days {
		if day < 0 || day > 6 {
			return apierrors.NewValidationError("days", "must be between 0 (Sunday) and 6 (Saturday)")
		}
	}
	for _, timeRange := range a.TimeRanges {
		start, end, err := parseRange(timeRange)
		if err != nil {
			return apierrors.NewValidationError("time_ranges", fmt.Sprintf("invalid range %q, e.g. 09:00-12:00", timeRange))
		}
		if start >= end {
			return apierrors.NewValidationError("time_ranges", fmt.Sprintf("range %q ends before it starts", timeRange))
		}
	}
	return nil
}

type Patient struct {
	ID          int64     `json:"-" dbfield:"id"`
	UserID      int64     `json:"-" dbfield:"user_id"`
	UUID        uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name        string    `json:"name" dbfield:"name"`
	Email       string    `json:"email" dbfield:"email"`
	MobilePhone string    `json:"mobile_phone" dbfield:"mobile_phone"`
}

type Doctor struct {
	ID                  int64          `json:"-" dbfield:"id"`
	UserID              int64          `json:"-" dbfield:"user_id"`
	UUID                uuid.UUID      `json:"uuid" dbfield:"uuid"`
	Name                string         `json:"name" dbfield:"name"`
	Email               string         `json:"email" dbfield:"email"`
	MobilePhone         string         `json:"mobile_phone" dbfield:"mobile_phone"`
	Specialty           string         `json:"specialty" dbfield:"specialty"`
	ConsultingFee       float64        `json:"consulting_fee" dbfield:"consulting_fee"`
	AvailableDays       pq.Int64Array  `json:"available_days" dbfield:"available_days"`
	AvailableTimeRanges pq.StringArray `json:"available_time_ranges" dbfield:"available_time_ranges"`
}

// Availability gets the doctor's weekly pattern.
func (d Doctor) Availability() Availability {
	return Availability{Days: d.AvailableDays, TimeRanges: d.AvailableTimeRanges}
}

type BlockPeriod struct {
	ID          int64     `json:"-" dbfield:"id"`
	UUID        uuid.UUID `json:"uuid,omitempty" dbfield:"uuid"`
	DoctorID    int64     `json:"-" dbfield:"doctor_id"`
	Doctor      *Doctor   `json:"doctor,omitempty"`
	StartDate   time.Time `json:"start_date,omitempty" dbfield:"start_date"`
	EndDate     time.Time `json:"end_date,omitempty" dbfield:"end_date"`
	Description *string   `json:"description" dbfield:"description"`
}

// Validate validates if the block period is valid.
func (b BlockPeriod) Validate() error {
	if b.StartDate.IsZero() {
		return apierrors.NewValidationError("start_date", "required")
	}
	if b.EndDate.IsZero() {
		return apierrors.NewValidationError("end_date", "required")
	}
	if !isUTC(b.StartDate) {
		return apierrors.NewValidationError("start_date", "must be in UTC")
	}
	if !isUTC(b.EndDate) {
		return apierrors.NewValidationError("end_date", "must be in UTC")
	}
	if !b.EndDate.After(b.StartDate) {
		return apierrors.NewValidationError("end_date", "invalid period")
	}
	return nil
}

// isUTC reports whether the instant carries no offset.
func isUTC(t time.Time) bool {
	_, offset := t.Zone()
	return offset == 0
}

// Covers reports whether the slot starting at the given date and clock time falls inside the period.
func (b BlockPeriod) Covers(date Date, slot string) bool {
	minutes, err := parseClock(slot)
	if err != nil {
		return false
	}
	reference := date.Add(time.Duration(minutes) * time.Minute)
	start := b.StartDate.UTC()
	return !reference.Before(start) && reference.Before(b.EndDate.UTC())
}

type Appointment struct {
	ID                 int64     `json:"-" dbfield:"id"`
	UUID               uuid.UUID `json:"uuid" dbfield:"uuid"`
	DoctorID           int64     `json:"-" dbfield:"doctor_id"`
	PatientID          int64     `json:"-" dbfield:"patient_id"`
	DoctorUUID         uuid.UUID `json:"doctor_uuid" dbfield:"doctor_uuid"`
	PatientUUID        uuid.UUID `json:"patient_uuid" dbfield:"patient_uuid"`
	DoctorUserID       int64     `json:"-" dbfield:"doctor_user_id"`
	PatientUserID      int64     `json:"-" dbfield:"patient_user_id"`
	Date               Date      `json:"date" dbfield:"date"`
	Time               string    `json:"time" dbfield:"time"`
	Status             Status    `json:"status" dbfield:"status"`
	Reason             string    `json:"reason" dbfield:"reason"`
	Symptoms           string    `json:"symptoms" dbfield:"symptoms"`
	Notes              string    `json:"notes" dbfield:"notes"`
	DoctorNotes        string    `json:"doctor_notes" dbfield:"doctor_notes"`
	Prescription       string    `json:"prescription" dbfield:"prescription"`
	CancellationReason string    `json:"cancellation_reason,omitempty" dbfield:"cancellation_reason"`
	PaymentStatus      string    `json:"payment_status" dbfield:"payment_status"`
	CreatedAt          time.Time `json:"created_at" dbfield:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" dbfield:"updated_at"`
}

// AppointmentRequest is the payload used to book an appointment.
// PatientUUID is only honoured for admins booking on behalf of a patient.
type AppointmentRequest struct {
	DoctorUUID  uuid.UUID  `json:"doctor_uuid"`
	PatientUUID *uuid.UUID `json:"patient_uuid,omitempty"`
	Date        Date       `json:"date"`
	Time        string     `json:"time"`
	Reason      string     `json:"reason"`
	Symptoms    string     `json:"symptoms"`
	Notes       string     `json:"notes"`
}

// Validate checks if the given request is valid.
func (a AppointmentRequest) Validate() error {
	if a.DoctorUUID == uuid.Nil {
		return apierrors.NewValidationError("doctor_uuid", "required")
	}
	if a.Date.IsZero() {
		return apierrors.NewValidationError("date", "required")
	}
	if _, err := parseClock(a.Time); err != nil {
		return apierrors.NewValidationError("time", "invalid time, e.g. 09:30")
	}
	return nil
}

// AppointmentPatch holds the fields a caller wants to change. Nil fields are left untouched.
type AppointmentPatch struct {
	Status        *Status `json:"status,omitempty"`
	Reason        *string `json:"reason,omitempty"`
	Symptoms      *string `json:"symptoms,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	Date          *Date   `json:"date,omitempty"`
	Time          *string `json:"time,omitempty"`
	DoctorNotes   *string `json:"doctor_notes,omitempty"`
	Prescription  *string `json:"prescription,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
}

// Validate checks the values of the fields present in the patch.
func (p AppointmentPatch) Validate() error {
	if p.Status != nil && !p.Status.IsValid() {
		return apierrors.NewValidationError("status", "unknown status")
	}
	if p.Time != nil {
		if _, err := parseClock(*p.Time); err != nil {
			return apierrors.NewValidationError("time", "invalid time, e.g. 09:30")
		}
	}
	if p.Date != nil && p.Date.IsZero() {
		return apierrors.NewValidationError("date", "invalid date")
	}
	return nil
}

// CancelRequest is the payload used to cancel an appointment.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AppointmentFilter narrows appointment listings. Zero values mean no restriction.
type AppointmentFilter struct {
	PatientID int64
	DoctorID  int64
	Date      *Date
}
