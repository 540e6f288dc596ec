package scheduling

import (
	"context"
	"time"

	"clinic-scheduling/internal/redisclient"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const eventsChannel = "appointments.events"

const (
	EventAppointmentCreated   = "appointment.created"
	EventAppointmentUpdated   = "appointment.updated"
	EventAppointmentCancelled = "appointment.cancelled"
)

// AppointmentEvent is handed to the notification dispatcher after a lifecycle change.
type AppointmentEvent struct {
	Type            string    `json:"type"`
	AppointmentUUID uuid.UUID `json:"appointment_uuid"`
	DoctorUUID      uuid.UUID `json:"doctor_uuid"`
	PatientUUID     uuid.UUID `json:"patient_uuid"`
	Date            Date      `json:"date"`
	Time            string    `json:"time"`
	Status          Status    `json:"status"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func newAppointmentEvent(eventType string, appointment Appointment) AppointmentEvent {
	return AppointmentEvent{
		Type:            eventType,
		AppointmentUUID: appointment.UUID,
		DoctorUUID:      appointment.DoctorUUID,
		PatientUUID:     appointment.PatientUUID,
		Date:            appointment.Date,
		Time:            appointment.Time,
		Status:          appointment.Status,
		OccurredAt:      time.Now().UTC(),
	}
}

// Notifier dispatches appointment events. Delivery failures never affect the operation that raised them.
type Notifier interface {
	Notify(ctx context.Context, event AppointmentEvent)
}

type publisherNotifier struct {
	publisher redisclient.Publisher
	logger    zerolog.Logger
}

// NewPublisherNotifier creates a Notifier that publishes events through the given publisher.
func NewPublisherNotifier(publisher redisclient.Publisher, logger zerolog.Logger) Notifier {
	return &publisherNotifier{publisher: publisher, logger: logger}
}

func (n *publisherNotifier) Notify(ctx context.Context, event AppointmentEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := n.publisher.Publish(ctx, eventsChannel, event); err != nil {
		n.logger.Warn().Err(err).
			Str("event", event.Type).
			Str("appointment_uuid", event.AppointmentUUID.String()).
			Msg("could not publish appointment event")
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, AppointmentEvent) {}
