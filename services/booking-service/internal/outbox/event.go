package outbox

import (
	"encoding/json"
	"fmt"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"

	AppointmentBooked    = "booking.appointment.booked.v1"
	AppointmentConfirmed = "booking.appointment.confirmed.v1"
	AppointmentCancelled = "booking.appointment.cancelled.v1"
	AppointmentCompleted = "booking.appointment.completed.v1"
	RescheduleProposed   = "booking.reschedule.proposed.v1"
	RescheduleAccepted   = "booking.reschedule.accepted.v1"
	RescheduleRejected   = "booking.reschedule.rejected.v1"
)

// NewAppointmentEvent marshals payload into an event keyed by the appointment.
func NewAppointmentEvent(eventType, appointmentID string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   appointmentID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
