package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/outbox"
)

type appointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	BusinessID    string    `json:"business_id"`
	ServiceID     string    `json:"service_id"`
	ClientID      string    `json:"client_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	ActorID       string    `json:"actor_id"`
	ActorRole     string    `json:"actor_role"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type reschedulePayload struct {
	RequestID         string    `json:"request_id"`
	AppointmentID     string    `json:"appointment_id"`
	BusinessID        string    `json:"business_id"`
	ClientID          string    `json:"client_id"`
	RequestedBy       string    `json:"requested_by"`
	RequestedByRole   string    `json:"requested_by_role"`
	OriginalStartTime time.Time `json:"original_start_time"`
	OriginalEndTime   time.Time `json:"original_end_time"`
	ProposedStartTime time.Time `json:"proposed_start_time"`
	ProposedEndTime   time.Time `json:"proposed_end_time"`
	Justification     string    `json:"justification,omitempty"`
	Status            string    `json:"status"`
	ResolvedBy        string    `json:"resolved_by,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func (s *Service) enqueueAppointment(ctx context.Context, tx StoreTx, eventType string, a model.Appointment, actor model.Actor) error {
	evt, err := outbox.NewAppointmentEvent(eventType, a.ID, appointmentPayload{
		AppointmentID: a.ID,
		BusinessID:    a.BusinessID,
		ServiceID:     a.ServiceID,
		ClientID:      a.ClientID,
		StartTime:     a.StartTime.UTC(),
		EndTime:       a.EndTime.UTC(),
		Status:        string(a.DisplayStatus()),
		ActorID:       actor.ID,
		ActorRole:     string(actor.Role),
		Reason:        a.CancelReason,
		OccurredAt:    a.UpdatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	if err := tx.EnqueueEvent(ctx, evt); err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	return nil
}

func (s *Service) enqueueReschedule(ctx context.Context, tx StoreTx, eventType string, r model.RescheduleRequest, a model.Appointment, at time.Time) error {
	evt, err := outbox.NewAppointmentEvent(eventType, a.ID, reschedulePayload{
		RequestID:         r.ID,
		AppointmentID:     a.ID,
		BusinessID:        a.BusinessID,
		ClientID:          a.ClientID,
		RequestedBy:       r.RequestedBy,
		RequestedByRole:   string(r.RequestedByRole),
		OriginalStartTime: r.OriginalStartTime.UTC(),
		OriginalEndTime:   r.OriginalEndTime.UTC(),
		ProposedStartTime: r.ProposedStartTime.UTC(),
		ProposedEndTime:   r.ProposedEndTime.UTC(),
		Justification:     r.Justification,
		Status:            string(r.Status),
		ResolvedBy:        r.ResolvedBy,
		OccurredAt:        at.UTC(),
	})
	if err != nil {
		return err
	}
	if err := tx.EnqueueEvent(ctx, evt); err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	return nil
}
