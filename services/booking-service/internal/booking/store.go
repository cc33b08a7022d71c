package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/outbox"
)

// Store is the appointment store. Every write goes through WithTx; fn's
// changes commit together or not at all.
type Store interface {
	WithTx(ctx context.Context, fn func(tx StoreTx) error) error

	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error)
	ListRescheduleRequests(ctx context.Context, appointmentID string) ([]model.RescheduleRequest, error)
	// BookedIntervals returns intervals of active appointments of the business
	// overlapping [from, to), skipping excludeID.
	BookedIntervals(ctx context.Context, businessID string, from, to time.Time, excludeID string) ([]availability.Interval, error)
}

// StoreTx is the transactional view. Lookups return ErrNotFound when missing.
type StoreTx interface {
	// LockBusinessDay serialises slot checks and writes for one business and civil day.
	LockBusinessDay(ctx context.Context, businessID string, day time.Time) error
	BookedIntervals(ctx context.Context, businessID string, from, to time.Time, excludeID string) ([]availability.Interval, error)

	InsertAppointment(ctx context.Context, a model.Appointment) error
	GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, error)
	UpdateAppointment(ctx context.Context, a model.Appointment) error

	// InsertRescheduleRequest returns ErrConflict when a pending request already exists.
	InsertRescheduleRequest(ctx context.Context, r model.RescheduleRequest) error
	GetRescheduleRequest(ctx context.Context, id string) (model.RescheduleRequest, error)
	GetRescheduleRequestForUpdate(ctx context.Context, id string) (model.RescheduleRequest, error)
	PendingRescheduleRequest(ctx context.Context, appointmentID string) (model.RescheduleRequest, bool, error)
	UpdateRescheduleRequest(ctx context.Context, r model.RescheduleRequest) error

	EnqueueEvent(ctx context.Context, evt outbox.Event) error
}

// ProfileSource is the read-only business-profile store.
type ProfileSource interface {
	WorkingHours(ctx context.Context, businessID string) (calendar.WorkingHours, error)
	ServiceDuration(ctx context.Context, businessID, serviceID string) (int, error)
}
