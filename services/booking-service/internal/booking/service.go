// Package booking implements booking, the appointment lifecycle operations
// and two-party reschedule negotiation on top of an appointment store.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/slotwise/libs/otel"
	"github.com/md-rashed-zaman/slotwise/libs/runtime"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/outbox"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultListLimit    = 50
	maxListLimit        = 200
	maxJustificationLen = 1000
	maxReasonLen        = 500
)

type Service struct {
	store    Store
	profiles ProfileSource
	logger   *slog.Logger
	metrics  *metrics.BookingMetrics
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, profiles ProfileSource, opts ...Option) *Service {
	s := &Service{
		store:    store,
		profiles: profiles,
		logger:   slog.Default(),
		tracer:   otelx.Tracer("booking-service/booking"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// begin opens a span for op and returns a func that ends it and records metrics.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "booking."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := Outcome(err)
		span.SetAttributes(attribute.String("booking.outcome", outcome))
		if err != nil && !Expected(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			runtime.LoggerFromContext(ctx, s.logger).Error("booking operation failed", "op", op, "err", err)
		}
		span.End()
		s.metrics.ObserveOperation(op, outcome, time.Since(started))
	}
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	return runtime.LoggerFromContext(ctx, s.logger)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (s *Service) profile(ctx context.Context, businessID, serviceID string) (calendar.WorkingHours, int, error) {
	cal, err := s.profiles.WorkingHours(ctx, businessID)
	if err != nil {
		return calendar.WorkingHours{}, 0, fmt.Errorf("working hours: %w", err)
	}
	dur, err := s.profiles.ServiceDuration(ctx, businessID, serviceID)
	if err != nil {
		return calendar.WorkingHours{}, 0, fmt.Errorf("service duration: %w", err)
	}
	if dur <= 0 {
		return calendar.WorkingHours{}, 0, invalid("service %s has no duration", serviceID)
	}
	return cal, dur, nil
}

type SlotsResult struct {
	BusinessID      string
	ServiceID       string
	Date            time.Time
	DurationMinutes int
	Slots           []availability.TimeSlot
}

// Slots computes the day's slots for a service. Slots that have already
// started are reported occupied.
func (s *Service) Slots(ctx context.Context, businessID, serviceID, date string) (res SlotsResult, err error) {
	ctx, done := s.begin(ctx, "slots", attribute.String("business.id", businessID))
	defer func() { done(err) }()

	if businessID == "" || serviceID == "" {
		return SlotsResult{}, invalid("business_id and service_id are required")
	}
	cal, dur, err := s.profile(ctx, businessID, serviceID)
	if err != nil {
		return SlotsResult{}, err
	}
	day, err := cal.ParseDate(date)
	if err != nil {
		return SlotsResult{}, invalid("date must be YYYY-MM-DD")
	}
	booked, err := s.store.BookedIntervals(ctx, businessID, day, day.AddDate(0, 0, 1), "")
	if err != nil {
		return SlotsResult{}, fmt.Errorf("booked intervals: %w", err)
	}

	slots := availability.ComputeSlots(cal, dur, day, booked)
	now := s.now()
	free := 0
	for i := range slots {
		if slots[i].Start.Before(now) {
			slots[i].Status = availability.Occupied
		}
		if slots[i].Status == availability.Available {
			free++
		}
	}
	s.metrics.ObserveSlots(free, len(slots)-free)

	return SlotsResult{
		BusinessID:      businessID,
		ServiceID:       serviceID,
		Date:            day,
		DurationMinutes: dur,
		Slots:           slots,
	}, nil
}

// checkBookable locks the business day and verifies that a service of
// durationMinutes can start at start. excludeID is ignored as a booking.
func (s *Service) checkBookable(ctx context.Context, tx StoreTx, cal calendar.WorkingHours, businessID string, start time.Time, durationMinutes int, excludeID string) error {
	if !start.After(s.now()) {
		return fmt.Errorf("%w: %s is in the past", ErrInvalidSlot, start.Format(time.RFC3339))
	}
	day := cal.Day(start)
	if err := tx.LockBusinessDay(ctx, businessID, day); err != nil {
		return fmt.Errorf("lock business day: %w", err)
	}
	booked, err := tx.BookedIntervals(ctx, businessID, day, day.AddDate(0, 0, 1), excludeID)
	if err != nil {
		return fmt.Errorf("booked intervals: %w", err)
	}
	slots := availability.ComputeSlots(cal, durationMinutes, day, booked)
	if !availability.Bookable(slots, booked, start, time.Duration(durationMinutes)*time.Minute) {
		return fmt.Errorf("%w: %s", ErrInvalidSlot, start.Format(time.RFC3339))
	}
	return nil
}

type BookInput struct {
	BusinessID string
	ServiceID  string
	Start      time.Time
}

// Book creates a pending appointment for the calling client.
func (s *Service) Book(ctx context.Context, actor model.Actor, in BookInput) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "book", attribute.String("business.id", in.BusinessID))
	defer func() { done(err) }()

	if actor.Role != model.RoleClient || actor.ID == "" {
		return model.Appointment{}, fmt.Errorf("%w: only clients can book", ErrForbidden)
	}
	in.BusinessID = strings.TrimSpace(in.BusinessID)
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	if in.BusinessID == "" || in.ServiceID == "" || in.Start.IsZero() {
		return model.Appointment{}, invalid("business_id, service_id and start_time are required")
	}
	cal, dur, err := s.profile(ctx, in.BusinessID, in.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}

	now := s.now()
	start := in.Start.In(cal.Loc())
	appt = model.Appointment{
		ID:              s.newID(),
		BusinessID:      in.BusinessID,
		ServiceID:       in.ServiceID,
		ClientID:        actor.ID,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(dur) * time.Minute),
		DurationMinutes: dur,
		Status:          model.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.store.WithTx(ctx, func(tx StoreTx) error {
		if err := s.checkBookable(ctx, tx, cal, appt.BusinessID, start, dur, ""); err != nil {
			return err
		}
		if err := tx.InsertAppointment(ctx, appt); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return s.enqueueAppointment(ctx, tx, outbox.AppointmentBooked, appt, actor)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.log(ctx).Info("appointment booked", "appointment_id", appt.ID, "business_id", appt.BusinessID, "start", appt.StartTime)
	return appt, nil
}

// transition applies ev to an appointment inside one transaction. hook may
// adjust next and write related rows before the appointment is saved.
func (s *Service) transition(ctx context.Context, actor model.Actor, id string, ev lifecycle.Event, eventType string,
	hook func(tx StoreTx, prev model.Appointment, next *model.Appointment) error) (model.Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return model.Appointment{}, invalid("appointment_id is required")
	}
	var out model.Appointment
	err := s.store.WithTx(ctx, func(tx StoreTx) error {
		a, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("load appointment: %w", err)
		}
		if !actor.CanAccess(a) {
			return ErrForbidden
		}
		next, err := lifecycle.Apply(a, ev)
		if err != nil {
			return err
		}
		next.UpdatedAt = s.now()
		if hook != nil {
			if err := hook(tx, a, &next); err != nil {
				return err
			}
		}
		if err := tx.UpdateAppointment(ctx, next); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if err := s.enqueueAppointment(ctx, tx, eventType, next, actor); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

// Confirm is a merchant accepting a pending booking.
func (s *Service) Confirm(ctx context.Context, actor model.Actor, appointmentID string) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "confirm", attribute.String("appointment.id", appointmentID))
	defer func() { done(err) }()

	if actor.Role != model.RoleMerchant {
		return model.Appointment{}, fmt.Errorf("%w: only merchants can confirm", ErrForbidden)
	}
	appt, err = s.transition(ctx, actor, appointmentID, lifecycle.EventConfirm, outbox.AppointmentConfirmed, nil)
	if err != nil {
		return model.Appointment{}, err
	}
	s.log(ctx).Info("appointment confirmed", "appointment_id", appt.ID)
	return appt, nil
}

// Cancel may be called by either party. An outstanding reschedule request is
// rejected in the same transaction.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, appointmentID, reason string) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "cancel", attribute.String("appointment.id", appointmentID))
	defer func() { done(err) }()

	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLen {
		return model.Appointment{}, invalid("reason is too long")
	}
	appt, err = s.transition(ctx, actor, appointmentID, lifecycle.EventCancel, outbox.AppointmentCancelled,
		func(tx StoreTx, prev model.Appointment, next *model.Appointment) error {
			next.CancelReason = reason
			next.CancelledBy = actor.ID
			if !prev.Negotiating() {
				return nil
			}
			req, ok, err := tx.PendingRescheduleRequest(ctx, prev.ID)
			if err != nil {
				return fmt.Errorf("pending reschedule: %w", err)
			}
			if !ok {
				return nil
			}
			at := next.UpdatedAt
			req.Status = model.RequestRejected
			req.ResolvedBy = actor.ID
			req.ResolvedAt = &at
			if err := tx.UpdateRescheduleRequest(ctx, req); err != nil {
				return fmt.Errorf("update reschedule request: %w", err)
			}
			return s.enqueueReschedule(ctx, tx, outbox.RescheduleRejected, req, *next, at)
		})
	if err != nil {
		return model.Appointment{}, err
	}
	s.log(ctx).Info("appointment cancelled", "appointment_id", appt.ID, "by", actor.ID)
	return appt, nil
}

// Complete marks a confirmed appointment as rendered. Only merchants, and only once it has started.
func (s *Service) Complete(ctx context.Context, actor model.Actor, appointmentID string) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "complete", attribute.String("appointment.id", appointmentID))
	defer func() { done(err) }()

	if actor.Role != model.RoleMerchant {
		return model.Appointment{}, fmt.Errorf("%w: only merchants can complete", ErrForbidden)
	}
	appt, err = s.transition(ctx, actor, appointmentID, lifecycle.EventComplete, outbox.AppointmentCompleted,
		func(_ StoreTx, prev model.Appointment, next *model.Appointment) error {
			if next.UpdatedAt.Before(prev.StartTime) {
				return fmt.Errorf("%w: appointment has not started", ErrInvalidTransition)
			}
			return nil
		})
	if err != nil {
		return model.Appointment{}, err
	}
	s.log(ctx).Info("appointment completed", "appointment_id", appt.ID)
	return appt, nil
}

type ProposeInput struct {
	AppointmentID string
	Start         time.Time
	Justification string
}

// Propose opens a reschedule negotiation. The appointment keeps its current
// times until the counterparty accepts.
func (s *Service) Propose(ctx context.Context, actor model.Actor, in ProposeInput) (req model.RescheduleRequest, err error) {
	ctx, done := s.begin(ctx, "propose", attribute.String("appointment.id", in.AppointmentID))
	defer func() { done(err) }()

	in.AppointmentID = strings.TrimSpace(in.AppointmentID)
	in.Justification = strings.TrimSpace(in.Justification)
	if in.AppointmentID == "" || in.Start.IsZero() {
		return model.RescheduleRequest{}, invalid("appointment_id and start_time are required")
	}
	if len(in.Justification) > maxJustificationLen {
		return model.RescheduleRequest{}, invalid("justification is too long")
	}

	err = s.store.WithTx(ctx, func(tx StoreTx) error {
		a, err := tx.GetAppointmentForUpdate(ctx, in.AppointmentID)
		if err != nil {
			return fmt.Errorf("load appointment: %w", err)
		}
		if !actor.CanAccess(a) {
			return ErrForbidden
		}
		if a.Status.Terminal() {
			return fmt.Errorf("%w: appointment is %s", ErrInvalidTransition, a.Status)
		}
		if _, pending, err := tx.PendingRescheduleRequest(ctx, a.ID); err != nil {
			return fmt.Errorf("pending reschedule: %w", err)
		} else if pending || a.Negotiating() {
			return ErrConflict
		}
		next, err := lifecycle.Apply(a, lifecycle.EventProposeReschedule)
		if err != nil {
			return err
		}

		cal, err := s.profiles.WorkingHours(ctx, a.BusinessID)
		if err != nil {
			return fmt.Errorf("working hours: %w", err)
		}
		start := in.Start.In(cal.Loc())
		if start.Equal(a.StartTime) {
			return invalid("proposed time equals the current time")
		}
		if err := s.checkBookable(ctx, tx, cal, a.BusinessID, start, a.DurationMinutes, a.ID); err != nil {
			return err
		}

		now := s.now()
		req = model.RescheduleRequest{
			ID:                s.newID(),
			AppointmentID:     a.ID,
			RequestedBy:       actor.ID,
			RequestedByRole:   actor.Role,
			OriginalStartTime: a.StartTime,
			OriginalEndTime:   a.EndTime,
			ProposedStartTime: start,
			ProposedEndTime:   start.Add(a.Duration()),
			Justification:     in.Justification,
			Status:            model.RequestPending,
			CreatedAt:         now,
		}
		if err := tx.InsertRescheduleRequest(ctx, req); err != nil {
			if errors.Is(err, ErrConflict) {
				return err
			}
			return fmt.Errorf("insert reschedule request: %w", err)
		}

		next.RescheduleJustification = in.Justification
		next.UpdatedAt = now
		if err := tx.UpdateAppointment(ctx, next); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		return s.enqueueReschedule(ctx, tx, outbox.RescheduleProposed, req, next, now)
	})
	if err != nil {
		return model.RescheduleRequest{}, err
	}

	s.log(ctx).Info("reschedule proposed", "request_id", req.ID, "appointment_id", req.AppointmentID, "by_role", req.RequestedByRole)
	return req, nil
}

// Accept commits a pending proposal: the appointment moves to the proposed
// time and is confirmed. The proposed time is re-checked against current bookings.
func (s *Service) Accept(ctx context.Context, actor model.Actor, requestID string) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "accept", attribute.String("reschedule.id", requestID))
	defer func() { done(err) }()

	appt, err = s.resolve(ctx, actor, requestID, true)
	if err != nil {
		return model.Appointment{}, err
	}
	s.log(ctx).Info("reschedule accepted", "request_id", requestID, "appointment_id", appt.ID, "start", appt.StartTime)
	return appt, nil
}

// Reject closes a pending proposal and restores the appointment's prior status.
func (s *Service) Reject(ctx context.Context, actor model.Actor, requestID string) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "reject", attribute.String("reschedule.id", requestID))
	defer func() { done(err) }()

	appt, err = s.resolve(ctx, actor, requestID, false)
	if err != nil {
		return model.Appointment{}, err
	}
	s.log(ctx).Info("reschedule rejected", "request_id", requestID, "appointment_id", appt.ID)
	return appt, nil
}

func (s *Service) resolve(ctx context.Context, actor model.Actor, requestID string, accept bool) (model.Appointment, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return model.Appointment{}, invalid("request_id is required")
	}

	var out model.Appointment
	err := s.store.WithTx(ctx, func(tx StoreTx) error {
		// Lock the appointment before the request, the same order Cancel uses.
		peek, err := tx.GetRescheduleRequest(ctx, requestID)
		if err != nil {
			return fmt.Errorf("load reschedule request: %w", err)
		}
		a, err := tx.GetAppointmentForUpdate(ctx, peek.AppointmentID)
		if err != nil {
			return fmt.Errorf("load appointment: %w", err)
		}
		req, err := tx.GetRescheduleRequestForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("load reschedule request: %w", err)
		}
		if !actor.CanAccess(a) {
			return ErrForbidden
		}
		if req.Status != model.RequestPending {
			return fmt.Errorf("%w: request is %s", ErrAlreadyResolved, req.Status)
		}
		if actor.Role != req.RequestedByRole.Counterparty() {
			return fmt.Errorf("%w: only the %s can resolve this request", ErrForbidden, req.RequestedByRole.Counterparty())
		}

		ev, eventType := lifecycle.EventRejectReschedule, outbox.RescheduleRejected
		if accept {
			ev, eventType = lifecycle.EventAcceptReschedule, outbox.RescheduleAccepted
		}
		next, err := lifecycle.Apply(a, ev)
		if err != nil {
			return err
		}

		if accept {
			cal, err := s.profiles.WorkingHours(ctx, a.BusinessID)
			if err != nil {
				return fmt.Errorf("working hours: %w", err)
			}
			start := req.ProposedStartTime.In(cal.Loc())
			if err := s.checkBookable(ctx, tx, cal, a.BusinessID, start, a.DurationMinutes, a.ID); err != nil {
				return err
			}
			next.StartTime = start
			next.EndTime = start.Add(a.Duration())
			req.Status = model.RequestAccepted
		} else {
			req.Status = model.RequestRejected
		}

		now := s.now()
		req.ResolvedBy = actor.ID
		req.ResolvedAt = &now
		next.UpdatedAt = now

		if err := tx.UpdateRescheduleRequest(ctx, req); err != nil {
			return fmt.Errorf("update reschedule request: %w", err)
		}
		if err := tx.UpdateAppointment(ctx, next); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if err := s.enqueueReschedule(ctx, tx, eventType, req, next, now); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, appointmentID string) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "get", attribute.String("appointment.id", appointmentID))
	defer func() { done(err) }()

	if strings.TrimSpace(appointmentID) == "" {
		return model.Appointment{}, invalid("appointment_id is required")
	}
	appt, err = s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load appointment: %w", err)
	}
	if !actor.CanAccess(appt) {
		return model.Appointment{}, ErrForbidden
	}
	return appt, nil
}

// List returns the merchant's business appointments or the client's own, newest start first.
func (s *Service) List(ctx context.Context, actor model.Actor, limit int) (out []model.Appointment, err error) {
	ctx, done := s.begin(ctx, "list")
	defer func() { done(err) }()

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	switch {
	case actor.Role == model.RoleMerchant && actor.BusinessID != "":
		out, err = s.store.ListByBusiness(ctx, actor.BusinessID, limit)
	case actor.Role == model.RoleClient && actor.ID != "":
		out, err = s.store.ListByClient(ctx, actor.ID, limit)
	default:
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

// History returns every reschedule request made against the appointment, oldest first.
func (s *Service) History(ctx context.Context, actor model.Actor, appointmentID string) (out []model.RescheduleRequest, err error) {
	ctx, done := s.begin(ctx, "history", attribute.String("appointment.id", appointmentID))
	defer func() { done(err) }()

	if strings.TrimSpace(appointmentID) == "" {
		return nil, invalid("appointment_id is required")
	}
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !actor.CanAccess(appt) {
		return nil, ErrForbidden
	}
	out, err = s.store.ListRescheduleRequests(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("list reschedule requests: %w", err)
	}
	return out, nil
}
