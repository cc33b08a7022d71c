// Package memstore is an in-process appointment store. A single mutex is held
// for the whole of each transaction, and a failed transaction leaves no trace.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/outbox"
)

type Store struct {
	mu           sync.Mutex
	appointments map[string]model.Appointment
	requests     map[string]model.RescheduleRequest
	events       []outbox.Event
}

var _ booking.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		appointments: map[string]model.Appointment{},
		requests:     map[string]model.RescheduleRequest{},
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx booking.StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{
		appointments: maps.Clone(s.appointments),
		requests:     maps.Clone(s.requests),
		events:       slices.Clone(s.events),
	}
	if err := fn(t); err != nil {
		return err
	}
	s.appointments, s.requests, s.events = t.appointments, t.requests, t.events
	return nil
}

// Events returns the committed outbox events in order.
func (s *Store) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

func (s *Store) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, booking.ErrNotFound)
	}
	return a, nil
}

func (s *Store) ListByBusiness(_ context.Context, businessID string, limit int) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listWhere(s.appointments, limit, func(a model.Appointment) bool { return a.BusinessID == businessID }), nil
}

func (s *Store) ListByClient(_ context.Context, clientID string, limit int) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listWhere(s.appointments, limit, func(a model.Appointment) bool { return a.ClientID == clientID }), nil
}

func (s *Store) ListRescheduleRequests(_ context.Context, appointmentID string) ([]model.RescheduleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RescheduleRequest
	for _, r := range s.requests {
		if r.AppointmentID == appointmentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) BookedIntervals(_ context.Context, businessID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bookedIntervals(s.appointments, businessID, from, to, excludeID), nil
}

type tx struct {
	appointments map[string]model.Appointment
	requests     map[string]model.RescheduleRequest
	events       []outbox.Event
}

// LockBusinessDay is a no-op: the store mutex already serialises transactions.
func (t *tx) LockBusinessDay(context.Context, string, time.Time) error { return nil }

func (t *tx) BookedIntervals(_ context.Context, businessID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	return bookedIntervals(t.appointments, businessID, from, to, excludeID), nil
}

func (t *tx) InsertAppointment(_ context.Context, a model.Appointment) error {
	if _, exists := t.appointments[a.ID]; exists {
		return fmt.Errorf("appointment %s already exists", a.ID)
	}
	if a.Status.Active() && overlapsActive(t.appointments, a) {
		return fmt.Errorf("%w: overlaps an existing appointment", booking.ErrInvalidSlot)
	}
	t.appointments[a.ID] = a
	return nil
}

func (t *tx) GetAppointmentForUpdate(_ context.Context, id string) (model.Appointment, error) {
	a, ok := t.appointments[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, booking.ErrNotFound)
	}
	return a, nil
}

func (t *tx) UpdateAppointment(_ context.Context, a model.Appointment) error {
	if _, ok := t.appointments[a.ID]; !ok {
		return fmt.Errorf("appointment %s: %w", a.ID, booking.ErrNotFound)
	}
	if a.Status.Active() && overlapsActive(t.appointments, a) {
		return fmt.Errorf("%w: overlaps an existing appointment", booking.ErrInvalidSlot)
	}
	t.appointments[a.ID] = a
	return nil
}

func (t *tx) InsertRescheduleRequest(_ context.Context, r model.RescheduleRequest) error {
	if _, exists := t.requests[r.ID]; exists {
		return fmt.Errorf("reschedule request %s already exists", r.ID)
	}
	if r.Status == model.RequestPending {
		if _, ok := pendingFor(t.requests, r.AppointmentID); ok {
			return booking.ErrConflict
		}
	}
	t.requests[r.ID] = r
	return nil
}

func (t *tx) GetRescheduleRequest(_ context.Context, id string) (model.RescheduleRequest, error) {
	r, ok := t.requests[id]
	if !ok {
		return model.RescheduleRequest{}, fmt.Errorf("reschedule request %s: %w", id, booking.ErrNotFound)
	}
	return r, nil
}

func (t *tx) GetRescheduleRequestForUpdate(ctx context.Context, id string) (model.RescheduleRequest, error) {
	return t.GetRescheduleRequest(ctx, id)
}

func (t *tx) PendingRescheduleRequest(_ context.Context, appointmentID string) (model.RescheduleRequest, bool, error) {
	r, ok := pendingFor(t.requests, appointmentID)
	return r, ok, nil
}

func (t *tx) UpdateRescheduleRequest(_ context.Context, r model.RescheduleRequest) error {
	if _, ok := t.requests[r.ID]; !ok {
		return fmt.Errorf("reschedule request %s: %w", r.ID, booking.ErrNotFound)
	}
	t.requests[r.ID] = r
	return nil
}

func (t *tx) EnqueueEvent(_ context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}

func pendingFor(requests map[string]model.RescheduleRequest, appointmentID string) (model.RescheduleRequest, bool) {
	for _, r := range requests {
		if r.AppointmentID == appointmentID && r.Status == model.RequestPending {
			return r, true
		}
	}
	return model.RescheduleRequest{}, false
}

func bookedIntervals(appts map[string]model.Appointment, businessID string, from, to time.Time, excludeID string) []availability.Interval {
	window := availability.Interval{Start: from, End: to}
	var out []availability.Interval
	for _, a := range appts {
		if a.BusinessID != businessID || a.ID == excludeID || !a.Status.Active() {
			continue
		}
		iv := availability.Interval{Start: a.StartTime, End: a.EndTime}
		if iv.Overlaps(window) {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// overlapsActive mirrors the Postgres exclusion constraint on active appointments.
func overlapsActive(appts map[string]model.Appointment, a model.Appointment) bool {
	iv := availability.Interval{Start: a.StartTime, End: a.EndTime}
	for _, other := range appts {
		if other.ID == a.ID || other.BusinessID != a.BusinessID || !other.Status.Active() {
			continue
		}
		if iv.Overlaps(availability.Interval{Start: other.StartTime, End: other.EndTime}) {
			return true
		}
	}
	return false
}

func listWhere(appts map[string]model.Appointment, limit int, keep func(model.Appointment) bool) []model.Appointment {
	var out []model.Appointment
	for _, a := range appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
