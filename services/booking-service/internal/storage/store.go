package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/outbox"
)

// DB is the subset of *db.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres appointment store.
type Store struct {
	db       DB
	appts    *AppointmentRepository
	requests *RescheduleRepository
	outbox   *outbox.Repository
}

var _ booking.Store = (*Store)(nil)

func NewStore(db DB) *Store {
	return &Store{
		db:       db,
		appts:    &AppointmentRepository{},
		requests: &RescheduleRepository{},
		outbox:   outbox.NewRepository(),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx booking.StoreTx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&storeTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := s.appts.Get(ctx, s.db, id, false)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, mapError(err))
	}
	return a, nil
}

func (s *Store) ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	out, err := s.appts.ListByBusiness(ctx, s.db, businessID, limit)
	return out, mapError(err)
}

func (s *Store) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error) {
	out, err := s.appts.ListByClient(ctx, s.db, clientID, limit)
	return out, mapError(err)
}

func (s *Store) ListRescheduleRequests(ctx context.Context, appointmentID string) ([]model.RescheduleRequest, error) {
	out, err := s.requests.ListByAppointment(ctx, s.db, appointmentID)
	return out, mapError(err)
}

func (s *Store) BookedIntervals(ctx context.Context, businessID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	out, err := s.appts.BookedIntervals(ctx, s.db, businessID, from, to, excludeID)
	return out, mapError(err)
}

type storeTx struct {
	tx pgx.Tx
	s  *Store
}

// LockBusinessDay takes a transaction-scoped advisory lock on business|date.
func (t *storeTx) LockBusinessDay(ctx context.Context, businessID string, day time.Time) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, dayLockKey(businessID, day))
	if err != nil {
		return fmt.Errorf("lock business day: %w", err)
	}
	return nil
}

func (t *storeTx) BookedIntervals(ctx context.Context, businessID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	out, err := t.s.appts.BookedIntervals(ctx, t.tx, businessID, from, to, excludeID)
	return out, mapError(err)
}

func (t *storeTx) InsertAppointment(ctx context.Context, a model.Appointment) error {
	return mapError(t.s.appts.Insert(ctx, t.tx, a))
}

func (t *storeTx) GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, error) {
	a, err := t.s.appts.Get(ctx, t.tx, id, true)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, mapError(err))
	}
	return a, nil
}

func (t *storeTx) UpdateAppointment(ctx context.Context, a model.Appointment) error {
	return mapError(t.s.appts.Update(ctx, t.tx, a))
}

func (t *storeTx) InsertRescheduleRequest(ctx context.Context, r model.RescheduleRequest) error {
	return mapError(t.s.requests.Insert(ctx, t.tx, r))
}

func (t *storeTx) GetRescheduleRequest(ctx context.Context, id string) (model.RescheduleRequest, error) {
	r, err := t.s.requests.Get(ctx, t.tx, id, false)
	if err != nil {
		return model.RescheduleRequest{}, fmt.Errorf("reschedule request %s: %w", id, mapError(err))
	}
	return r, nil
}

func (t *storeTx) GetRescheduleRequestForUpdate(ctx context.Context, id string) (model.RescheduleRequest, error) {
	r, err := t.s.requests.Get(ctx, t.tx, id, true)
	if err != nil {
		return model.RescheduleRequest{}, fmt.Errorf("reschedule request %s: %w", id, mapError(err))
	}
	return r, nil
}

func (t *storeTx) PendingRescheduleRequest(ctx context.Context, appointmentID string) (model.RescheduleRequest, bool, error) {
	r, err := t.s.requests.Pending(ctx, t.tx, appointmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RescheduleRequest{}, false, nil
	}
	if err != nil {
		return model.RescheduleRequest{}, false, mapError(err)
	}
	return r, true, nil
}

func (t *storeTx) UpdateRescheduleRequest(ctx context.Context, r model.RescheduleRequest) error {
	return mapError(t.s.requests.Update(ctx, t.tx, r))
}

func (t *storeTx) EnqueueEvent(ctx context.Context, evt outbox.Event) error {
	if err := t.s.outbox.Insert(ctx, t.tx, evt); err != nil {
		return fmt.Errorf("outbox insert: %w", err)
	}
	return nil
}

func dayLockKey(businessID string, day time.Time) string {
	return businessID + "|" + day.Format(time.DateOnly)
}

// Postgres error codes the store translates into booking errors.
const (
	codeExclusionViolation  = "23P01"
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidTextEncoding = "22P02"
)

// mapError translates pgx errors into booking sentinels and leaves the rest untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return booking.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeExclusionViolation:
			return fmt.Errorf("%w: %s", booking.ErrInvalidSlot, pgErr.ConstraintName)
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", booking.ErrConflict, pgErr.ConstraintName)
		case codeInvalidTextEncoding:
			// malformed uuid in a lookup
			return booking.ErrNotFound
		}
	}
	return err
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeExclusionViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
