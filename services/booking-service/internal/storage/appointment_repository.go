package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

// querier is satisfied by both pgx.Tx and the pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const defaultListLimit = 50

const appointmentColumns = `id::text, business_id, service_id, client_id, start_time, end_time, duration_minutes,
	status, prior_status, reschedule_justification, cancel_reason, cancelled_by, created_at, updated_at`

type AppointmentRepository struct{}

func (r *AppointmentRepository) Insert(ctx context.Context, tx pgx.Tx, a model.Appointment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments
			(id, business_id, service_id, client_id, start_time, end_time, duration_minutes,
			 status, prior_status, reschedule_justification, cancel_reason, cancelled_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, a.ID, a.BusinessID, a.ServiceID, a.ClientID, a.StartTime, a.EndTime, a.DurationMinutes,
		string(a.Status), string(a.PriorStatus), a.RescheduleJustification, a.CancelReason, a.CancelledBy,
		a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *AppointmentRepository) Get(ctx context.Context, q querier, id string, forUpdate bool) (model.Appointment, error) {
	sql := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return scanAppointment(q.QueryRow(ctx, sql, id))
}

// Update rewrites the mutable columns of a.
func (r *AppointmentRepository) Update(ctx context.Context, tx pgx.Tx, a model.Appointment) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2,
			end_time = $3,
			status = $4,
			prior_status = $5,
			reschedule_justification = $6,
			cancel_reason = $7,
			cancelled_by = $8,
			updated_at = $9
		WHERE id = $1
	`, a.ID, a.StartTime, a.EndTime, string(a.Status), string(a.PriorStatus), a.RescheduleJustification,
		a.CancelReason, a.CancelledBy, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// BookedIntervals lists active appointments of the business overlapping [from, to).
func (r *AppointmentRepository) BookedIntervals(ctx context.Context, q querier, businessID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	rows, err := q.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE business_id = $1
			AND status IN ('pending', 'confirmed')
			AND start_time < $3
			AND end_time > $2
			AND id::text <> $4
		ORDER BY start_time ASC
	`, businessID, from, to, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *AppointmentRepository) ListByBusiness(ctx context.Context, q querier, businessID string, limit int) ([]model.Appointment, error) {
	return r.list(ctx, q, `business_id = $1`, businessID, limit)
}

func (r *AppointmentRepository) ListByClient(ctx context.Context, q querier, clientID string, limit int) ([]model.Appointment, error) {
	return r.list(ctx, q, `client_id = $1`, clientID, limit)
}

func (r *AppointmentRepository) list(ctx context.Context, q querier, where, arg string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+where+`
		ORDER BY start_time DESC, id
		LIMIT $2
	`, arg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status, prior string
	if err := row.Scan(
		&a.ID,
		&a.BusinessID,
		&a.ServiceID,
		&a.ClientID,
		&a.StartTime,
		&a.EndTime,
		&a.DurationMinutes,
		&status,
		&prior,
		&a.RescheduleJustification,
		&a.CancelReason,
		&a.CancelledBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.AppointmentStatus(status)
	a.PriorStatus = model.AppointmentStatus(prior)
	if a.Status == model.StatusRescheduled {
		return model.Appointment{}, fmt.Errorf("appointment %s: display-only status stored", a.ID)
	}
	return a, nil
}
