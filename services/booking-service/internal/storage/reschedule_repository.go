package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

const requestColumns = `id::text, appointment_id::text, requested_by, requested_by_role,
	original_start_time, original_end_time, proposed_start_time, proposed_end_time,
	justification, status, resolved_by, resolved_at, created_at`

type RescheduleRepository struct{}

// Insert fails with a unique violation when the appointment already has a pending request.
func (r *RescheduleRepository) Insert(ctx context.Context, tx pgx.Tx, req model.RescheduleRequest) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO reschedule_requests
			(id, appointment_id, requested_by, requested_by_role,
			 original_start_time, original_end_time, proposed_start_time, proposed_end_time,
			 justification, status, resolved_by, resolved_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, req.ID, req.AppointmentID, req.RequestedBy, string(req.RequestedByRole),
		req.OriginalStartTime, req.OriginalEndTime, req.ProposedStartTime, req.ProposedEndTime,
		req.Justification, string(req.Status), req.ResolvedBy, req.ResolvedAt, req.CreatedAt)
	return err
}

func (r *RescheduleRepository) Get(ctx context.Context, q querier, id string, forUpdate bool) (model.RescheduleRequest, error) {
	sql := `SELECT ` + requestColumns + ` FROM reschedule_requests WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return scanRequest(q.QueryRow(ctx, sql, id))
}

// Pending returns pgx.ErrNoRows when the appointment has no open request.
func (r *RescheduleRepository) Pending(ctx context.Context, q querier, appointmentID string) (model.RescheduleRequest, error) {
	return scanRequest(q.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM reschedule_requests
		WHERE appointment_id = $1 AND status = 'pending'
		FOR UPDATE
	`, appointmentID))
}

func (r *RescheduleRepository) Update(ctx context.Context, tx pgx.Tx, req model.RescheduleRequest) error {
	tag, err := tx.Exec(ctx, `
		UPDATE reschedule_requests
		SET status = $2,
			resolved_by = $3,
			resolved_at = $4
		WHERE id = $1
	`, req.ID, string(req.Status), req.ResolvedBy, req.ResolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListByAppointment returns the request history oldest first.
func (r *RescheduleRepository) ListByAppointment(ctx context.Context, q querier, appointmentID string) ([]model.RescheduleRequest, error) {
	rows, err := q.Query(ctx, `
		SELECT `+requestColumns+`
		FROM reschedule_requests
		WHERE appointment_id = $1
		ORDER BY created_at ASC, id
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RescheduleRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanRequest(row pgx.Row) (model.RescheduleRequest, error) {
	var req model.RescheduleRequest
	var role, status string
	var resolvedAt *time.Time
	if err := row.Scan(
		&req.ID,
		&req.AppointmentID,
		&req.RequestedBy,
		&role,
		&req.OriginalStartTime,
		&req.OriginalEndTime,
		&req.ProposedStartTime,
		&req.ProposedEndTime,
		&req.Justification,
		&status,
		&req.ResolvedBy,
		&resolvedAt,
		&req.CreatedAt,
	); err != nil {
		return model.RescheduleRequest{}, err
	}
	req.RequestedByRole = model.Role(role)
	req.Status = model.RequestStatus(status)
	req.ResolvedAt = resolvedAt
	return req, nil
}
