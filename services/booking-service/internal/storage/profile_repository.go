package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

// ProfileRepository stores business working hours and service durations.
type ProfileRepository struct {
	db DB
}

var _ booking.ProfileSource = (*ProfileRepository)(nil)

func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) WorkingHours(ctx context.Context, businessID string) (calendar.WorkingHours, error) {
	var tz string
	err := r.db.QueryRow(ctx, `
		SELECT timezone FROM business_profiles WHERE business_id = $1
	`, businessID).Scan(&tz)
	if err != nil {
		return calendar.WorkingHours{}, fmt.Errorf("business %s: %w", businessID, mapError(err))
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return calendar.WorkingHours{}, fmt.Errorf("business %s timezone %q: %w", businessID, tz, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT weekday, open_minute, close_minute
		FROM business_working_hours
		WHERE business_id = $1
		ORDER BY weekday
	`, businessID)
	if err != nil {
		return calendar.WorkingHours{}, err
	}
	defer rows.Close()

	cal := calendar.New(loc)
	for rows.Next() {
		var weekday, open, close int
		if err := rows.Scan(&weekday, &open, &close); err != nil {
			return calendar.WorkingHours{}, err
		}
		w := calendar.Window{Open: calendar.TimeOfDay(open), Close: calendar.TimeOfDay(close)}
		if err := cal.Set(time.Weekday(weekday), w); err != nil {
			return calendar.WorkingHours{}, fmt.Errorf("business %s weekday %d: %w", businessID, weekday, err)
		}
	}
	if rows.Err() != nil {
		return calendar.WorkingHours{}, rows.Err()
	}
	return cal, nil
}

// PutWorkingHours replaces the business's timezone and weekly windows.
// Weekdays missing from cal become closed.
func (r *ProfileRepository) PutWorkingHours(ctx context.Context, businessID string, cal calendar.WorkingHours) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO business_profiles (business_id, timezone)
		VALUES ($1, $2)
		ON CONFLICT (business_id) DO UPDATE
		SET timezone = EXCLUDED.timezone,
			updated_at = now()
	`, businessID, cal.Loc().String()); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM business_working_hours WHERE business_id = $1`, businessID); err != nil {
		return err
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		w, ok := cal.Window(wd)
		if !ok {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO business_working_hours (business_id, weekday, open_minute, close_minute)
			VALUES ($1, $2, $3, $4)
		`, businessID, int(wd), int(w.Open), int(w.Close)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ProfileRepository) ServiceDuration(ctx context.Context, businessID, serviceID string) (int, error) {
	var minutes int
	err := r.db.QueryRow(ctx, `
		SELECT duration_minutes
		FROM business_services
		WHERE business_id = $1 AND service_id = $2 AND active
	`, businessID, serviceID).Scan(&minutes)
	if err != nil {
		return 0, fmt.Errorf("service %s: %w", serviceID, mapError(err))
	}
	return minutes, nil
}

// PutService creates or replaces a service. The business profile must exist.
func (r *ProfileRepository) PutService(ctx context.Context, svc model.Service) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO business_services (business_id, service_id, name, duration_minutes, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (business_id, service_id) DO UPDATE
		SET name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			active = EXCLUDED.active
	`, svc.BusinessID, svc.ID, svc.Name, svc.DurationMinutes, svc.Active)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("business %s: %w", svc.BusinessID, booking.ErrNotFound)
	}
	return err
}

func (r *ProfileRepository) ListServices(ctx context.Context, businessID string) ([]model.Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT service_id, business_id, name, duration_minutes, active
		FROM business_services
		WHERE business_id = $1
		ORDER BY service_id
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Active); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
