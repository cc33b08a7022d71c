package booking

import (
	"errors"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/lifecycle"
)

var (
	ErrInvalidTransition = lifecycle.ErrInvalidTransition
	// ErrConflict: a reschedule is already in progress for the appointment.
	ErrConflict = errors.New("a reschedule is already in progress")
	// ErrInvalidSlot: the requested time is not (or no longer) bookable.
	ErrInvalidSlot     = errors.New("this time is no longer available")
	ErrAlreadyResolved = errors.New("this request has already been handled")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
)

// Outcome classifies err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, ErrAlreadyResolved):
		return "already_resolved"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

// Expected reports whether err is a recoverable domain condition rather than a store failure.
func Expected(err error) bool {
	o := Outcome(err)
	return o != "ok" && o != "error"
}
