// Package lifecycle is the appointment state machine.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

var ErrInvalidTransition = errors.New("invalid appointment transition")

type Event string

const (
	EventConfirm           Event = "confirm"
	EventCancel            Event = "cancel"
	EventComplete          Event = "complete"
	EventProposeReschedule Event = "propose_reschedule"
	EventAcceptReschedule  Event = "accept_reschedule"
	EventRejectReschedule  Event = "reject_reschedule"
)

// state is a persisted status plus whether a reschedule is outstanding.
type state struct {
	status      model.AppointmentStatus
	negotiating bool
}

var (
	pending            = state{model.StatusPending, false}
	pendingNegotiating = state{model.StatusPending, true}
	confirmed          = state{model.StatusConfirmed, false}
)

var transitionMap = map[Event][]state{
	EventConfirm:           {pending},
	EventCancel:            {pending, pendingNegotiating, confirmed},
	EventComplete:          {confirmed},
	EventProposeReschedule: {pending, confirmed},
	EventAcceptReschedule:  {pendingNegotiating},
	EventRejectReschedule:  {pendingNegotiating},
}

func ValidTransition(ev Event, a model.Appointment) bool {
	from := state{a.Status, a.Negotiating()}
	for _, s := range transitionMap[ev] {
		if s == from {
			return true
		}
	}
	return false
}

// Apply returns a copy of a after ev. The input is never modified, so a
// rejected transition leaves the caller's value untouched.
func Apply(a model.Appointment, ev Event) (model.Appointment, error) {
	if !ValidTransition(ev, a) {
		return a, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, a.DisplayStatus())
	}
	next := a
	switch ev {
	case EventConfirm:
		next.Status = model.StatusConfirmed
	case EventCancel:
		next.Status = model.StatusCancelled
		next.PriorStatus = ""
	case EventComplete:
		next.Status = model.StatusCompleted
	case EventProposeReschedule:
		next.PriorStatus = a.Status
		next.Status = model.StatusPending
	case EventAcceptReschedule:
		next.Status = model.StatusConfirmed
		next.PriorStatus = ""
	case EventRejectReschedule:
		next.Status = a.PriorStatus
		next.PriorStatus = ""
	}
	return next, nil
}
