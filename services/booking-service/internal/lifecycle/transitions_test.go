package lifecycle

import (
	"errors"
	"testing"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

func appt(status, prior model.AppointmentStatus) model.Appointment {
	return model.Appointment{ID: "a1", Status: status, PriorStatus: prior}
}

func TestValidTransition(t *testing.T) {
	p := model.StatusPending
	c := model.StatusConfirmed
	cases := []struct {
		ev    Event
		from  model.Appointment
		valid bool
	}{
		{EventConfirm, appt(p, ""), true},
		{EventConfirm, appt(p, c), false},
		{EventConfirm, appt(c, ""), false},
		{EventCancel, appt(p, ""), true},
		{EventCancel, appt(p, c), true},
		{EventCancel, appt(c, ""), true},
		{EventCancel, appt(model.StatusCancelled, ""), false},
		{EventCancel, appt(model.StatusCompleted, ""), false},
		{EventComplete, appt(c, ""), true},
		{EventComplete, appt(p, ""), false},
		{EventProposeReschedule, appt(p, ""), true},
		{EventProposeReschedule, appt(c, ""), true},
		{EventProposeReschedule, appt(p, c), false},
		{EventProposeReschedule, appt(model.StatusCompleted, ""), false},
		{EventAcceptReschedule, appt(p, c), true},
		{EventAcceptReschedule, appt(p, ""), false},
		{EventRejectReschedule, appt(p, p), true},
		{EventRejectReschedule, appt(c, ""), false},
		{Event("unknown"), appt(p, ""), false},
	}
	for _, tt := range cases {
		if got := ValidTransition(tt.ev, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %s/%s)=%v, want %v", tt.ev, tt.from.Status, tt.from.PriorStatus, got, tt.valid)
		}
	}
}

func TestRescheduleRoundTrip(t *testing.T) {
	orig := appt(model.StatusConfirmed, "")

	proposed, err := Apply(orig, EventProposeReschedule)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if proposed.Status != model.StatusPending || proposed.PriorStatus != model.StatusConfirmed {
		t.Fatalf("unexpected proposed state %s/%s", proposed.Status, proposed.PriorStatus)
	}
	if proposed.DisplayStatus() != model.StatusRescheduled {
		t.Fatalf("expected rescheduled display, got %s", proposed.DisplayStatus())
	}

	rejected, err := Apply(proposed, EventRejectReschedule)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != model.StatusConfirmed || rejected.Negotiating() {
		t.Fatalf("reject should restore confirmed, got %s/%s", rejected.Status, rejected.PriorStatus)
	}

	accepted, err := Apply(proposed, EventAcceptReschedule)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != model.StatusConfirmed || accepted.Negotiating() {
		t.Fatalf("accept should confirm, got %s/%s", accepted.Status, accepted.PriorStatus)
	}
}

func TestApplyRejectedLeavesInputUntouched(t *testing.T) {
	orig := appt(model.StatusCompleted, "")
	got, err := Apply(orig, EventCancel)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got != orig {
		t.Fatalf("state changed on invalid transition: %+v", got)
	}
}

func TestCancelClearsNegotiation(t *testing.T) {
	got, err := Apply(appt(model.StatusPending, model.StatusConfirmed), EventCancel)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != model.StatusCancelled || got.Negotiating() {
		t.Fatalf("unexpected %s/%s", got.Status, got.PriorStatus)
	}
}
