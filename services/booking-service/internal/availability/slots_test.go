package availability

import (
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/calendar"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func weekdayCalendar(t *testing.T, open, closeAt string) calendar.WorkingHours {
	t.Helper()
	cal, err := calendar.FromNames(time.UTC, map[string][2]string{"monday": {open, closeAt}})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return cal
}

func at(hour, minute int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func statuses(slots []TimeSlot) map[string]Status {
	out := map[string]Status{}
	for _, s := range slots {
		out[s.Time.String()] = s.Status
	}
	return out
}

func TestComputeSlotsFullDay(t *testing.T) {
	cal := weekdayCalendar(t, "09:00", "17:00")
	slots := ComputeSlots(cal, 60, monday, nil)
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	for i, s := range slots {
		want := at(9+i, 0)
		if !s.Start.Equal(want) || s.Status != Available {
			t.Fatalf("slot %d: got %s %s, want %s available", i, s.Start, s.Status, want)
		}
		if !s.End.Equal(want.Add(time.Hour)) {
			t.Fatalf("slot %d: nominal span should be one hour", i)
		}
	}
	if _, ok := SlotAt(slots, at(17, 0)); ok {
		t.Fatal("17:00 must not be offered")
	}
}

func TestComputeSlotsClosedDay(t *testing.T) {
	cal := weekdayCalendar(t, "09:00", "17:00")
	tuesday := monday.AddDate(0, 0, 1)
	if slots := ComputeSlots(cal, 60, tuesday, nil); len(slots) != 0 {
		t.Fatalf("expected no slots on a closed day, got %d", len(slots))
	}
	if slots := ComputeSlots(calendar.New(nil), 60, monday, nil); len(slots) != 0 {
		t.Fatalf("expected no slots for empty calendar, got %d", len(slots))
	}
}

func TestComputeSlotsBookedInterval(t *testing.T) {
	cal := weekdayCalendar(t, "09:00", "17:00")
	booked := []Interval{{Start: at(12, 0), End: at(13, 0)}}
	got := statuses(ComputeSlots(cal, 60, monday, booked))
	for label, st := range got {
		want := Available
		if label == "12:00" {
			want = Occupied
		}
		if st != want {
			t.Fatalf("%s: got %s want %s", label, st, want)
		}
	}
}

func TestComputeSlotsBackToBackDoesNotConflict(t *testing.T) {
	cal := weekdayCalendar(t, "09:00", "17:00")
	// Bookings ending at 11:00 and starting at 12:00 leave 11:00 free.
	booked := []Interval{
		{Start: at(10, 0), End: at(11, 0)},
		{Start: at(12, 0), End: at(13, 0)},
	}
	got := statuses(ComputeSlots(cal, 60, monday, booked))
	if got["11:00"] != Available {
		t.Fatalf("11:00 should be available, got %s", got["11:00"])
	}
	if got["10:00"] != Occupied || got["12:00"] != Occupied {
		t.Fatalf("10:00 and 12:00 should be occupied: %v", got)
	}
}

func TestComputeSlotsPartialHourOverlap(t *testing.T) {
	cal := weekdayCalendar(t, "09:00", "17:00")
	booked := []Interval{{Start: at(13, 30), End: at(14, 15)}}
	got := statuses(ComputeSlots(cal, 60, monday, booked))
	if got["13:00"] != Occupied || got["14:00"] != Occupied {
		t.Fatalf("13:00 and 14:00 should be occupied: %v", got)
	}
	if got["12:00"] != Available || got["15:00"] != Available {
		t.Fatalf("neighbours should be available: %v", got)
	}
}

func TestComputeSlotsServicePastClose(t *testing.T) {
	cal := weekdayCalendar(t, "09:00", "17:00")

	got := statuses(ComputeSlots(cal, 90, monday, nil))
	if got["16:00"] != Occupied {
		t.Fatalf("90 minute service at 16:00 runs past close, got %s", got["16:00"])
	}
	if got["15:00"] != Available {
		t.Fatalf("90 minute service at 15:00 should fit, got %s", got["15:00"])
	}

	// A service exactly filling the last hour is offered.
	got = statuses(ComputeSlots(cal, 60, monday, nil))
	if got["16:00"] != Available {
		t.Fatalf("60 minute service at 16:00 should be offered, got %s", got["16:00"])
	}

	got = statuses(ComputeSlots(cal, 120, monday, nil))
	if got["15:00"] != Available || got["16:00"] != Occupied {
		t.Fatalf("120 minute service: %v", got)
	}
}

func TestComputeSlotsLatestStartBound(t *testing.T) {
	cal := weekdayCalendar(t, "08:00", "18:00")
	for _, d := range []int{15, 45, 60, 61, 119, 120, 121, 180, 240} {
		need := (d + 59) / 60
		latest := at(18-need, 0)
		for _, s := range FilterAvailable(ComputeSlots(cal, d, monday, nil)) {
			if s.Start.After(latest) {
				t.Fatalf("duration %d: slot %s later than %s", d, s.Start, latest)
			}
		}
	}
}

func TestComputeSlotsWithinWindow(t *testing.T) {
	cal := weekdayCalendar(t, "09:30", "13:45")
	slots := ComputeSlots(cal, 30, monday, nil)
	var labels []string
	for _, s := range slots {
		labels = append(labels, s.Time.String())
		if s.Start.Before(at(9, 30)) || !s.Start.Before(at(13, 45)) {
			t.Fatalf("slot %s outside window", s.Time)
		}
	}
	want := []string{"10:00", "11:00", "12:00"}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("got %v want %v", labels, want)
	}
}

func TestComputeSlotsNoAvailableSlotOverlapsBooking(t *testing.T) {
	cal := weekdayCalendar(t, "06:00", "22:00")
	booked := []Interval{
		{Start: at(7, 15), End: at(8, 0)},
		{Start: at(11, 0), End: at(12, 30)},
		{Start: at(18, 59), End: at(19, 1)},
	}
	for _, s := range FilterAvailable(ComputeSlots(cal, 60, monday, booked)) {
		span := Interval{Start: s.Start, End: s.End}
		for _, b := range booked {
			if span.Overlaps(b) {
				t.Fatalf("available slot %s overlaps %v", s.Time, b)
			}
		}
	}
}

func TestComputeSlotsIsPure(t *testing.T) {
	cal := weekdayCalendar(t, "09:00", "17:00")
	booked := []Interval{{Start: at(12, 0), End: at(13, 0)}}
	a := ComputeSlots(cal, 90, monday, booked)
	b := ComputeSlots(cal, 90, monday, booked)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical inputs produced different output")
	}
}

func TestComputeSlotsUsesCalendarLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	cal, err := calendar.FromNames(loc, map[string][2]string{"monday": {"09:00", "11:00"}})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	slots := ComputeSlots(cal, 60, time.Date(2026, 3, 2, 0, 0, 0, 0, loc), nil)
	if len(slots) != 2 || slots[0].Start.UTC().Hour() != 14 {
		t.Fatalf("unexpected slots %+v", slots)
	}
}

func TestBookable(t *testing.T) {
	cal := weekdayCalendar(t, "09:00", "17:00")
	booked := []Interval{{Start: at(11, 15), End: at(12, 0)}}
	slots := ComputeSlots(cal, 90, monday, booked)

	if !Bookable(slots, booked, at(9, 0), 90*time.Minute) {
		t.Fatal("09:00 should be bookable")
	}
	// 10:00 slot itself is free but 90 minutes runs into the 11:15 booking.
	if Bookable(slots, booked, at(10, 0), 90*time.Minute) {
		t.Fatal("10:00 should not be bookable for 90 minutes")
	}
	if Bookable(slots, booked, at(9, 30), 90*time.Minute) {
		t.Fatal("off-hour start should not be bookable")
	}
	if Bookable(slots, booked, at(16, 0), 90*time.Minute) {
		t.Fatal("16:00 runs past close")
	}
}

func TestComputeSlotsRejectsNonPositiveDuration(t *testing.T) {
	cal := weekdayCalendar(t, "09:00", "17:00")
	if slots := ComputeSlots(cal, 0, monday, nil); slots != nil {
		t.Fatalf("expected nil, got %v", slots)
	}
}
