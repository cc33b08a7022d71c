// Package availability turns working hours and existing bookings into hourly slots.
package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/calendar"
)

type Status string

const (
	Available Status = "available"
	Occupied  Status = "occupied"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports half-open overlap: [a.Start,a.End) and [b.Start,b.End)
// overlap iff a.Start < b.End && b.Start < a.End.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

type TimeSlot struct {
	Time   calendar.TimeOfDay
	Start  time.Time
	End    time.Time
	Status Status
}

// ComputeSlots returns one slot per whole hour of date's working window, in
// ascending order. A slot is occupied when its hour overlaps a booked interval
// or when a service of durationMinutes started there would run past closing.
// A closed weekday yields no slots.
func ComputeSlots(cal calendar.WorkingHours, durationMinutes int, date time.Time, booked []Interval) []TimeSlot {
	if durationMinutes <= 0 {
		return nil
	}
	day := cal.Day(date)
	w, ok := cal.Window(day.Weekday())
	if !ok {
		return nil
	}

	first := ceilDiv(int(w.Open), 60)
	closeHour := w.Close.Hour()
	needHours := ceilDiv(durationMinutes, 60)

	slots := make([]TimeSlot, 0, max(closeHour-first, 0))
	for h := first; h < closeHour; h++ {
		tod := calendar.TimeOfDay(h * 60)
		start := tod.On(day, cal.Loc())
		span := Interval{Start: start, End: start.Add(time.Hour)}

		status := Available
		if h+needHours > closeHour || overlapsAny(span, booked) {
			status = Occupied
		}
		slots = append(slots, TimeSlot{Time: tod, Start: span.Start, End: span.End, Status: status})
	}
	return slots
}

// FilterAvailable keeps only available slots.
func FilterAvailable(slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Status == Available {
			out = append(out, s)
		}
	}
	return out
}

// SlotAt returns the slot starting at start.
func SlotAt(slots []TimeSlot, start time.Time) (TimeSlot, bool) {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s, true
		}
	}
	return TimeSlot{}, false
}

// Bookable reports whether a service of length d can start at start: the slot
// must exist and be available, and the whole service interval must be free.
func Bookable(slots []TimeSlot, booked []Interval, start time.Time, d time.Duration) bool {
	s, ok := SlotAt(slots, start)
	if !ok || s.Status != Available {
		return false
	}
	return !overlapsAny(Interval{Start: start, End: start.Add(d)}, booked)
}

func overlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
