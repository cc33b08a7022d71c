// Package calendar holds a business's weekly working hours.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidWindow = errors.New("invalid working window")

// TimeOfDay is minutes since midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day %02d:%02d out of range", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay parses "HH:MM". "24:00" is accepted as end of day.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	if raw == "24:00" {
		return EndOfDay, nil
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", raw, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

const EndOfDay TimeOfDay = 24 * 60

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On returns the instant at t on the civil date of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}

// Window is an open/close pair for one weekday.
type Window struct {
	Open  TimeOfDay
	Close TimeOfDay
}

func (w Window) Validate() error {
	if w.Open < 0 || w.Close > EndOfDay || w.Open >= w.Close {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWindow, w.Open, w.Close)
	}
	return nil
}

// WorkingHours maps weekdays to their window. A weekday with no entry is closed.
// Dates are interpreted in Location (UTC when nil).
type WorkingHours struct {
	Days     map[time.Weekday]Window
	Location *time.Location
}

func New(loc *time.Location) WorkingHours {
	if loc == nil {
		loc = time.UTC
	}
	return WorkingHours{Days: map[time.Weekday]Window{}, Location: loc}
}

func (c *WorkingHours) Set(day time.Weekday, w Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if c.Days == nil {
		c.Days = map[time.Weekday]Window{}
	}
	c.Days[day] = w
	return nil
}

func (c WorkingHours) Window(day time.Weekday) (Window, bool) {
	w, ok := c.Days[day]
	return w, ok
}

func (c WorkingHours) Loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Day returns midnight of date's civil day in the calendar's location.
func (c WorkingHours) Day(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Loc())
}

// ParseDate parses YYYY-MM-DD in the calendar's location.
func (c WorkingHours) ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(raw), c.Loc())
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}

func WeekdayName(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

// FromNames builds a calendar from weekday names to "HH:MM" pairs.
func FromNames(loc *time.Location, days map[string][2]string) (WorkingHours, error) {
	cal := New(loc)
	for name, pair := range days {
		wd, err := ParseWeekday(name)
		if err != nil {
			return WorkingHours{}, err
		}
		open, err := ParseTimeOfDay(pair[0])
		if err != nil {
			return WorkingHours{}, err
		}
		closeAt, err := ParseTimeOfDay(pair[1])
		if err != nil {
			return WorkingHours{}, err
		}
		if err := cal.Set(wd, Window{Open: open, Close: closeAt}); err != nil {
			return WorkingHours{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	return cal, nil
}
