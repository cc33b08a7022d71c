package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
	// StatusRescheduled is never persisted. It is the display status of a
	// pending appointment with an outstanding reschedule request.
	StatusRescheduled AppointmentStatus = "rescheduled"
)

func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Active appointments hold their interval on the business calendar.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Appointment struct {
	ID              string
	BusinessID      string
	ServiceID       string
	ClientID        string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Status          AppointmentStatus
	// PriorStatus is set only while a reschedule request is pending; it is
	// the status restored when that request is rejected.
	PriorStatus             AppointmentStatus
	RescheduleJustification string
	CancelReason            string
	CancelledBy             string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (a Appointment) Negotiating() bool {
	return a.PriorStatus != ""
}

func (a Appointment) DisplayStatus() AppointmentStatus {
	if a.Negotiating() && a.Status == StatusPending {
		return StatusRescheduled
	}
	return a.Status
}

func (a Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}
