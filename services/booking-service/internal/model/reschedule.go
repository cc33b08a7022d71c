package model

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

type RescheduleRequest struct {
	ID                string
	AppointmentID     string
	RequestedBy       string
	RequestedByRole   Role
	OriginalStartTime time.Time
	OriginalEndTime   time.Time
	ProposedStartTime time.Time
	ProposedEndTime   time.Time
	Justification     string
	Status            RequestStatus
	ResolvedBy        string
	ResolvedAt        *time.Time
	CreatedAt         time.Time
}
