package model

// Service is a bookable offering of a business. Its duration drives slot
// computation and the length of every appointment booked for it.
type Service struct {
	ID              string
	BusinessID      string
	Name            string
	DurationMinutes int
	Active          bool
}
