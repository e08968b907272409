package model

import "time"

// Service is a catalog entry a customer can book, alone or combined with
// others in a single appointment.
type Service struct {
	ID              string
	Name            string
	DurationMinutes int
	PriceCents      int64
	CategoryID      string
	CreatedAt       time.Time
}
