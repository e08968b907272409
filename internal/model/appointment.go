package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is a known status value. Statuses arrive from the
// database and from admin requests; everything else is rejected up front so
// no consumer has to handle a default case.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Occupies reports whether an appointment in this status holds its slots.
// Completed, rejected and cancelled appointments never block a calendar.
func (s AppointmentStatus) Occupies() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Appointment is the engine's read view of a booking. Times live on a single
// calendar date as minutes since midnight; duration is the sum of the booked
// services' durations, resolved at creation time.
type Appointment struct {
	ID              string
	Date            string // 2006-01-02
	StartMinute     int
	DurationMinutes int
	Status          AppointmentStatus
	ProfessionalID  string // empty = any professional
	ServiceIDs      []string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CreatedAt       time.Time
}

// EndMinute is the exclusive end of the appointment's interval.
func (a Appointment) EndMinute() int {
	return a.StartMinute + a.DurationMinutes
}
