package availability

import (
	"github.com/salonora/agenda/internal/model"
	"github.com/salonora/agenda/internal/timegrid"
)

// Candidate is a booking attempt to validate: a start time and total
// duration on one date, optionally tied to a professional.
type Candidate struct {
	StartMinute     int
	DurationMinutes int
	ProfessionalID  string // empty = any professional
}

// IsAvailable reports whether the candidate interval can be placed without
// conflict. Appointments and blocks must be the day's full snapshot; the
// checker filters statuses and professionals itself.
//
// Two independent tests, first failure wins:
//  1. Half-open interval overlap against every occupying appointment
//     (pending or confirmed). Appointments without a professional contend
//     with everyone, as do candidates without one.
//  2. Every grid slot the candidate spans must be free of blocks. The span
//     is enumerated with the raw end boundary, so a duration that partially
//     covers a trailing slot still checks that slot.
//
// This check runs once for the UI and again at commit time inside the
// booking transaction; the database overlap constraint is the backstop for
// races between the two.
func IsAvailable(c Candidate, appointments []model.Appointment, blocks []model.TimeBlock, stepMinutes int) bool {
	if c.DurationMinutes <= 0 {
		return false
	}
	start := c.StartMinute
	end := c.StartMinute + c.DurationMinutes

	for _, a := range appointments {
		if !a.Status.Occupies() {
			continue
		}
		if c.ProfessionalID != "" && a.ProfessionalID != "" && a.ProfessionalID != c.ProfessionalID {
			continue
		}
		if start < a.EndMinute() && end > a.StartMinute {
			return false
		}
	}

	blocked := BlockedSlots(blocks, c.ProfessionalID, stepMinutes)
	if len(blocked) == 0 {
		return true
	}
	spanEnd := timegrid.CeilToStep(end, stepMinutes)
	for _, slot := range timegrid.EnumerateSlots(timegrid.FloorToStep(start, stepMinutes), spanEnd, stepMinutes) {
		if _, ok := blocked[slot]; ok {
			return false
		}
	}
	return true
}
