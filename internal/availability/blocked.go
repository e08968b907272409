// Package availability turns booking and block snapshots into per-slot
// statuses and answers whether a candidate appointment can be placed without
// conflict. Every function is pure: callers fetch the day's records and pass
// them in, so the same inputs always produce the same answer.
package availability

import (
	"github.com/salonora/agenda/internal/model"
	"github.com/salonora/agenda/internal/timegrid"
)

// BlockedSlots expands every block that covers the given professional's
// calendar into the set of slot starts it occupies. Overlapping blocks
// compose via union. Unaligned boundaries are normalized defensively: start
// floors to the grid, end ceils, so a partially covered slot counts as
// blocked.
func BlockedSlots(blocks []model.TimeBlock, professionalID string, stepMinutes int) map[string]struct{} {
	blocked := make(map[string]struct{})
	for _, b := range blocks {
		if !b.AppliesTo(professionalID) {
			continue
		}
		start := timegrid.FloorToStep(b.StartMinute, stepMinutes)
		end := timegrid.CeilToStep(b.EndMinute, stepMinutes)
		for _, slot := range timegrid.EnumerateSlots(start, end, stepMinutes) {
			blocked[slot] = struct{}{}
		}
	}
	return blocked
}

// IsBlocked reports whether the slot starting at the given time falls inside
// any applicable block.
func IsBlocked(blocks []model.TimeBlock, professionalID, slot string, stepMinutes int) bool {
	_, ok := BlockedSlots(blocks, professionalID, stepMinutes)[slot]
	return ok
}
