package availability

import "github.com/salonora/agenda/internal/model"

// SlotStatus is derived per (date, slot, professional) at read time; it is
// never stored.
type SlotStatus string

const (
	SlotFree     SlotStatus = "free"
	SlotOccupied SlotStatus = "occupied"
	SlotPending  SlotStatus = "pending"
)

// StatusOf resolves the display status of a single slot. Only an appointment
// that *starts* exactly on the slot colors it: the calendar marks a booking's
// first cell and leaves interior cells visually free, while placement is
// still guarded by the full-interval check in IsAvailable. A confirmed
// appointment wins over a pending one starting on the same slot.
//
// Appointments whose status does not occupy (completed, rejected, cancelled)
// never color a slot, so past slots become reusable the moment the registry
// reflects the transition.
func StatusOf(appointments []model.Appointment, professionalID string, slotMinute int) SlotStatus {
	status := SlotFree
	for _, a := range appointments {
		if !a.Status.Occupies() {
			continue
		}
		if professionalID != "" && a.ProfessionalID != "" && a.ProfessionalID != professionalID {
			continue
		}
		if a.StartMinute != slotMinute {
			continue
		}
		if a.Status == model.StatusConfirmed {
			return SlotOccupied
		}
		status = SlotPending
	}
	return status
}
