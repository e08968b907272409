package outbox

// Event is the domain event envelope written to the outbox table inside the
// same transaction as the state change it describes. The Kafka topic equals
// EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Booking lifecycle topics consumed by collaborators (notification delivery,
// POS dashboards). Persistence of those consumers is theirs.
const (
	EventAppointmentRequested = "agenda.appointment.requested.v1"
	EventAppointmentConfirmed = "agenda.appointment.confirmed.v1"
	EventAppointmentRejected  = "agenda.appointment.rejected.v1"
	EventAppointmentCompleted = "agenda.appointment.completed.v1"
	EventAppointmentCancelled = "agenda.appointment.cancelled.v1"
)
