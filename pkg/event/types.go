package event

// Lifecycle event types emitted by the scheduling core. Every state
// transition returns the events it produced; the caller decides how to
// dispatch them (outbox, log, nothing).
const (
	TypeAppointmentCreated        = "appointment.created"
	TypeAppointmentStatusChanged  = "appointment.status_changed"
	TypeConsultationStatusChanged = "consultation.status_changed"
	TypeDoctorAssigned            = "doctor.assigned"
	TypeDoctorReleased            = "doctor.released"
)

// Event is a single lifecycle event with its payload. Payload values are
// plain strings/UUIDs so the event serializes the same way regardless of
// the broker behind the outbox.
type Event struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// New builds an event from key/value pairs.
func New(eventType string, payload map[string]interface{}) Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return Event{Type: eventType, Payload: payload}
}

// StatusChanged builds a status-change event with from/to fields.
func StatusChanged(eventType, entityID, from, to string) Event {
	return Event{
		Type: eventType,
		Payload: map[string]interface{}{
			"id":   entityID,
			"from": from,
			"to":   to,
		},
	}
}
