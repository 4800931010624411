package model

import (
	"github.com/google/uuid"
)

type ActorRole string

const (
	ActorRoleAdmin  ActorRole = "admin"
	ActorRoleStaff  ActorRole = "staff"
	ActorRoleDoctor ActorRole = "doctor"
	ActorRoleSystem ActorRole = "system"
)

// Actor is the explicit acting user behind every core operation. It is
// resolved by the HTTP layer before the core is invoked; the core never
// reads ambient state to guess who is responsible for a change.
type Actor struct {
	UserID   uuid.UUID  `json:"user_id"`
	Role     ActorRole  `json:"role"`
	OfficeID uuid.UUID  `json:"office_id"`
	DoctorID *uuid.UUID `json:"doctor_id,omitempty"`
}

// SystemActor is used by time-driven work such as the expiration sweeper.
func SystemActor() Actor {
	return Actor{Role: ActorRoleSystem}
}

// IsDoctor reports whether the actor acts as a doctor with a linked record.
func (a Actor) IsDoctor() bool {
	return a.Role == ActorRoleDoctor && a.DoctorID != nil
}
