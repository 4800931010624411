package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    uuid.UUID       `json:"actor_id" db:"actor_id"`
	OfficeID   uuid.UUID       `json:"office_id" db:"office_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes" db:"changes"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate  = "create"
	AuditActionUpdate  = "update"
	AuditActionCancel  = "cancel"
	AuditActionAssign  = "assign"
	AuditActionRelease = "release"
	AuditActionExpire  = "expire"

	// Entity types
	AuditEntityAppointment  = "appointment"
	AuditEntityConsultation = "consultation"
)
