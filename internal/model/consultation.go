package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusWaiting    ConsultationStatus = "waiting"
	ConsultationStatusInProgress ConsultationStatus = "in_progress"
	ConsultationStatusFinished   ConsultationStatus = "finished"
	ConsultationStatusCancelled  ConsultationStatus = "cancelled"
)

// IsActive reports whether the consultation still holds a place in the
// waiting-room queue.
func (s ConsultationStatus) IsActive() bool {
	return s == ConsultationStatusWaiting || s == ConsultationStatusInProgress
}

// IsTerminal reports whether the status admits no further transitions.
func (s ConsultationStatus) IsTerminal() bool {
	return s == ConsultationStatusFinished || s == ConsultationStatusCancelled
}

type ConsultationKind string

const (
	ConsultationKindScheduled ConsultationKind = "scheduled"
	ConsultationKindWalkIn    ConsultationKind = "walk_in"
)

// Consultation is a clinical encounter, optionally bound 1:1 to an
// appointment through AppointmentID. The clinical free-text fields are
// opaque to the scheduling core.
type Consultation struct {
	Base
	PatientID     uuid.UUID          `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID         `db:"appointment_id" json:"appointment_id,omitempty"`
	DoctorID      *uuid.UUID         `db:"doctor_id" json:"doctor_id,omitempty"`
	Status        ConsultationStatus `db:"status" json:"status"`
	Kind          ConsultationKind   `db:"kind" json:"kind"`
	Reason        string             `db:"reason" json:"reason,omitempty"`
	Diagnosis     string             `db:"diagnosis" json:"diagnosis,omitempty"`
	Treatment     string             `db:"treatment" json:"treatment,omitempty"`
	Notes         string             `db:"notes" json:"notes,omitempty"`
	AttendedAt    *time.Time         `db:"attended_at" json:"attended_at,omitempty"`
	FinishedAt    *time.Time         `db:"finished_at" json:"finished_at,omitempty"`
}

// CreateConsultationRequest opens a consultation either for an existing
// appointment (patient comes from the appointment) or as a walk-in, in
// which case patient_id is required.
type CreateConsultationRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	Reason        string     `json:"reason" binding:"max=500"`
}

type FinishConsultationRequest struct {
	Diagnosis string `json:"diagnosis" binding:"max=2000"`
	Treatment string `json:"treatment" binding:"max=2000"`
	Notes     string `json:"notes" binding:"max=2000"`
}
