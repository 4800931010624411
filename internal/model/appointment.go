package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusProgrammed   AppointmentStatus = "programmed"
	AppointmentStatusConfirmed    AppointmentStatus = "confirmed"
	AppointmentStatusWaiting      AppointmentStatus = "waiting"
	AppointmentStatusInAttendance AppointmentStatus = "in_attendance"
	AppointmentStatusCompleted    AppointmentStatus = "completed"
	AppointmentStatusCancelled    AppointmentStatus = "cancelled"
	AppointmentStatusNoShow       AppointmentStatus = "no_show"
	AppointmentStatusRescheduled  AppointmentStatus = "rescheduled"
)

// ActiveAppointmentStatuses are the statuses that still occupy calendar
// time. Slot generation and conflict detection only consider these.
var ActiveAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusProgrammed,
	AppointmentStatusConfirmed,
	AppointmentStatusWaiting,
	AppointmentStatusInAttendance,
}

// IsActive reports whether the status occupies calendar time.
func (s AppointmentStatus) IsActive() bool {
	for _, a := range ActiveAppointmentStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted ||
		s == AppointmentStatusCancelled ||
		s == AppointmentStatusNoShow
}

type AppointmentPriority string

const (
	AppointmentPriorityLow    AppointmentPriority = "low"
	AppointmentPriorityNormal AppointmentPriority = "normal"
	AppointmentPriorityHigh   AppointmentPriority = "high"
	AppointmentPriorityUrgent AppointmentPriority = "urgent"
)

type Appointment struct {
	Base
	AppointmentNumber string              `db:"appointment_number" json:"appointment_number"`
	PatientID         uuid.UUID           `db:"patient_id" json:"patient_id"`
	OfficeID          uuid.UUID           `db:"office_id" json:"office_id"`
	DoctorID          *uuid.UUID          `db:"doctor_id" json:"doctor_id,omitempty"`
	PreferredDoctorID *uuid.UUID          `db:"preferred_doctor_id" json:"preferred_doctor_id,omitempty"`
	StartTime         time.Time           `db:"start_time" json:"start_time"`
	DurationMinutes   int                 `db:"duration_minutes" json:"duration_minutes"`
	Status            AppointmentStatus   `db:"status" json:"status"`
	Priority          AppointmentPriority `db:"priority" json:"priority"`
	Notes             string              `db:"notes" json:"notes,omitempty"`
	CancelReason      *string             `db:"cancel_reason" json:"cancel_reason,omitempty"`
	ConfirmedAt       *time.Time          `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt       *time.Time          `db:"cancelled_at" json:"cancelled_at,omitempty"`
	DoctorAssignedAt  *time.Time          `db:"doctor_assigned_at" json:"doctor_assigned_at,omitempty"`
	RescheduledFromID *uuid.UUID          `db:"rescheduled_from_id" json:"rescheduled_from_id,omitempty"`
}

// Duration returns the appointment length.
func (a *Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// EndTime returns the exclusive end of the appointment interval.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(a.Duration())
}

// Day returns the calendar day of the appointment in its own location.
func (a *Appointment) Day() time.Time {
	y, m, d := a.StartTime.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, a.StartTime.Location())
}

// Overlaps applies the half-open interval test: [s1, e1) and [s2, e2)
// conflict iff s1 < e2 and s2 < e1.
func (a *Appointment) Overlaps(start time.Time, duration time.Duration) bool {
	return a.StartTime.Before(start.Add(duration)) && start.Before(a.EndTime())
}

type CreateAppointmentRequest struct {
	PatientID         uuid.UUID  `json:"patient_id" binding:"required"`
	OfficeID          uuid.UUID  `json:"office_id" binding:"required"`
	StartTime         time.Time  `json:"start_time" binding:"required"`
	DurationMinutes   int        `json:"duration_minutes" binding:"required,min=1,max=480"`
	Priority          string     `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	PreferredDoctorID *uuid.UUID `json:"preferred_doctor_id"`
	Notes             string     `json:"notes" binding:"max=1000"`
}

type EditAppointmentRequest struct {
	StartTime       *time.Time `json:"start_time"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	OfficeID        *uuid.UUID `json:"office_id"`
	Notes           *string    `json:"notes" binding:"omitempty,max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type AssignDoctorRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" binding:"required"`
}

type AppointmentFilters struct {
	OfficeID  uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}
