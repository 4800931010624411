package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
)

// Office is a physical consulting room with its own opening hours and
// appointment pool. Opening and closing times are wall-clock HH:MM values
// with no date component.
type Office struct {
	Base
	Name     string `db:"name" json:"name"`
	OpensAt  string `db:"opens_at" json:"opens_at"`
	ClosesAt string `db:"closes_at" json:"closes_at"`
	Active   bool   `db:"active" json:"active"`
}

// Validate enforces the opening < closing invariant.
func (o *Office) Validate() error {
	open, err := ClockMinutes(o.OpensAt)
	if err != nil {
		return apperrors.InvalidInterval(fmt.Sprintf("invalid opening time %q", o.OpensAt))
	}
	close, err := ClockMinutes(o.ClosesAt)
	if err != nil {
		return apperrors.InvalidInterval(fmt.Sprintf("invalid closing time %q", o.ClosesAt))
	}
	if open >= close {
		return apperrors.InvalidInterval("office opening time must be before closing time")
	}
	return nil
}

// OpenMinutes returns the opening time as minutes from midnight.
func (o *Office) OpenMinutes() int {
	m, _ := ClockMinutes(o.OpensAt)
	return m
}

// CloseMinutes returns the closing time as minutes from midnight.
func (o *Office) CloseMinutes() int {
	m, _ := ClockMinutes(o.ClosesAt)
	return m
}

// DoctorSchedule is a read-only weekly working block for a doctor at an
// office. It only says when a doctor nominally works; occupancy is derived
// solely from appointments.
type DoctorSchedule struct {
	Base
	DoctorID uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	OfficeID uuid.UUID    `db:"office_id" json:"office_id"`
	Weekday  time.Weekday `db:"weekday" json:"weekday"`
	StartsAt string       `db:"starts_at" json:"starts_at"`
	EndsAt   string       `db:"ends_at" json:"ends_at"`
}

// Covers reports whether the block applies to the given office and weekday.
func (s *DoctorSchedule) Covers(officeID uuid.UUID, day time.Weekday) bool {
	return s.OfficeID == officeID && s.Weekday == day
}

// ClockMinutes parses an HH:MM wall-clock value into minutes from midnight.
func ClockMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesToClock formats minutes from midnight as a 24h HH:MM value.
func MinutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// MinutesToLabel formats minutes from midnight as a 12h display label.
func MinutesToLabel(m int) string {
	ref := time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC)
	return ref.Format("03:04 PM")
}
