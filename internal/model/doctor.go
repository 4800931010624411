package model

import (
	"github.com/google/uuid"
)

// Doctor belongs to exactly one office; assignment to an appointment in
// another office is an ownership mismatch.
type Doctor struct {
	Base
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	OfficeID  uuid.UUID `db:"office_id" json:"office_id"`
	Active    bool      `db:"active" json:"active"`
}

func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}
