package appointment

import (
	"fmt"
	"math/rand"
	"time"
)

// NewAppointmentNumber builds a human-readable appointment number from the
// appointment date plus a random 4-digit suffix, e.g. CIT-20260115-0427.
// Uniqueness is not guaranteed here; the store's unique constraint is, and
// callers retry with a fresh suffix on collision.
func NewAppointmentNumber(start time.Time) string {
	return fmt.Sprintf("CIT-%s-%04d", start.Format("20060102"), rand.Intn(10000))
}
