package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
)

// Sentinel errors implementations map their driver errors onto, so services
// can branch without knowing the storage engine.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// All repository interfaces in one file
type (
	OfficeRepository interface {
		Create(ctx context.Context, office *model.Office) error
		Get(ctx context.Context, id uuid.UUID) (*model.Office, error)
		List(ctx context.Context) ([]*model.Office, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		ListByOffice(ctx context.Context, officeID uuid.UUID) ([]*model.Doctor, error)
	}

	ScheduleRepository interface {
		ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorSchedule, error)
		ListForOfficeDay(ctx context.Context, officeID uuid.UUID, weekday time.Weekday) ([]*model.DoctorSchedule, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListActiveForOfficeDay returns the appointments that occupy
		// calendar time at the office on the given day, ordered by start.
		ListActiveForOfficeDay(ctx context.Context, officeID uuid.UUID, day time.Time) ([]*model.Appointment, error)
		// ListActiveForDoctor returns active appointments assigned to the
		// doctor across all offices.
		ListActiveForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error)
		// ListExpirable returns past programmed/confirmed appointments with
		// no bound consultation, candidates for the no-show sweep.
		ListExpirable(ctx context.Context, now time.Time, limit int) ([]*model.Appointment, error)
	}

	ConsultationRepository interface {
		Create(ctx context.Context, consultation *model.Consultation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
		Update(ctx context.Context, consultation *model.Consultation) error
		// GetByAppointment returns the consultation bound to the appointment,
		// or nil when none exists.
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Consultation, error)
		CountInProgressForDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
		ListActiveWalkInsForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Consultation, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)

// Store aggregates the repositories over a single database handle. Transact
// re-binds them to one serializable transaction so conflict checks and the
// writes they guard observe a consistent office-day snapshot.
type Store interface {
	Offices() OfficeRepository
	Doctors() DoctorRepository
	Schedules() ScheduleRepository
	Appointments() AppointmentRepository
	Consultations() ConsultationRepository
	Outbox() OutboxRepository
	Audit() AuditRepository
	Transact(ctx context.Context, fn func(Store) error) error
}
