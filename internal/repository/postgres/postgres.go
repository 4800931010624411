package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medoffice/scheduler-api/internal/repository"
)

// querier is satisfied by both *sqlx.DB and *sqlx.Tx, so every repository
// works unchanged inside and outside a transaction.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type officeRepository struct {
	db querier
}

type doctorRepository struct {
	db querier
}

type scheduleRepository struct {
	db querier
}

type appointmentRepository struct {
	db querier
}

type consultationRepository struct {
	db querier
}

type outboxRepository struct {
	db querier
}

type auditRepository struct {
	db querier
}

func NewOfficeRepository(db *sqlx.DB) repository.OfficeRepository {
	return &officeRepository{db: db}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewConsultationRepository(db *sqlx.DB) repository.ConsultationRepository {
	return &consultationRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

// Store binds all repositories to one handle. Constructed over *sqlx.DB for
// normal use; Transact re-binds everything to a serializable transaction.
type Store struct {
	db *sqlx.DB
	q  querier

	offices       *officeRepository
	doctors       *doctorRepository
	schedules     *scheduleRepository
	appointments  *appointmentRepository
	consultations *consultationRepository
	outbox        *outboxRepository
	audit         *auditRepository
}

func NewStore(db *sqlx.DB) *Store {
	return newStore(db, db)
}

func newStore(db *sqlx.DB, q querier) *Store {
	return &Store{
		db:            db,
		q:             q,
		offices:       &officeRepository{db: q},
		doctors:       &doctorRepository{db: q},
		schedules:     &scheduleRepository{db: q},
		appointments:  &appointmentRepository{db: q},
		consultations: &consultationRepository{db: q},
		outbox:        &outboxRepository{db: q},
		audit:         &auditRepository{db: q},
	}
}

func (s *Store) Offices() repository.OfficeRepository             { return s.offices }
func (s *Store) Doctors() repository.DoctorRepository             { return s.doctors }
func (s *Store) Schedules() repository.ScheduleRepository         { return s.schedules }
func (s *Store) Appointments() repository.AppointmentRepository   { return s.appointments }
func (s *Store) Consultations() repository.ConsultationRepository { return s.consultations }
func (s *Store) Outbox() repository.OutboxRepository              { return s.outbox }
func (s *Store) Audit() repository.AuditRepository                { return s.audit }

// Transact runs fn over tx-bound repositories inside a serializable
// transaction. Nested calls reuse the enclosing transaction.
func (s *Store) Transact(ctx context.Context, fn func(repository.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newStore(nil, tx)); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// mapError translates driver errors onto the repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return repository.ErrDuplicate
	}
	return err
}
