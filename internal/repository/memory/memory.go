// Package memory provides an in-memory repository.Store used by unit
// tests. It mirrors the Postgres implementation's contract, including the
// uniqueness constraints on appointment numbers and on the
// consultation→appointment binding.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	offices       map[uuid.UUID]*model.Office
	doctors       map[uuid.UUID]*model.Doctor
	schedules     []*model.DoctorSchedule
	appointments  map[uuid.UUID]*model.Appointment
	consultations map[uuid.UUID]*model.Consultation
	OutboxEvents  []*model.OutboxEvent
	AuditLogs     []*model.AuditLog
}

func NewStore() *Store {
	return &Store{
		offices:       make(map[uuid.UUID]*model.Office),
		doctors:       make(map[uuid.UUID]*model.Doctor),
		appointments:  make(map[uuid.UUID]*model.Appointment),
		consultations: make(map[uuid.UUID]*model.Consultation),
	}
}

func (s *Store) Offices() repository.OfficeRepository             { return officeRepo{s} }
func (s *Store) Doctors() repository.DoctorRepository             { return doctorRepo{s} }
func (s *Store) Schedules() repository.ScheduleRepository         { return scheduleRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository   { return appointmentRepo{s} }
func (s *Store) Consultations() repository.ConsultationRepository { return consultationRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return outboxRepo{s} }
func (s *Store) Audit() repository.AuditRepository                { return auditRepo{s} }

func (s *Store) Transact(ctx context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

// AddSchedule seeds a doctor weekly schedule block.
func (s *Store) AddSchedule(sched *model.DoctorSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, sched)
}

type officeRepo struct{ s *Store }

func (r officeRepo) Create(_ context.Context, office *model.Office) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *office
	r.s.offices[office.ID] = &cp
	return nil
}

func (r officeRepo) Get(_ context.Context, id uuid.UUID) (*model.Office, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	office, ok := r.s.offices[id]
	if !ok {
		return nil, fmt.Errorf("office %s: %w", id, repository.ErrNotFound)
	}
	cp := *office
	return &cp, nil
}

func (r officeRepo) List(_ context.Context) ([]*model.Office, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Office, 0, len(r.s.offices))
	for _, o := range r.s.offices {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type doctorRepo struct{ s *Store }

func (r doctorRepo) Create(_ context.Context, doctor *model.Doctor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *doctor
	r.s.doctors[doctor.ID] = &cp
	return nil
}

func (r doctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	doctor, ok := r.s.doctors[id]
	if !ok {
		return nil, fmt.Errorf("doctor %s: %w", id, repository.ErrNotFound)
	}
	cp := *doctor
	return &cp, nil
}

func (r doctorRepo) ListByOffice(_ context.Context, officeID uuid.UUID) ([]*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Doctor
	for _, d := range r.s.doctors {
		if d.OfficeID == officeID && d.Active {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type scheduleRepo struct{ s *Store }

func (r scheduleRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.DoctorSchedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.DoctorSchedule
	for _, sc := range r.s.schedules {
		if sc.DoctorID == doctorID {
			cp := *sc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r scheduleRepo) ListForOfficeDay(_ context.Context, officeID uuid.UUID, weekday time.Weekday) ([]*model.DoctorSchedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.DoctorSchedule
	for _, sc := range r.s.schedules {
		if sc.OfficeID == officeID && sc.Weekday == weekday {
			cp := *sc
			out = append(out, &cp)
		}
	}
	return out, nil
}

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(_ context.Context, appointment *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.appointments {
		if a.AppointmentNumber == appointment.AppointmentNumber {
			return fmt.Errorf("appointment number %s: %w", appointment.AppointmentNumber, repository.ErrDuplicate)
		}
	}
	cp := *appointment
	r.s.appointments[appointment.ID] = &cp
	return nil
}

func (r appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	appointment, ok := r.s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %s: %w", id, repository.ErrNotFound)
	}
	cp := *appointment
	return &cp, nil
}

func (r appointmentRepo) Update(_ context.Context, appointment *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.appointments[appointment.ID]; !ok {
		return fmt.Errorf("appointment %s: %w", appointment.ID, repository.ErrNotFound)
	}
	appointment.UpdatedAt = time.Now()
	cp := *appointment
	r.s.appointments[appointment.ID] = &cp
	return nil
}

func (r appointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if filters.OfficeID != uuid.Nil && a.OfficeID != filters.OfficeID {
			continue
		}
		if filters.PatientID != uuid.Nil && a.PatientID != filters.PatientID {
			continue
		}
		if filters.DoctorID != uuid.Nil && (a.DoctorID == nil || *a.DoctorID != filters.DoctorID) {
			continue
		}
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		if !filters.StartDate.IsZero() && a.StartTime.Before(filters.StartDate) {
			continue
		}
		if !filters.EndDate.IsZero() && !a.StartTime.Before(filters.EndDate) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortByStart(out)
	return out, nil
}

func (r appointmentRepo) ListActiveForOfficeDay(_ context.Context, officeID uuid.UUID, day time.Time) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if a.OfficeID != officeID || !a.Status.IsActive() {
			continue
		}
		if a.StartTime.Before(dayStart) || !a.StartTime.Before(dayEnd) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortByStart(out)
	return out, nil
}

func (r appointmentRepo) ListActiveForDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if a.DoctorID == nil || *a.DoctorID != doctorID || !a.Status.IsActive() {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortByStart(out)
	return out, nil
}

func (r appointmentRepo) ListExpirable(_ context.Context, now time.Time, limit int) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	bound := make(map[uuid.UUID]bool)
	for _, c := range r.s.consultations {
		if c.AppointmentID != nil {
			bound[*c.AppointmentID] = true
		}
	}

	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if !a.StartTime.Before(now) {
			continue
		}
		if a.Status != model.AppointmentStatusProgrammed && a.Status != model.AppointmentStatusConfirmed {
			continue
		}
		if bound[a.ID] {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortByStart(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type consultationRepo struct{ s *Store }

func (r consultationRepo) Create(_ context.Context, consultation *model.Consultation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if consultation.AppointmentID != nil {
		for _, c := range r.s.consultations {
			if c.AppointmentID != nil && *c.AppointmentID == *consultation.AppointmentID {
				return fmt.Errorf("appointment %s already has a consultation: %w", *consultation.AppointmentID, repository.ErrDuplicate)
			}
		}
	}
	cp := *consultation
	r.s.consultations[consultation.ID] = &cp
	return nil
}

func (r consultationRepo) Get(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	consultation, ok := r.s.consultations[id]
	if !ok {
		return nil, fmt.Errorf("consultation %s: %w", id, repository.ErrNotFound)
	}
	cp := *consultation
	return &cp, nil
}

func (r consultationRepo) Update(_ context.Context, consultation *model.Consultation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.consultations[consultation.ID]; !ok {
		return fmt.Errorf("consultation %s: %w", consultation.ID, repository.ErrNotFound)
	}
	consultation.UpdatedAt = time.Now()
	cp := *consultation
	r.s.consultations[consultation.ID] = &cp
	return nil
}

func (r consultationRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*model.Consultation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.consultations {
		if c.AppointmentID != nil && *c.AppointmentID == appointmentID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r consultationRepo) CountInProgressForDoctor(_ context.Context, doctorID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, c := range r.s.consultations {
		if c.DoctorID != nil && *c.DoctorID == doctorID && c.Status == model.ConsultationStatusInProgress {
			count++
		}
	}
	return count, nil
}

func (r consultationRepo) ListActiveWalkInsForPatient(_ context.Context, patientID uuid.UUID) ([]*model.Consultation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Consultation
	for _, c := range r.s.consultations {
		if c.PatientID == patientID && c.Kind == model.ConsultationKindWalkIn && c.Status.IsActive() {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = uuid.New()
	event.Status = string(model.OutboxStatusPending)
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	cp := *event
	r.s.OutboxEvents = append(r.s.OutboxEvents, &cp)
	return nil
}

func (r outboxRepo) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.OutboxEvent
	for _, e := range r.s.OutboxEvents {
		if e.Status == string(model.OutboxStatusPending) {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r outboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.OutboxEvents {
		if e.ID == id {
			e.Status = string(status)
			e.ErrorMessage = errorMessage
			e.RetryAt = retryAt
			e.UpdatedAt = time.Now()
			if status == model.OutboxStatusProcessed {
				now := time.Now()
				e.ProcessedAt = &now
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r outboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var kept []*model.OutboxEvent
	var deleted int64
	for _, e := range r.s.OutboxEvents {
		if e.Status == string(model.OutboxStatusProcessed) && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.s.OutboxEvents = kept
	return deleted, nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) Create(_ context.Context, log *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *log
	r.s.AuditLogs = append(r.s.AuditLogs, &cp)
	return nil
}

func (r auditRepo) List(_ context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.AuditLog, len(r.s.AuditLogs))
	copy(out, r.s.AuditLogs)
	return out, nil
}

func (r auditRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var kept []*model.AuditLog
	var deleted int64
	for _, l := range r.s.AuditLogs {
		if l.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	r.s.AuditLogs = kept
	return deleted, nil
}

func sortByStart(list []*model.Appointment) {
	sort.Slice(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
}
