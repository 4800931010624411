// Package cached wraps the read-mostly administrative repositories (offices,
// doctors, weekly schedules) with a short-TTL in-process cache. Appointment
// and consultation data is never cached here: occupancy is mutated by many
// independent callers and must always be read inside the request's
// transaction.
package cached

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
)

type OfficeRepository struct {
	inner repository.OfficeRepository
	cache *gocache.Cache
}

func NewOfficeRepository(inner repository.OfficeRepository, ttl time.Duration) *OfficeRepository {
	return &OfficeRepository{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *OfficeRepository) Create(ctx context.Context, office *model.Office) error {
	if err := r.inner.Create(ctx, office); err != nil {
		return err
	}
	r.cache.Flush()
	return nil
}

func (r *OfficeRepository) Get(ctx context.Context, id uuid.UUID) (*model.Office, error) {
	key := "office:" + id.String()
	if v, ok := r.cache.Get(key); ok {
		return v.(*model.Office), nil
	}

	office, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, office)
	return office, nil
}

func (r *OfficeRepository) List(ctx context.Context) ([]*model.Office, error) {
	if v, ok := r.cache.Get("offices"); ok {
		return v.([]*model.Office), nil
	}

	offices, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault("offices", offices)
	return offices, nil
}

type DoctorRepository struct {
	inner repository.DoctorRepository
	cache *gocache.Cache
}

func NewDoctorRepository(inner repository.DoctorRepository, ttl time.Duration) *DoctorRepository {
	return &DoctorRepository{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *DoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	if err := r.inner.Create(ctx, doctor); err != nil {
		return err
	}
	r.cache.Flush()
	return nil
}

func (r *DoctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	key := "doctor:" + id.String()
	if v, ok := r.cache.Get(key); ok {
		return v.(*model.Doctor), nil
	}

	doctor, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, doctor)
	return doctor, nil
}

func (r *DoctorRepository) ListByOffice(ctx context.Context, officeID uuid.UUID) ([]*model.Doctor, error) {
	key := "office-doctors:" + officeID.String()
	if v, ok := r.cache.Get(key); ok {
		return v.([]*model.Doctor), nil
	}

	doctors, err := r.inner.ListByOffice(ctx, officeID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, doctors)
	return doctors, nil
}

type ScheduleRepository struct {
	inner repository.ScheduleRepository
	cache *gocache.Cache
}

func NewScheduleRepository(inner repository.ScheduleRepository, ttl time.Duration) *ScheduleRepository {
	return &ScheduleRepository{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *ScheduleRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorSchedule, error) {
	key := "doctor-schedule:" + doctorID.String()
	if v, ok := r.cache.Get(key); ok {
		return v.([]*model.DoctorSchedule), nil
	}

	schedules, err := r.inner.ListForDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, schedules)
	return schedules, nil
}

func (r *ScheduleRepository) ListForOfficeDay(ctx context.Context, officeID uuid.UUID, weekday time.Weekday) ([]*model.DoctorSchedule, error) {
	key := fmt.Sprintf("office-schedule:%s:%d", officeID, weekday)
	if v, ok := r.cache.Get(key); ok {
		return v.([]*model.DoctorSchedule), nil
	}

	schedules, err := r.inner.ListForOfficeDay(ctx, officeID, weekday)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, schedules)
	return schedules, nil
}
