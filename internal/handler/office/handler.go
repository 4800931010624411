package office

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/handler"
	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
	appointmentService "github.com/medoffice/scheduler-api/internal/service/appointment"
	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
	"github.com/medoffice/scheduler-api/pkg/metrics"
	"github.com/medoffice/scheduler-api/pkg/validator"
)

// Handler exposes office configuration and the free-slot listing. Offices
// are administrative data; the slot listing is the read side of the
// scheduling core.
type Handler struct {
	offices      repository.OfficeRepository
	doctors      repository.DoctorRepository
	schedules    repository.ScheduleRepository
	appointments *appointmentService.Service
	validator    *validator.Validator
	metrics      *metrics.Metrics
}

func NewHandler(offices repository.OfficeRepository, doctors repository.DoctorRepository, schedules repository.ScheduleRepository, appointments *appointmentService.Service, v *validator.Validator, metrics *metrics.Metrics) *Handler {
	return &Handler{
		offices:      offices,
		doctors:      doctors,
		schedules:    schedules,
		appointments: appointments,
		validator:    v,
		metrics:      metrics,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	offices := r.Group("/offices")
	{
		offices.POST("", h.CreateOffice)
		offices.GET("", h.ListOffices)
		offices.GET("/:id/doctors", h.ListDoctors)
		offices.GET("/:id/schedules", h.ListSchedules)
		offices.GET("/:id/slots", h.ListFreeSlots)
	}
}

type createOfficeRequest struct {
	Name     string `json:"name" binding:"required" validate:"required"`
	OpensAt  string `json:"opens_at" binding:"required" validate:"required,clock"`
	ClosesAt string `json:"closes_at" binding:"required" validate:"required,clock"`
}

func (h *Handler) CreateOffice(c *gin.Context) {
	var req createOfficeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	office := &model.Office{
		Base:     model.Base{ID: uuid.New()},
		Name:     req.Name,
		OpensAt:  req.OpensAt,
		ClosesAt: req.ClosesAt,
		Active:   true,
	}
	if err := office.Validate(); err != nil {
		handler.Error(c, err)
		return
	}
	if err := h.offices.Create(c.Request.Context(), office); err != nil {
		handler.Error(c, apperrors.Internal(err))
		return
	}
	handler.Success(c, http.StatusCreated, office)
}

func (h *Handler) ListOffices(c *gin.Context) {
	offices, err := h.offices.List(c.Request.Context())
	if err != nil {
		handler.Error(c, apperrors.Internal(err))
		return
	}
	handler.Success(c, http.StatusOK, offices)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	officeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid office ID")
		return
	}
	doctors, err := h.doctors.ListByOffice(c.Request.Context(), officeID)
	if err != nil {
		handler.Error(c, apperrors.Internal(err))
		return
	}
	handler.Success(c, http.StatusOK, doctors)
}

// ListSchedules returns the advisory working blocks for the office on the
// given day's weekday. Staffing only; occupancy comes from appointments.
func (h *Handler) ListSchedules(c *gin.Context) {
	officeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid office ID")
		return
	}
	day, err := time.Parse("2006-01-02", c.Query("day"))
	if err != nil {
		handler.BadRequest(c, "invalid or missing day, expected YYYY-MM-DD")
		return
	}
	schedules, err := h.schedules.ListForOfficeDay(c.Request.Context(), officeID, day.Weekday())
	if err != nil {
		handler.Error(c, apperrors.Internal(err))
		return
	}
	handler.Success(c, http.StatusOK, schedules)
}

// ListFreeSlots answers "which start-times are free for a booking of this
// length on this day". The listing is advisory: the booking transaction
// re-runs the authoritative conflict check.
func (h *Handler) ListFreeSlots(c *gin.Context) {
	officeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid office ID")
		return
	}

	day, err := time.Parse("2006-01-02", c.Query("day"))
	if err != nil {
		handler.BadRequest(c, "invalid or missing day, expected YYYY-MM-DD")
		return
	}

	duration := 30
	if d := c.Query("duration_minutes"); d != "" {
		duration, err = strconv.Atoi(d)
		if err != nil || duration <= 0 {
			handler.BadRequest(c, "invalid duration_minutes")
			return
		}
	}

	excludeID := uuid.Nil
	if id := c.Query("exclude_appointment_id"); id != "" {
		excludeID, err = uuid.Parse(id)
		if err != nil {
			handler.BadRequest(c, "invalid exclude_appointment_id")
			return
		}
	}

	slots, err := h.appointments.FreeSlots(c.Request.Context(), officeID, day, duration, excludeID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	h.metrics.SlotListings.Inc()
	handler.Success(c, http.StatusOK, slots)
}
