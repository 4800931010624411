package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/handler"
	"github.com/medoffice/scheduler-api/internal/middleware"
	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/service/appointment"
	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
	"github.com/medoffice/scheduler-api/pkg/metrics"
)

type Handler struct {
	service *appointment.Service
	metrics *metrics.Metrics
}

func NewHandler(service *appointment.Service, metrics *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: metrics}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.EditAppointment)
		appointments.POST("/:id/assign", h.AssignDoctor)
		appointments.POST("/:id/take", h.TakeAppointment)
		appointments.POST("/:id/release", h.ReleaseAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/reschedule", h.RescheduleAppointment)
	}
}

func actor(c *gin.Context) (model.Actor, bool) {
	a, ok := middleware.ActorFromContext(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
	}
	return a, ok
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid appointment ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	appt, err := h.service.Create(c.Request.Context(), act, &req)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrScheduleConflict) {
			h.metrics.ScheduleConflicts.Inc()
		}
		handler.Error(c, err)
		return
	}

	h.metrics.AppointmentsCreated.Inc()
	handler.Success(c, http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	appt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	if id := c.Query("office_id"); id != "" {
		officeID, err := uuid.Parse(id)
		if err != nil {
			handler.BadRequest(c, "invalid office ID")
			return
		}
		filters.OfficeID = officeID
	}
	if id := c.Query("doctor_id"); id != "" {
		doctorID, err := uuid.Parse(id)
		if err != nil {
			handler.BadRequest(c, "invalid doctor ID")
			return
		}
		filters.DoctorID = doctorID
	}
	if id := c.Query("patient_id"); id != "" {
		patientID, err := uuid.Parse(id)
		if err != nil {
			handler.BadRequest(c, "invalid patient ID")
			return
		}
		filters.PatientID = patientID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}
	if date := c.Query("start_date"); date != "" {
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			handler.BadRequest(c, "invalid start_date")
			return
		}
		filters.StartDate = t
	}
	if date := c.Query("end_date"); date != "" {
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			handler.BadRequest(c, "invalid end_date")
			return
		}
		filters.EndDate = t
	}

	appts, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appts)
}

func (h *Handler) EditAppointment(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.EditAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	appt, err := h.service.Edit(c.Request.Context(), act, id, &req)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrScheduleConflict) {
			h.metrics.ScheduleConflicts.Inc()
		}
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appt)
}

func (h *Handler) AssignDoctor(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.AssignDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	appt, err := h.service.AssignDoctor(c.Request.Context(), act, id, req.DoctorID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appt)
}

func (h *Handler) TakeAppointment(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	appt, err := h.service.Take(c.Request.Context(), act, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appt)
}

func (h *Handler) ReleaseAppointment(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	appt, err := h.service.Release(c.Request.Context(), act, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appt)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	appt, err := h.service.Cancel(c.Request.Context(), act, id, req.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appt)
}

type rescheduleRequest struct {
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1,max=480"`
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	appt, err := h.service.Reschedule(c.Request.Context(), act, id, req.StartTime, req.DurationMinutes)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrScheduleConflict) {
			h.metrics.ScheduleConflicts.Inc()
		}
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusCreated, appt)
}
