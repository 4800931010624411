package consultation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/handler"
	"github.com/medoffice/scheduler-api/internal/middleware"
	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/service/consultation"
	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
	"github.com/medoffice/scheduler-api/pkg/metrics"
)

type Handler struct {
	service *consultation.Service
	metrics *metrics.Metrics
}

func NewHandler(service *consultation.Service, metrics *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: metrics}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	consultations := r.Group("/consultations")
	{
		consultations.POST("", h.CreateConsultation)
		consultations.GET("/:id", h.GetConsultation)
		consultations.POST("/:id/start", h.StartConsultation)
		consultations.POST("/:id/finish", h.FinishConsultation)
		consultations.POST("/:id/cancel", h.CancelConsultation)
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
		handler.BadRequest(c, "invalid consultation ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) CreateConsultation(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	var req model.CreateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}
	if req.AppointmentID == nil && req.PatientID == uuid.Nil {
		handler.BadRequest(c, "either appointment_id or patient_id is required")
		return
	}

	cons, err := h.service.Create(c.Request.Context(), act, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusCreated, cons)
}

func (h *Handler) GetConsultation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cons, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, cons)
}

func (h *Handler) StartConsultation(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	cons, err := h.service.Start(c.Request.Context(), act, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	h.metrics.ConsultationsStarted.Inc()
	handler.Success(c, http.StatusOK, cons)
}

func (h *Handler) FinishConsultation(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	// The clinical outcome is optional; finishing with an empty body is
	// valid.
	var req model.FinishConsultationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.BadRequest(c, err.Error())
			return
		}
	}

	cons, err := h.service.Finish(c.Request.Context(), act, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, cons)
}

func (h *Handler) CancelConsultation(c *gin.Context) {
	act, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	cons, err := h.service.Cancel(c.Request.Context(), act, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, cons)
}
