// Package handler exposes the pipeline over HTTP: a small public surface for
// the booking form and a wider admin surface for working the pipeline.
package handler

import (
	"net/http"

	"concierge_backend/internal/http/response"
	"concierge_backend/internal/pipeline/service"
	"concierge_backend/internal/pipeline/transport"
	"concierge_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request body"

// PublicHandler serves the unauthenticated booking endpoints.
type PublicHandler struct {
	svc *service.Service
	val *validator.Validator
}

// NewPublicHandler creates the public pipeline handler.
func NewPublicHandler(svc *service.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

// RegisterRoutes mounts the public routes.
func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/consultations", h.SubmitConsultation)
	rg.PUT("/consultations/:id/times", h.ResubmitTimes)
}

// SubmitConsultation handles the public booking form.
func (h *PublicHandler) SubmitConsultation(c *gin.Context) {
	var req transport.SubmitConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	created, err := h.svc.SubmitRequest(c.Request.Context(), service.SubmitInput{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		CurrentRole:  req.CurrentRole,
		RoleInterest: req.RoleInterest,
		Message:      req.Message,
		TimeSlots:    req.TimeSlots,
	})
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, transport.ToPublicConsultationResponse(created))
}

// ResubmitTimes lets a lead answer a new-times request. The link in the email
// carries the consultation id.
func (h *PublicHandler) ResubmitTimes(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid consultation id", nil)
		return
	}

	var req transport.ResubmitTimesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	updated, err := h.svc.ResubmitTimes(c.Request.Context(), id, req.TimeSlots)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToPublicConsultationResponse(updated))
}
