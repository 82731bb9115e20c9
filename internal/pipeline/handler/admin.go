package handler

import (
	"net/http"
	"strconv"

	"concierge_backend/internal/http/response"
	"concierge_backend/internal/pipeline/domain"
	"concierge_backend/internal/pipeline/service"
	"concierge_backend/internal/pipeline/transport"
	"concierge_backend/platform/httpkit"
	"concierge_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves the authenticated pipeline management endpoints.
type AdminHandler struct {
	svc *service.Service
	val *validator.Validator
}

// NewAdminHandler creates the admin pipeline handler.
func NewAdminHandler(svc *service.Service, val *validator.Validator) *AdminHandler {
	return &AdminHandler{svc: svc, val: val}
}

// RegisterRoutes mounts the admin routes.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/consultations", h.List)
	rg.GET("/consultations/:id", h.Get)
	rg.GET("/consultations/:id/history", h.History)
	rg.POST("/consultations/:id/review", h.MarkUnderReview)
	rg.POST("/consultations/:id/approve", h.Approve)
	rg.POST("/consultations/:id/reject", h.Reject)
	rg.POST("/consultations/:id/confirm-time", h.ConfirmTime)
	rg.POST("/consultations/:id/request-new-times", h.RequestNewTimes)
	rg.POST("/consultations/:id/complete", h.Complete)
	rg.POST("/consultations/:id/payment", h.RecordPayment)
}

// List returns consultations, optionally filtered by pipeline status.
func (h *AdminHandler) List(c *gin.Context) {
	var status *domain.PipelineStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.PipelineStatus(raw)
		status = &s
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	consultations, err := h.svc.List(c.Request.Context(), status, limit)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	out := make([]transport.ConsultationResponse, 0, len(consultations))
	for _, item := range consultations {
		out = append(out, transport.ToConsultationResponse(item))
	}
	response.OK(c, gin.H{"consultations": out})
}

// Get returns one consultation.
func (h *AdminHandler) Get(c *gin.Context) {
	id, ok := h.consultationID(c)
	if !ok {
		return
	}
	consultation, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToConsultationResponse(consultation))
}

// History returns the audit trail of status changes.
func (h *AdminHandler) History(c *gin.Context) {
	id, ok := h.consultationID(c)
	if !ok {
		return
	}
	trail, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, gin.H{"events": transport.ToPipelineEventResponses(trail)})
}

// MarkUnderReview pulls a lead into review.
func (h *AdminHandler) MarkUnderReview(c *gin.Context) {
	id, ok := h.consultationID(c)
	if !ok {
		return
	}
	adminID, ok := h.adminID(c)
	if !ok {
		return
	}
	updated, err := h.svc.MarkUnderReview(c.Request.Context(), id, adminID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToConsultationResponse(updated))
}

// Approve approves a reviewed lead and emails the registration link.
func (h *AdminHandler) Approve(c *gin.Context) {
	id, ok := h.consultationID(c)
	if !ok {
		return
	}
	adminID, ok := h.adminID(c)
	if !ok {
		return
	}
	updated, err := h.svc.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToConsultationResponse(updated))
}

// Reject moves a consultation to the terminal rejected state.
func (h *AdminHandler) Reject(c *gin.Context) {
	id, ok := h.consultationID(c)
	if !ok {
		return
	}
	adminID, ok := h.adminID(c)
	if !ok {
		return
	}

	var req transport.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	updated, err := h.svc.Reject(c.Request.Context(), id, adminID, req.Reason)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToConsultationResponse(updated))
}

// ConfirmTime confirms one of the proposed slots.
func (h *AdminHandler) ConfirmTime(c *gin.Context) {
	id, ok := h.consultationID(c)
	if !ok {
		return
	}
	adminID, ok := h.adminID(c)
	if !ok {
		return
	}

	var req transport.ConfirmTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	updated, err := h.svc.ConfirmTime(c.Request.Context(), id, adminID, service.ConfirmTimeInput{
		SlotIndex:   req.SlotIndex,
		MeetingLink: req.MeetingLink,
		MeetingType: req.MeetingType,
	})
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToConsultationResponse(updated))
}

// RequestNewTimes asks the lead for replacement slots.
func (h *AdminHandler) RequestNewTimes(c *gin.Context) {
	id, ok := h.consultationID(c)
	if !ok {
		return
	}
	adminID, ok := h.adminID(c)
	if !ok {
		return
	}

	var req transport.RequestNewTimesRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	updated, err := h.svc.RequestNewTimes(c.Request.Context(), id, adminID, req.Note)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToConsultationResponse(updated))
}

// Complete records the consultation outcome.
func (h *AdminHandler) Complete(c *gin.Context) {
	id, ok := h.consultationID(c)
	if !ok {
		return
	}
	adminID, ok := h.adminID(c)
	if !ok {
		return
	}

	var req transport.CompleteConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	updated, err := h.svc.MarkCompleted(c.Request.Context(), id, adminID, req.Outcome)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToConsultationResponse(updated))
}

// RecordPayment records the consultation payment and emails the payment-variant
// registration link.
func (h *AdminHandler) RecordPayment(c *gin.Context) {
	id, ok := h.consultationID(c)
	if !ok {
		return
	}
	adminID, ok := h.adminID(c)
	if !ok {
		return
	}

	var req transport.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	updated, err := h.svc.RecordPayment(c.Request.Context(), id, adminID, service.PaymentInput{
		AmountCents: req.AmountCents,
		Method:      req.Method,
		Reference:   req.Reference,
	})
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToConsultationResponse(updated))
}

func (h *AdminHandler) consultationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid consultation id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *AdminHandler) adminID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get(httpkit.ContextUserIDKey)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "authentication required", nil)
		return uuid.Nil, false
	}
	id, ok := raw.(uuid.UUID)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "authentication required", nil)
		return uuid.Nil, false
	}
	return id, true
}
