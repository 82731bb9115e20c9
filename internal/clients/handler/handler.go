// Package handler exposes the clients context over HTTP: public registration
// redemption, the authenticated client portal, and the admin review surface.
package handler

import (
	"net/http"

	"concierge_backend/internal/adapters/storage"
	"concierge_backend/internal/clients/service"
	"concierge_backend/internal/clients/transport"
	"concierge_backend/internal/http/response"
	"concierge_backend/platform/httpkit"
	"concierge_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request body"

// Handler serves the clients routes.
type Handler struct {
	svc     *service.Service
	val     *validator.Validator
	storage storage.Service
}

// New creates the clients handler. The storage service may be nil, in which
// case the upload routes are not mounted.
func New(svc *service.Service, val *validator.Validator, store storage.Service) *Handler {
	return &Handler{svc: svc, val: val, storage: store}
}

// RegisterPublicRoutes mounts the unauthenticated registration endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/registration/verify", h.VerifyToken)
	rg.POST("/registration/complete", h.CompleteRegistration)
}

// RegisterClientRoutes mounts the authenticated client portal endpoints.
func (h *Handler) RegisterClientRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.MyProfile)
	rg.PATCH("/profile", h.UpdateProfile)
	rg.POST("/onboarding", h.SubmitOnboarding)
}

// RegisterAdminRoutes mounts the admin review endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/clients", h.List)
	rg.GET("/clients/:id", h.Get)
	rg.POST("/clients/:id/approve-onboarding", h.ApproveOnboarding)
}

// VerifyToken pre-checks a registration link for the registration form.
func (h *Handler) VerifyToken(c *gin.Context) {
	var req transport.VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	preview, err := h.svc.VerifyRegistrationToken(c.Request.Context(), req.Token)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.TokenPreviewResponse{
		FullName:  preview.FullName,
		Email:     preview.Email,
		ExpiresAt: preview.ExpiresAt,
	})
}

// CompleteRegistration redeems a registration link and creates the account.
func (h *Handler) CompleteRegistration(c *gin.Context) {
	var req transport.CompleteRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	client, err := h.svc.CompleteRegistration(c.Request.Context(), service.RegistrationInput{
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{
		"id":    client.ID,
		"email": client.Email,
	})
}

// MyProfile returns the caller's profile with fresh completion and gating
// state.
func (h *Handler) MyProfile(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	profile, err := h.svc.GetProfileByUser(c.Request.Context(), userID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToProfileResponse(profile))
}

// UpdateProfile applies a partial profile update.
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req transport.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	profile, err := h.svc.UpdateProfileByUser(c.Request.Context(), userID, req.ToUpdateInput())
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToProfileResponse(profile))
}

// SubmitOnboarding stores the questionnaire answers.
func (h *Handler) SubmitOnboarding(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req transport.SubmitOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	profile, err := h.svc.SubmitOnboarding(c.Request.Context(), userID, req.Answers)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToProfileResponse(profile))
}

// List returns all clients for the admin dashboard.
func (h *Handler) List(c *gin.Context) {
	profiles, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.DomainError(c, err)
		return
	}
	out := make([]transport.ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, transport.ToProfileResponse(p))
	}
	response.OK(c, gin.H{"clients": out})
}

// Get returns one client for the admin view.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid client id", nil)
		return
	}
	profile, err := h.svc.GetProfile(c.Request.Context(), id)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToProfileResponse(profile))
}

// ApproveOnboarding unlocks a client's execution features.
func (h *Handler) ApproveOnboarding(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid client id", nil)
		return
	}
	adminID, ok := h.userID(c)
	if !ok {
		return
	}

	profile, err := h.svc.ApproveOnboarding(c.Request.Context(), id, adminID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.ToProfileResponse(profile))
}

func (h *Handler) userID(c *gin.Context) (uuid.UUID, bool) {
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
