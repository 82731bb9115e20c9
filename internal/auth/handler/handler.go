// Package handler exposes session auth over HTTP. The refresh token lives in
// an http-only cookie; the access token is returned in the response body.
package handler

import (
	"net/http"

	"concierge_backend/internal/auth/service"
	"concierge_backend/internal/auth/transport"
	"concierge_backend/internal/http/response"
	"concierge_backend/platform/config"
	"concierge_backend/platform/httpkit"
	"concierge_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the auth routes.
type Handler struct {
	svc    *service.Service
	cookie config.CookieConfig
	val    *validator.Validator
}

// New creates the auth handler.
func New(svc *service.Service, cookie config.CookieConfig, val *validator.Validator) *Handler {
	return &Handler{svc: svc, cookie: cookie, val: val}
}

// RegisterPublicRoutes mounts login and refresh.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.SignIn)
	rg.POST("/auth/refresh", h.Refresh)
	rg.POST("/auth/logout", h.SignOut)
}

// RegisterProtectedRoutes mounts the authenticated session endpoints.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/me", h.Me)
	rg.POST("/auth/logout-everywhere", h.SignOutEverywhere)
}

// SignIn verifies credentials and starts a session.
func (h *Handler) SignIn(c *gin.Context) {
	var req transport.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	session, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshToken)
	response.OK(c, sessionBody(session))
}

// Refresh rotates the refresh cookie into a new session.
func (h *Handler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(h.cookie.GetRefreshCookieName())
	if err != nil || raw == "" {
		response.Error(c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}

	session, err := h.svc.Refresh(c.Request.Context(), raw)
	if err != nil {
		h.clearRefreshCookie(c)
		response.DomainError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshToken)
	response.OK(c, sessionBody(session))
}

// SignOut revokes the refresh cookie and clears it.
func (h *Handler) SignOut(c *gin.Context) {
	if raw, err := c.Cookie(h.cookie.GetRefreshCookieName()); err == nil && raw != "" {
		if err := h.svc.SignOut(c.Request.Context(), raw); err != nil {
			response.DomainError(c, err)
			return
		}
	}
	h.clearRefreshCookie(c)
	response.OK(c, gin.H{"signedOut": true})
}

// SignOutEverywhere revokes every live session of the caller.
func (h *Handler) SignOutEverywhere(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.svc.SignOutEverywhere(c.Request.Context(), userID); err != nil {
		response.DomainError(c, err)
		return
	}
	h.clearRefreshCookie(c)
	response.OK(c, gin.H{"signedOut": true})
}

// Me returns the authenticated account.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	user, err := h.svc.Me(c.Request.Context(), userID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, transport.UserBody{ID: user.ID, Email: user.Email, Role: user.Role})
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(h.cookie.GetRefreshCookieSameSite())
	c.SetCookie(
		h.cookie.GetRefreshCookieName(),
		token,
		int(h.cookie.GetRefreshTokenTTL().Seconds()),
		h.cookie.GetRefreshCookiePath(),
		h.cookie.GetRefreshCookieDomain(),
		h.cookie.GetRefreshCookieSecure(),
		true,
	)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(h.cookie.GetRefreshCookieSameSite())
	c.SetCookie(
		h.cookie.GetRefreshCookieName(),
		"",
		-1,
		h.cookie.GetRefreshCookiePath(),
		h.cookie.GetRefreshCookieDomain(),
		h.cookie.GetRefreshCookieSecure(),
		true,
	)
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

func sessionBody(s service.Session) transport.SessionResponse {
	return transport.SessionResponse{
		AccessToken:     s.AccessToken,
		AccessExpiresAt: s.AccessExpiresAt,
		User:            transport.UserBody{ID: s.UserID, Email: s.Email, Role: s.Role},
	}
}
