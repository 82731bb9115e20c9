// Package auth wires session authentication: login, refresh rotation, and
// sign-out.
package auth

import (
	"concierge_backend/internal/auth/handler"
	"concierge_backend/internal/auth/repository"
	"concierge_backend/internal/auth/service"
	internalhttp "concierge_backend/internal/http"
	"concierge_backend/platform/config"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the combined configuration surface the auth module needs.
type Config interface {
	config.AuthServiceConfig
	config.CookieConfig
}

// Module is the auth bounded context.
type Module struct {
	repo    *repository.Repository
	service *service.Service
	handler *handler.Handler
}

// New wires the auth module.
func New(pool *pgxpool.Pool, cfg Config, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	return &Module{
		repo:    repo,
		service: svc,
		handler: handler.New(svc, cfg, val),
	}
}

// Name implements http.Module.
func (m *Module) Name() string { return "auth" }

// Repository exposes the auth store to maintenance jobs.
func (m *Module) Repository() *repository.Repository { return m.repo }

// RegisterRoutes implements http.Module. Login and refresh sit behind the
// stricter public rate limit.
func (m *Module) RegisterRoutes(ctx *internalhttp.RouterContext) {
	public := ctx.V1.Group("")
	public.Use(ctx.PublicRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(public)

	m.handler.RegisterProtectedRoutes(ctx.Protected)
}
