// Package clients wires the clients bounded context: registration redemption,
// profile management, and the onboarding review gate.
package clients

import (
	"concierge_backend/internal/adapters/storage"
	"concierge_backend/internal/clients/handler"
	"concierge_backend/internal/clients/repository"
	"concierge_backend/internal/clients/service"
	internalhttp "concierge_backend/internal/http"
	"concierge_backend/internal/regtoken"
	"concierge_backend/platform/config"
	"concierge_backend/platform/events"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context.
type Module struct {
	service *service.Service
	handler *handler.Handler
	storage storage.Service
}

// New wires the clients module. The storage service may be nil when object
// storage is not configured; the upload endpoints are then not mounted.
func New(pool *pgxpool.Pool, tokens *regtoken.Service, bus events.Bus, cfg config.OnboardingConfig, store storage.Service, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tokens, bus, cfg, log)
	return &Module{
		service: svc,
		handler: handler.New(svc, val, store),
		storage: store,
	}
}

// Name implements http.Module.
func (m *Module) Name() string { return "clients" }

// Service exposes the client service to sibling modules.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes implements http.Module.
func (m *Module) RegisterRoutes(ctx *internalhttp.RouterContext) {
	public := ctx.V1.Group("")
	public.Use(ctx.PublicRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(public)

	m.handler.RegisterClientRoutes(ctx.Protected)
	if m.storage != nil {
		m.handler.RegisterUploadRoutes(ctx.Protected)
	}
	m.handler.RegisterAdminRoutes(ctx.Admin)
}
