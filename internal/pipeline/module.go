// Package pipeline wires the lead pipeline bounded context: public
// consultation intake, admin review, scheduling, and payment recording.
package pipeline

import (
	internalhttp "concierge_backend/internal/http"
	"concierge_backend/internal/pipeline/handler"
	"concierge_backend/internal/pipeline/repository"
	"concierge_backend/internal/pipeline/service"
	"concierge_backend/internal/regtoken"
	"concierge_backend/platform/config"
	"concierge_backend/platform/events"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pipeline bounded context.
type Module struct {
	service *service.Service
	public  *handler.PublicHandler
	admin   *handler.AdminHandler
}

// New wires the pipeline module.
func New(pool *pgxpool.Pool, tokens *regtoken.Service, bus events.Bus, cfg config.NotificationConfig, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tokens, bus, cfg, log)
	return &Module{
		service: svc,
		public:  handler.NewPublicHandler(svc, val),
		admin:   handler.NewAdminHandler(svc, val),
	}
}

// Name implements http.Module.
func (m *Module) Name() string { return "pipeline" }

// Service exposes the pipeline service to sibling modules.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes implements http.Module. The public booking endpoints get the
// stricter rate limit; everything else lives under the admin group.
func (m *Module) RegisterRoutes(ctx *internalhttp.RouterContext) {
	public := ctx.V1.Group("")
	public.Use(ctx.PublicRateLimiter.RateLimit())
	m.public.RegisterRoutes(public)

	m.admin.RegisterRoutes(ctx.Admin)
}
