// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"concierge_backend/platform/config"
	"concierge_backend/platform/events"
	"concierge_backend/platform/logger"
)

// RouterConfig is the slice of application config the router needs.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker answers readiness probes, typically backed by a DB ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App carries the wired application dependencies from the composition root
// into the router. Every HTTP-facing module registers through Modules.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
