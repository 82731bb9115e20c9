package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concierge_backend/internal/auth/repository"
	"concierge_backend/internal/email"
	"concierge_backend/internal/scheduler"
	"concierge_backend/platform/config"
	"concierge_backend/platform/db"
	"concierge_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const refreshTokenCleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	sender := email.NewSender(cfg, log)

	go runRefreshTokenCleanup(ctx, repository.New(pool), log)

	worker, err := scheduler.NewWorker(cfg, sender, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

// runRefreshTokenCleanup periodically prunes expired and revoked refresh
// tokens so the sessions table does not grow without bound.
func runRefreshTokenCleanup(ctx context.Context, repo *repository.Repository, log *logger.Logger) {
	ticker := time.NewTicker(refreshTokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		removed, err := repo.DeleteExpired(ctx, time.Now())
		if err != nil {
			log.Warn("refresh token cleanup failed", "error", err)
			continue
		}
		if removed > 0 {
			log.Info("expired refresh tokens removed", "count", removed)
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
