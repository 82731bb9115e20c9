package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concierge_backend/internal/adapters/storage"
	"concierge_backend/internal/auth"
	"concierge_backend/internal/clients"
	"concierge_backend/internal/email"
	"concierge_backend/internal/events"
	apphttp "concierge_backend/internal/http"
	"concierge_backend/internal/http/router"
	"concierge_backend/internal/notification"
	"concierge_backend/internal/pipeline"
	"concierge_backend/internal/regtoken"
	"concierge_backend/internal/scheduler"
	"concierge_backend/platform/config"
	"concierge_backend/platform/db"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg, log)
	val := validator.New()

	// Email dispatch goes through the Redis queue when configured, otherwise
	// straight to the sender on a detached goroutine.
	emailQueue, closeQueue := initEmailQueue(cfg, sender, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// Object storage for resumes and profile photos. Optional: without MinIO
	// the upload endpoints are simply not mounted.
	var storageSvc storage.Service
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure storage buckets", 5, 2*time.Second, func() error {
			return minioSvc.EnsureBuckets(ctx)
		}); err != nil {
			log.Error("failed to ensure storage buckets exist", "error", err)
			panic("failed to ensure storage buckets exist: " + err.Error())
		}
		storageSvc = minioSvc
		log.Info("storage service initialized",
			"resumesBucket", cfg.GetMinioBucketResumes(),
			"profilePhotosBucket", cfg.GetMinioBucketProfilePhotos(),
		)
	} else {
		log.Warn("MinIO not configured; profile file uploads disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(emailQueue, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	tokens := regtoken.New(cfg)
	authModule := auth.New(pool, cfg, log, val)
	pipelineModule := pipeline.New(pool, tokens, eventBus, cfg, log, val)
	clientsModule := clients.New(pool, tokens, eventBus, cfg, storageSvc, log, val)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			pipelineModule,
			clientsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initEmailQueue(cfg *config.Config, sender email.Sender, log *logger.Logger) (notification.Queue, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; sending email in-process")
		return notification.InlineQueue{Sender: sender, Log: log}, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client, sending email in-process", "error", err)
		return notification.InlineQueue{Sender: sender, Log: log}, nil
	}

	return client, func() {
		_ = client.Close()
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
