// Package main provides the entrypoint for the HitchPath background worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/config"
	"github.com/hitchpath/hitchpath/internal/database"
	"github.com/hitchpath/hitchpath/internal/featureflags"
	"github.com/hitchpath/hitchpath/internal/learning"
	"github.com/hitchpath/hitchpath/internal/llm/mistral"
	"github.com/hitchpath/hitchpath/internal/lock"
	"github.com/hitchpath/hitchpath/internal/pathgen"
	"github.com/hitchpath/hitchpath/internal/provider/resilience"
	"github.com/hitchpath/hitchpath/internal/telemetry"
	"github.com/hitchpath/hitchpath/internal/user"
	"github.com/hitchpath/hitchpath/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "hitchpath-worker"

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.App.NewLogger(serviceName, Version)
	log.Info().Str("build_time", BuildTime).Msg("starting HitchPath worker")

	if !cfg.PubSub.Enabled() {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Secure:         cfg.Telemetry.Secure,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DB.Database())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	registry := resilience.NewRegistry()
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewPostgresRepository(pool),
		Logger:     log,
		CacheTTL:   time.Minute,
	})

	genMetrics, err := pathgen.NewMetrics(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize generation metrics")
	}
	gateway := pathgen.New(pathgen.Config{
		Oracle: mistral.NewClient(mistral.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			Timeout:  cfg.LLM.Timeout,
			Registry: registry,
			Logger:   log,
		}),
		Flags:    flags,
		Recorder: genMetrics,
		Logger:   log,
	})

	var locker lock.Locker = lock.Noop{}
	if cfg.Redis.Enabled() {
		rdb, err := lock.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, lock.WithTTL(cfg.Redis.LockTTL))
	}

	users := user.NewPostgresRepository(pool)
	paths := learning.NewPathService(learning.PathServiceConfig{
		Store:     learning.NewPostgresStore(pool),
		Users:     users,
		Generator: gateway,
		Locker:    locker,
		Logger:    log,

		GenerationTimeout: cfg.LLM.Timeout,
	})

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.PubSub.ProjectID,
		SubscriptionName: cfg.PubSub.Subscription,
		Processor:        worker.NewProcessor(paths, registry, log),
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer handler.Close()

	// Cloud Run needs a listening port even for push-less workers.
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "healthy", "version": Version})
	})
	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("pubsub receive stopped")
	}

	log.Info().Msg("shutting down worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
	log.Info().Msg("worker stopped")
}
