// Package main provides the entrypoint for the HitchPath API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitchpath/hitchpath/internal/api"
	"github.com/hitchpath/hitchpath/internal/api/middleware"
	"github.com/hitchpath/hitchpath/internal/auth"
	"github.com/hitchpath/hitchpath/internal/chat"
	"github.com/hitchpath/hitchpath/internal/config"
	"github.com/hitchpath/hitchpath/internal/contact"
	"github.com/hitchpath/hitchpath/internal/database"
	"github.com/hitchpath/hitchpath/internal/events"
	"github.com/hitchpath/hitchpath/internal/featureflags"
	"github.com/hitchpath/hitchpath/internal/learning"
	"github.com/hitchpath/hitchpath/internal/llm/mistral"
	"github.com/hitchpath/hitchpath/internal/lock"
	"github.com/hitchpath/hitchpath/internal/pathgen"
	"github.com/hitchpath/hitchpath/internal/provider/resilience"
	"github.com/hitchpath/hitchpath/internal/resume"
	"github.com/hitchpath/hitchpath/internal/telemetry"
	"github.com/hitchpath/hitchpath/internal/user"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const devSigningKey = "local-dev-signing-key-change-in-production"

func main() {
	const serviceName = "hitchpath-api"

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.App.NewLogger(serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting HitchPath API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
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

	metrics, err := middleware.NewMetrics(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	genMetrics, err := pathgen.NewMetrics(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize generation metrics")
	}

	// Connect to database
	dbConfig := cfg.DB.Database()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	registry := resilience.NewRegistry()

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewPostgresRepository(pool),
		Logger:     log,
		CacheTTL:   time.Minute,
	})

	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("MISTRAL_API_KEY not set - generation and chat requests will fail")
	}
	oracle := mistral.NewClient(mistral.Config{
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
		Registry: registry,
		Logger:   log,
	})
	gateway := pathgen.New(pathgen.Config{
		Oracle:   oracle,
		Flags:    flags,
		Recorder: genMetrics,
		Logger:   log,
	})

	// Users and auth
	users := user.NewPostgresRepository(pool)
	userService := user.NewService(users)

	signingKey := cfg.JWT.SigningKey
	if signingKey == "" {
		signingKey = devSigningKey
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: signingKey,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		AccessTTL:  cfg.JWT.AccessTTL,
	})

	var google auth.IdentityVerifier
	if cfg.Google.ClientID != "" {
		google = auth.NewGoogleVerifier(auth.GoogleConfig{
			ClientID: cfg.Google.ClientID,
			Registry: registry,
			Logger:   log,
		})
		log.Info().Msg("Google sign-in verifier initialized")
	} else {
		log.Warn().Msg("GOOGLE_CLIENT_ID not set - Google sign-in disabled")
	}

	authService := auth.NewService(auth.ServiceConfig{
		JWTService:  jwtService,
		Users:       users,
		RefreshRepo: auth.NewPostgresRefreshTokenRepository(pool),
		Google:      google,
		Logger:      log,
	})

	// Learning paths
	var locker lock.Locker = lock.Noop{}
	if cfg.Redis.Enabled() {
		rdb, err := lock.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, lock.WithTTL(cfg.Redis.LockTTL))
		log.Info().Msg("redis generation lock enabled")
	}

	store := learning.NewPostgresStore(pool)
	paths := learning.NewPathService(learning.PathServiceConfig{
		Store:     store,
		Users:     users,
		Generator: gateway,
		Locker:    locker,
		Logger:    log,

		GenerationTimeout: cfg.LLM.Timeout,
	})
	progress := learning.NewProgressService(store)

	if cfg.PubSub.Enabled() {
		publisher, err := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create job publisher")
		}
		defer publisher.Close()

		pregen := learning.NewPregenerator(store, publisher, flags.PregenerateMainPath, log)
		userService.OnProfileCompleted(pregen.ProfileCompleted)
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("main path pre-generation enabled")
	}

	chatService := chat.NewService(chat.Config{
		Repo:   chat.NewPostgresRepository(pool),
		Oracle: oracle,
		Users:  users,
		Flags:  flags,
		Logger: log,
	})
	resumeService := resume.NewService(resume.Config{
		Repo:   resume.NewPostgresRepository(pool),
		Users:  users,
		Oracle: oracle,
		Flags:  flags,
		Logger: log,
	})
	contactService := contact.NewService(contact.NewPostgresRepository(pool), log)

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		Metrics:            metrics,
		CORSOrigins:        cfg.App.AllowedOrigins,
		RequireTLS:         cfg.App.RequireTLS,
		AuthService:        authService,
		UserService:        userService,
		PathService:        paths,
		ProgressService:    progress,
		ChatService:        chatService,
		ResumeService:      resumeService,
		ContactService:     contactService,
		FeatureFlagService: flags,
		Database:           pool,
		Registry:           registry,
	})

	// Generation requests wait on the LLM, so writes outlive its timeout.
	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.LLM.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}
