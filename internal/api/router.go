// Package api provides the HTTP API for HitchPath.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/handler"
	"github.com/hitchpath/hitchpath/internal/api/middleware"
	"github.com/hitchpath/hitchpath/internal/auth"
	"github.com/hitchpath/hitchpath/internal/chat"
	"github.com/hitchpath/hitchpath/internal/contact"
	"github.com/hitchpath/hitchpath/internal/featureflags"
	"github.com/hitchpath/hitchpath/internal/learning"
	"github.com/hitchpath/hitchpath/internal/provider/resilience"
	"github.com/hitchpath/hitchpath/internal/resume"
	"github.com/hitchpath/hitchpath/internal/user"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics
	CORSOrigins []string
	RequireTLS  bool

	AuthService        *auth.Service
	UserService        *user.Service
	PathService        *learning.PathService
	ProgressService    *learning.ProgressService
	ChatService        *chat.Service
	ResumeService      *resume.Service
	ContactService     *contact.Service
	FeatureFlagService *featureflags.Service

	// Optional, reported on /ops endpoints.
	Database handler.Pinger
	Registry *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing("/ops/health", "/ops/ready"))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	var degradation handler.DegradationFlags
	if cfg.FeatureFlagService != nil {
		degradation = cfg.FeatureFlagService
	}
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Database:  cfg.Database,
		Registry:  cfg.Registry,
		Flags:     degradation,
	})
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	userHandler := handler.NewUserHandler(cfg.UserService, cfg.Logger)
	learningHandler := handler.NewLearningHandler(cfg.PathService, cfg.Logger)
	progressHandler := handler.NewProgressHandler(cfg.ProgressService, cfg.Logger)
	chatHandler := handler.NewChatHandler(cfg.ChatService, cfg.Logger)
	resumeHandler := handler.NewResumeHandler(cfg.ResumeService, cfg.Logger)
	contactHandler := handler.NewContactHandler(cfg.ContactService, cfg.Logger)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.AuthService)

	accountLimit := middleware.AccountLimit.PerIP()
	userLimit := middleware.StandardLimit.PerUser()
	// One bucket per user across every endpoint that calls the LLM.
	generationLimit := middleware.GenerationLimit.PerUser()
	// Serving a stored main path makes no LLM call.
	mainPathLimit := middleware.Unless(func(r *http.Request) bool {
		stored, err := cfg.PathService.HasMainPath(r.Context(), middleware.GetUserID(r.Context()))
		return err == nil && stored
	}, generationLimit)

	// Account endpoints (public) - strict rate limiting
	r.Group(func(r chi.Router) {
		r.Use(accountLimit)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/google-login", authHandler.GoogleLogin)
		r.Post("/api/contact", contactHandler.Submit)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.With(authMiddleware).Post("/logout-all", authHandler.LogoutAll)
		})
	})

	r.Route("/ops", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/ready", opsHandler.ReadinessCheck)
		r.With(authMiddleware, middleware.RequireAdmin).Get("/status", opsHandler.SystemStatus)
	})

	// Authenticated endpoints - user-based rate limiting
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(userLimit)

		r.With(generationLimit).Post("/improve-with-ai", resumeHandler.Improve)

		r.Route("/api", func(r chi.Router) {
			// Profile
			r.Get("/user/profile", userHandler.Profile)
			r.Post("/user/update", userHandler.UpdateProfile)
			r.Get("/user-info/completed", userHandler.ProfileCompleted)

			// Learning paths
			r.With(mainPathLimit).Get("/generate-learning-path", learningHandler.MainPath)
			r.Post("/reset-learning-path", learningHandler.ResetMainPath)
			r.With(generationLimit).Post("/specific-path/generate", learningHandler.CreateSpecificPath)
			r.Get("/specific-paths", learningHandler.ListSpecificPaths)
			r.Get("/specific-paths/{pathId}", learningHandler.GetSpecificPath)
			r.Get("/learning-paths/{pathId}/progress", learningHandler.PathProgress)

			// Progress
			r.Get("/user/progress", progressHandler.GetProgress)
			r.Post("/user/progress", progressHandler.SetStepProgress)
			r.Post("/user/save-resource", progressHandler.SaveResource)
			r.Get("/user/saved-resources", progressHandler.SavedResources)

			// Chat
			r.With(generationLimit).Post("/chatbot", chatHandler.Reply)
			r.Route("/chats", func(r chi.Router) {
				r.Get("/", chatHandler.List)
				r.Post("/", chatHandler.Save)
				r.Get("/{chatId}", chatHandler.Get)
				r.Delete("/{chatId}", chatHandler.Delete)
			})

			// Resume
			r.Post("/save-resume", resumeHandler.Save)
			r.Get("/resume", resumeHandler.Get)
		})
	})

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin)
		r.Use(userLimit)

		r.Route("/feature-flags", func(r chi.Router) {
			r.Get("/", featureFlagsHandler.ListFeatureFlags)
			r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
			r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
		})
	})

	return r
}
