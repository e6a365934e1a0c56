package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/api/handlers"
	appMiddleware "github.com/gichigi/choir/internal/api/middlewares"
	"github.com/gichigi/choir/internal/api/respond"
	"github.com/gichigi/choir/internal/config"
	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/services"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Accounts      *services.AccountService
	Onboarding    *services.OnboardingService
	Voices        *services.BrandVoiceService
	Content       *services.ContentService
	Subscriptions *services.SubscriptionService
	Extractor     core.DocumentExtractor
	// Limiter may be nil, which disables rate limiting.
	Limiter core.RateLimiter
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewRouter builds and wires all routes.
func NewRouter(cfg *config.Config, svc Services, log *zap.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(svc.Accounts, svc.Subscriptions, log.Named("auth"))
	onboardingHandler := handlers.NewOnboardingHandler(svc.Onboarding, log.Named("onboarding"))
	docHandler := handlers.NewDocumentHandler(svc.Extractor, log.Named("documents"))
	voiceHandler := handlers.NewBrandVoiceHandler(svc.Voices, log.Named("brand_voice"))
	contentHandler := handlers.NewContentHandler(svc.Content, log.Named("content"))
	billingHandler := handlers.NewBillingHandler(svc.Subscriptions, log.Named("billing"))
	dashboardHandler := handlers.NewDashboardHandler(svc.Voices, svc.Content, log.Named("dashboard"))

	entitled := appMiddleware.RequireEntitlement(svc.Subscriptions, cfg.BillingPath, log)
	limited := appMiddleware.RateLimit(svc.Limiter, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appMiddleware.RequestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.GenerationTimeout + 15*time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.SignatureHeader},
		AllowCredentials: true,
	}))
	r.Use(appMiddleware.Identify(cfg.JWTSecret, log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/dashboard", func(dash chi.Router) {
		dash.Use(appMiddleware.DashboardGate(svc.Subscriptions, cfg.SignInPath, cfg.BillingPath, log))
		dash.Get("/", dashboardHandler.Summary)
		dash.Get("/*", dashboardHandler.Summary)
	})

	// API routes
	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)
		api.Put("/onboarding/session/{sessionId}", onboardingHandler.PutSession)
		api.Get("/onboarding/session/{sessionId}", onboardingHandler.GetSession)
		api.With(limited).Post("/onboarding/document", docHandler.ImportDocument)
		api.Post("/billing/webhook", billingHandler.Webhook)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.RequireAccount)
			protected.Get("/me", authHandler.Me)

			protected.Put("/onboarding", onboardingHandler.PutAccount)
			protected.Get("/onboarding", onboardingHandler.GetAccount)
			protected.Get("/onboarding/drafts/{id}", onboardingHandler.GetByID)

			protected.Get("/brand-voice", voiceHandler.Get)
			protected.Patch("/brand-voice/{id}", voiceHandler.Update)
			protected.Delete("/brand-voice/{id}", voiceHandler.Delete)

			protected.Get("/content", contentHandler.List)
			protected.Get("/content/metadata", contentHandler.Metadata)
			protected.Get("/content/{id}", contentHandler.Get)
			protected.Patch("/content/{id}", contentHandler.Update)
			protected.Delete("/content/{id}", contentHandler.Delete)
			protected.Post("/content/{id}/export", contentHandler.Export)
			protected.Get("/content/{id}/export", contentHandler.DownloadExport)

			protected.Get("/billing/status", billingHandler.Status)
		})

		// endpoints that need an active subscription
		api.Group(func(paid chi.Router) {
			paid.Use(entitled)
			paid.Post("/brand-voice", voiceHandler.Create)
			paid.Post("/content", contentHandler.Create)

			paid.With(limited).Post("/brand-voice/generate", voiceHandler.Generate)
			paid.With(limited).Post("/brand-voice/regenerate", voiceHandler.Regenerate)
			paid.With(limited).Post("/content/generate", contentHandler.Generate)
		})
	})

	return r
}

func NewServer(cfg *config.Config, svc Services, log *zap.Logger) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, svc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
