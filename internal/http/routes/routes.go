// Package routes wires the HTTP surface onto a chi router.
package routes

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/lobisloby/privacyfill/internal/config"
	"github.com/lobisloby/privacyfill/internal/http/handlers"
	"github.com/lobisloby/privacyfill/internal/service"
)

// New builds the router. Route shapes and status codes are part of the
// extension client contract and must not change without versioning.
func New(cfg *config.Config, services *service.Services, logger *slog.Logger) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Signature"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Global rate limit by IP
	router.Use(httprate.LimitByIP(100, time.Minute))

	// Global concurrency throttle
	router.Use(middleware.Throttle(100))

	// Wrong method / unknown route still answer on the envelope
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	userHandler := handlers.NewUserHandler(services.Ledger, logger)
	subHandler := handlers.NewSubscriptionHandler(services.Ledger, logger)
	webhookHandler := handlers.NewWebhookHandler(cfg.LemonSqueezyWebhookSecret, services.Subscription, logger)

	router.Get("/health", handlers.HealthCheck)
	router.Post("/registerUser", userHandler.Register)
	router.Get("/getUser", userHandler.GetUser)
	router.Get("/getSubscriptionStatus", subHandler.GetStatus)
	router.Post("/trackUsage", subHandler.TrackUsage)
	router.Post("/lemonSqueezyWebhook", webhookHandler.HandleWebhook)

	return router
}
