// Package api provides the HTTP API for AirSight.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/airquality"
	"github.com/airsight/airsight/internal/api/handler"
	"github.com/airsight/airsight/internal/api/middleware"
	"github.com/airsight/airsight/internal/geocoding"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/tiles"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version           string
	BuildTime         string
	Logger            zerolog.Logger
	ServiceName       string
	Metrics           *middleware.Metrics
	AirQualityService *airquality.Service
	GeocodingService  *geocoding.Service
	TileSource        handler.TileSource
	TileScheduler     *tiles.Scheduler
	ProviderRegistry  *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "airsight-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.ProviderRegistry)
	locationsHandler := handler.NewLocationsHandler(cfg.GeocodingService)
	airQualityHandler := handler.NewAirQualityHandler(cfg.AirQualityService)
	tilesHandler := handler.NewTilesHandler(cfg.TileSource, cfg.TileScheduler)
	findingsHandler := handler.NewFindingsHandler()

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min
	tileRateLimit := middleware.RateLimitByIP(middleware.TileRateLimit)           // 300 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Geocoding endpoints
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Use(middleware.ContentTypeJSON)
			r.Get("/locations", locationsHandler.Search)
			r.Post("/locations:reverse", locationsHandler.Reverse)
		})

		// Air quality endpoints - upstream lookups, strict rate limiting
		r.Route("/air-quality", func(r chi.Router) {
			r.Use(expensiveRateLimit)
			r.Use(middleware.ContentTypeJSON)
			r.Get("/current", airQualityHandler.Current)
			r.Get("/history", airQualityHandler.History)
			r.Get("/weekly", airQualityHandler.Weekly)
		})

		// Heatmap tile proxy - image responses, viewport fan-out limits
		r.With(tileRateLimit).Get("/tiles/heatmap/{z}/{x}/{y}", tilesHandler.Heatmap)

		// Viewport resolution - computes the visible tile set and warms
		// overlays through the scheduler
		if cfg.TileScheduler != nil {
			viewportHandler := handler.NewViewportHandler(cfg.TileScheduler)
			r.Group(func(r chi.Router) {
				r.Use(expensiveRateLimit)
				r.Use(middleware.ContentTypeJSON)
				r.Get("/tiles/viewport", viewportHandler.Resolve)
			})
		}

		// Research findings (static content)
		r.With(standardRateLimit).Get("/findings", findingsHandler.Get)
	})

	return r
}
