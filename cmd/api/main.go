// Package main provides the entrypoint for the AirSight API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/airquality"
	"github.com/airsight/airsight/internal/airquality/googleair"
	"github.com/airsight/airsight/internal/api"
	"github.com/airsight/airsight/internal/api/middleware"
	"github.com/airsight/airsight/internal/cache"
	"github.com/airsight/airsight/internal/geocoding"
	"github.com/airsight/airsight/internal/geocoding/googlegeo"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/telemetry"
	"github.com/airsight/airsight/internal/tiles"
	"github.com/airsight/airsight/internal/weather"
	"github.com/airsight/airsight/internal/weather/googleweather"
	"github.com/airsight/airsight/internal/weather/openmeteo"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airsight-api"

	// Load .env in local development; ignored when absent.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AirSight API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	googleAPIKey := os.Getenv("GOOGLE_API_KEY")
	if googleAPIKey == "" {
		log.Warn().Msg("GOOGLE_API_KEY not set - Google provider calls will fail")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Initialize the shared response cache
	store, err := cache.New(cache.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache")
	}
	log.Info().Msg("response cache initialized")

	// Resilient HTTP clients, one circuit breaker per upstream
	registry := resilience.NewRegistry()

	airClient := resilience.NewClient(resilience.DefaultClientConfig(googleair.ProviderName))
	registry.Register(googleair.ProviderName, airClient)

	geoClient := resilience.NewClient(resilience.DefaultClientConfig(googlegeo.ProviderName))
	registry.Register(googlegeo.ProviderName, geoClient)

	weatherClient := resilience.NewClient(resilience.DefaultClientConfig(googleweather.ProviderName))
	registry.Register(googleweather.ProviderName, weatherClient)

	meteoClient := resilience.NewClient(resilience.DefaultClientConfig(openmeteo.ProviderName))
	registry.Register(openmeteo.ProviderName, meteoClient)

	// Initialize upstream providers
	airProvider := googleair.NewClient(googleair.ClientConfig{
		APIKey:     googleAPIKey,
		HTTPClient: airClient,
	})

	geoProvider := googlegeo.NewClient(googlegeo.ClientConfig{
		APIKey:     googleAPIKey,
		HTTPClient: geoClient,
	})

	weatherPrimary := googleweather.NewClient(googleweather.ClientConfig{
		APIKey:     googleAPIKey,
		HTTPClient: weatherClient,
	})

	weatherSecondary := openmeteo.NewClient(openmeteo.ClientConfig{
		HTTPClient: meteoClient,
	})

	// Initialize services
	weatherService := weather.NewService(weather.ServiceConfig{
		Primary:   weatherPrimary,
		Secondary: weatherSecondary,
		Logger:    log,
	})
	log.Info().Msg("weather service initialized")

	airService := airquality.NewService(airquality.ServiceConfig{
		Provider: airProvider,
		Weather:  weatherService,
		Cache:    store,
		Logger:   log,
	})
	log.Info().Msg("air quality service initialized")

	geoService := geocoding.NewService(geocoding.ServiceConfig{
		Provider: geoProvider,
		Cache:    store,
		Logger:   log,
	})
	log.Info().Msg("geocoding service initialized")

	// Tile scheduler backing the viewport endpoint; the heatmap proxy serves
	// overlays it has already resolved without re-fetching them.
	tileScheduler := tiles.NewScheduler(tiles.Config{
		Source: airProvider,
		Logger: log,
	})
	defer tileScheduler.Close()
	log.Info().Msg("tile scheduler initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:           Version,
		BuildTime:         BuildTime,
		Logger:            log,
		ServiceName:       serviceName,
		Metrics:           metrics,
		AirQualityService: airService,
		GeocodingService:  geoService,
		TileSource:        airProvider,
		TileScheduler:     tileScheduler,
		ProviderRegistry:  registry,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
