// Package main provides the entrypoint for the AirSight background worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/airquality"
	"github.com/airsight/airsight/internal/airquality/googleair"
	"github.com/airsight/airsight/internal/cache"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/weather"
	"github.com/airsight/airsight/internal/weather/googleweather"
	"github.com/airsight/airsight/internal/weather/openmeteo"
	"github.com/airsight/airsight/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airsight-worker"

	// Load .env in local development; ignored when absent.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AirSight worker")

	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	googleAPIKey := os.Getenv("GOOGLE_API_KEY")
	if googleAPIKey == "" {
		log.Warn().Msg("GOOGLE_API_KEY not set - Google provider calls will fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := cache.New(cache.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache")
	}

	// Resilient HTTP clients, one circuit breaker per upstream
	airClient := resilience.NewClient(resilience.DefaultClientConfig(googleair.ProviderName))
	weatherClient := resilience.NewClient(resilience.DefaultClientConfig(googleweather.ProviderName))
	meteoClient := resilience.NewClient(resilience.DefaultClientConfig(openmeteo.ProviderName))

	airProvider := googleair.NewClient(googleair.ClientConfig{
		APIKey:     googleAPIKey,
		HTTPClient: airClient,
	})

	weatherService := weather.NewService(weather.ServiceConfig{
		Primary: googleweather.NewClient(googleweather.ClientConfig{
			APIKey:     googleAPIKey,
			HTTPClient: weatherClient,
		}),
		Secondary: openmeteo.NewClient(openmeteo.ClientConfig{
			HTTPClient: meteoClient,
		}),
		Logger: log,
	})

	airService := airquality.NewService(airquality.ServiceConfig{
		Provider: airProvider,
		Weather:  weatherService,
		Cache:    store,
		Logger:   log,
	})

	prewarmJob := worker.NewPrewarmJob(worker.PrewarmJobConfig{
		Config:            prewarmConfigFromEnv(),
		Logger:            log,
		AirQualityService: airService,
	})

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Pub/Sub triggered jobs, if configured. Falls back to the ticker loop
	// alone when no subscription is set (local development).
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID != "" && subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			PrewarmJob:       prewarmJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Info().Msg("pubsub not configured - running on interval only")
	}

	// Interval prewarm loop
	interval := prewarmInterval()
	go func() {
		log.Info().Dur("interval", interval).Msg("prewarm loop started")

		// Warm caches immediately on startup, then on the interval.
		runPrewarm(ctx, prewarmJob, log)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runPrewarm(ctx, prewarmJob, log)
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func runPrewarm(ctx context.Context, job *worker.PrewarmJob, log zerolog.Logger) {
	result := job.Run(ctx)
	log.Info().
		Int("total", result.TotalPoints).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("prewarm run finished")
}

func prewarmConfigFromEnv() worker.PrewarmConfig {
	cfg := worker.DefaultPrewarmConfig()

	if v := os.Getenv("PREWARM_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("PREWARM_HISTORY_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryHours = n
		}
	}
	if os.Getenv("PREWARM_HISTORY") == "false" {
		cfg.PrewarmHistory = false
	}
	return cfg
}

func prewarmInterval() time.Duration {
	if v := os.Getenv("PREWARM_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return 10 * time.Minute
}
