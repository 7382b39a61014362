package weather

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/airquality"
)

// ServiceConfig holds configuration for the weather backfill service.
type ServiceConfig struct {
	// Primary is tried first for every backfill.
	Primary Provider

	// Secondary is tried when the primary call fails (optional).
	Secondary Provider

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service backfills weather fields on normalized air quality data using a
// primary provider with a secondary fallback.
type Service struct {
	primary   Provider
	secondary Provider
	logger    zerolog.Logger
}

// NewService creates a new weather backfill service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		logger:    cfg.Logger,
	}
}

// Backfill fills weather fields that are still nil on n. Provider failures
// are logged and swallowed; a lookup that yields nothing leaves n unchanged.
func (s *Service) Backfill(ctx context.Context, n *airquality.Normalized, lat, lng float64) {
	if s.primary == nil {
		return
	}

	obs, err := s.primary.Current(ctx, lat, lng)
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("provider", s.primary.Name()).
			Msg("primary weather lookup failed")

		if s.secondary == nil {
			return
		}
		obs, err = s.secondary.Current(ctx, lat, lng)
		if err != nil {
			s.logger.Debug().
				Err(err).
				Str("provider", s.secondary.Name()).
				Msg("fallback weather lookup failed")
			return
		}
	}

	apply(n, obs)
}

// apply copies observation fields into still-undefined slots only.
func apply(n *airquality.Normalized, obs *Observation) {
	if obs == nil {
		return
	}
	if n.Temperature == nil && obs.Temperature != nil {
		n.Temperature = obs.Temperature
	}
	if n.Humidity == nil && obs.Humidity != nil {
		n.Humidity = obs.Humidity
	}
	if n.WindSpeed == nil && obs.WindSpeed != nil {
		n.WindSpeed = obs.WindSpeed
	}
	if n.FeelsLike == nil && obs.FeelsLike != nil {
		n.FeelsLike = obs.FeelsLike
	}
}
