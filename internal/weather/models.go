// Package weather provides ambient-weather backfill for air quality payloads
// that did not carry temperature, humidity or wind data.
package weather

import (
	"context"
	"errors"
)

// ErrProviderUnavailable is returned when a weather provider's HTTP call
// failed or returned a non-success status.
var ErrProviderUnavailable = errors.New("weather provider unavailable")

// Observation holds current weather for a point. Fields are nil when the
// provider did not report them; absence and zero are different things here.
type Observation struct {
	Temperature *float64
	Humidity    *float64
	WindSpeed   *float64
	FeelsLike   *float64
}

// Provider defines the interface for weather data providers.
type Provider interface {
	// Current fetches current weather for a location.
	Current(ctx context.Context, lat, lng float64) (*Observation, error)

	// Name returns the provider name for logging.
	Name() string
}
