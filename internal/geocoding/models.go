// Package geocoding provides location search and reverse geocoding with
// configurable caching in front of an upstream geocoder.
package geocoding

import (
	"context"
	"errors"

	"github.com/airsight/airsight/pkg/mercator"
)

// Geocoding errors.
var (
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
	ErrNoResult            = errors.New("no geocoding result")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Location is a resolved place.
type Location struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Country     string         `json:"country"`
	Coordinates mercator.Point `json:"coordinates"`
}

// Provider defines the upstream geocoder.
type Provider interface {
	// Search resolves a free-text query into candidate locations.
	Search(ctx context.Context, query string) ([]Location, error)

	// ReverseGeocode resolves a point into the nearest named location.
	ReverseGeocode(ctx context.Context, point mercator.Point) (*Location, error)
}
