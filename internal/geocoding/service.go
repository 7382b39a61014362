package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/cache"
	"github.com/airsight/airsight/pkg/mercator"
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Provider is the upstream geocoder.
	Provider Provider

	// Cache avoids repeated upstream calls (optional).
	Cache cache.Store

	// Logger for service operations.
	Logger zerolog.Logger

	// SearchTTL is how long search results stay cached (default: 10 minutes).
	SearchTTL time.Duration

	// ReverseTTL is how long reverse-geocode results stay cached
	// (default: 10 minutes). Both TTLs are deliberately configurable so
	// neither lookup class is cached forever.
	ReverseTTL time.Duration
}

// Service provides cached geocoding lookups.
type Service struct {
	provider   Provider
	cache      cache.Store
	logger     zerolog.Logger
	searchTTL  time.Duration
	reverseTTL time.Duration
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	searchTTL := cfg.SearchTTL
	if searchTTL == 0 {
		searchTTL = 10 * time.Minute
	}
	reverseTTL := cfg.ReverseTTL
	if reverseTTL == 0 {
		reverseTTL = 10 * time.Minute
	}

	return &Service{
		provider:   cfg.Provider,
		cache:      cfg.Cache,
		logger:     cfg.Logger,
		searchTTL:  searchTTL,
		reverseTTL: reverseTTL,
	}
}

// Search resolves a free-text query into candidate locations.
func (s *Service) Search(ctx context.Context, query string) ([]Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	key := "geo:q:" + strings.ToLower(query)
	if cached, ok := s.cacheGet(key); ok {
		var locations []Location
		if err := json.Unmarshal(cached, &locations); err == nil {
			return locations, nil
		}
	}

	locations, err := s.provider.Search(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("geocoding search failed")
		return nil, ErrProviderUnavailable
	}

	s.cacheSet(key, locations, s.searchTTL)

	return locations, nil
}

// ReverseGeocode resolves a point into the nearest named location.
func (s *Service) ReverseGeocode(ctx context.Context, point mercator.Point) (*Location, error) {
	if point.Lat < -90 || point.Lat > 90 || point.Lng < -180 || point.Lng > 180 {
		return nil, ErrInvalidCoordinates
	}

	key := fmt.Sprintf("geo:rev:%.3f:%.3f", point.Lat, point.Lng)
	if cached, ok := s.cacheGet(key); ok {
		var location Location
		if err := json.Unmarshal(cached, &location); err == nil {
			return &location, nil
		}
	}

	location, err := s.provider.ReverseGeocode(ctx, point)
	if err != nil {
		if err == ErrNoResult {
			return nil, err
		}
		s.logger.Error().
			Err(err).
			Float64("lat", point.Lat).
			Float64("lng", point.Lng).
			Msg("reverse geocode failed")
		return nil, ErrProviderUnavailable
	}

	s.cacheSet(key, location, s.reverseTTL)

	return location, nil
}

func (s *Service) cacheGet(key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Service) cacheSet(key string, v any, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.cache.Set(key, data, ttl)
}
