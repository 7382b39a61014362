package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/cache"
)

// MaxHistoryHours is the provider's history depth limit.
const MaxHistoryHours = 720

// Provider defines the upstream air quality data source.
type Provider interface {
	// CurrentConditions fetches the raw current-conditions payload for a
	// location. The payload shape is provider specific; it is normalized
	// by this package.
	CurrentConditions(ctx context.Context, lat, lng float64) ([]byte, error)

	// History fetches up to hours of hourly AQI records, oldest first.
	History(ctx context.Context, lat, lng float64, hours int) ([]HourlyRecord, error)
}

// WeatherBackfiller fills weather fields a payload did not carry. It must
// only write fields that are still nil and must never fail the caller.
type WeatherBackfiller interface {
	Backfill(ctx context.Context, n *Normalized, lat, lng float64)
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the air quality data provider.
	Provider Provider

	// Weather backfills missing ambient-weather fields (optional).
	Weather WeatherBackfiller

	// Cache avoids repeated upstream calls for identical coordinates
	// (optional).
	Cache cache.Store

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long lookups stay cached (default: 10 minutes).
	CacheTTL time.Duration
}

// Service provides normalized air quality data with caching.
type Service struct {
	provider Provider
	weather  WeatherBackfiller
	cache    cache.Store
	logger   zerolog.Logger
	cacheTTL time.Duration
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	return &Service{
		provider: cfg.Provider,
		weather:  cfg.Weather,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
	}
}

// Current returns normalized current conditions for a location, backfilling
// weather fields the provider payload did not carry.
func (s *Service) Current(ctx context.Context, lat, lng float64) (*Normalized, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("aq:cur:%.3f:%.3f", lat, lng)
	if cached, ok := s.cacheGet(key); ok {
		var n Normalized
		if err := json.Unmarshal(cached, &n); err == nil {
			return &n, nil
		}
	}

	raw, err := s.provider.CurrentConditions(ctx, lat, lng)
	if err != nil {
		s.logger.Error().
			Err(err).
			Float64("lat", lat).
			Float64("lng", lng).
			Msg("current conditions lookup failed")
		return nil, ErrProviderUnavailable
	}

	n := Normalize(raw)
	if allReadingsEmpty(n) {
		s.logger.Warn().
			Float64("lat", lat).
			Float64("lng", lng).
			Msg("no pollutant readings extracted, raw payload retained")
	}

	if s.weather != nil && !n.HasWeather() {
		s.weather.Backfill(ctx, n, lat, lng)
	}

	s.cacheSet(key, n)

	return n, nil
}

// History returns hourly AQI records for the last hours hours, oldest first.
// Hours are clamped to [1, MaxHistoryHours]; non-positive values default to 24.
func (s *Service) History(ctx context.Context, lat, lng float64, hours int) ([]HourlyRecord, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	if hours <= 0 {
		hours = 24
	}
	if hours > MaxHistoryHours {
		hours = MaxHistoryHours
	}

	key := fmt.Sprintf("aq:hist:%.3f:%.3f:%d", lat, lng, hours)
	if cached, ok := s.cacheGet(key); ok {
		var records []HourlyRecord
		if err := json.Unmarshal(cached, &records); err == nil {
			return records, nil
		}
	}

	records, err := s.provider.History(ctx, lat, lng, hours)
	if err != nil {
		s.logger.Error().
			Err(err).
			Float64("lat", lat).
			Float64("lng", lng).
			Int("hours", hours).
			Msg("history lookup failed")
		return nil, ErrProviderUnavailable
	}

	s.cacheSet(key, records)

	return records, nil
}

// WeeklyAverages returns per-day mean AQI over the last 7 days, derived from
// 168 hours of history grouped by UTC day.
func (s *Service) WeeklyAverages(ctx context.Context, lat, lng float64) ([]DailyAverage, error) {
	records, err := s.History(ctx, lat, lng, 168)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		sum   int
		count int
	}
	groups := make(map[string]*bucket)
	var order []string
	for _, r := range records {
		// An hour whose payload carried no index parses to 0; letting it
		// into the mean would drag the day toward zero.
		if r.AQI == 0 {
			continue
		}
		day := r.Time.UTC().Format("2006-01-02")
		b, ok := groups[day]
		if !ok {
			b = &bucket{}
			groups[day] = b
			order = append(order, day)
		}
		b.sum += r.AQI
		b.count++
	}

	averages := make([]DailyAverage, 0, len(order))
	for _, day := range order {
		b := groups[day]
		t, _ := time.Parse("2006-01-02", day)
		averages = append(averages, DailyAverage{
			Day: t.Format("Mon"),
			AQI: int(float64(b.sum)/float64(b.count) + 0.5),
		})
	}

	if len(averages) > 7 {
		averages = averages[len(averages)-7:]
	}
	return averages, nil
}

func (s *Service) cacheGet(key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Service) cacheSet(key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.cache.Set(key, data, s.cacheTTL)
}

func allReadingsEmpty(n *Normalized) bool {
	for _, r := range n.Pollutants {
		if r.Value != nil {
			return false
		}
	}
	return true
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
