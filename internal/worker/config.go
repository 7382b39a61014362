// Package worker provides background cache-prewarm processing for AirSight.
package worker

import (
	"sort"
	"time"
)

// PrewarmTarget represents a geographic region whose caches are kept warm.
type PrewarmTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the lat/lng coordinates to prewarm. Typically the map's
	// default city markers.
	Points []Point

	// Priority determines prewarm order (lower = higher priority).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// PrewarmConfig holds configuration for the cache-prewarm job.
type PrewarmConfig struct {
	// Targets are the geographic regions to prewarm.
	// If empty, uses DefaultPrewarmTargets.
	Targets []PrewarmTarget

	// Concurrency is the number of concurrent prewarm operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each point's lookups.
	// Default: 30 seconds
	Timeout time.Duration

	// PrewarmCurrent enables current-conditions prewarming.
	// Default: true
	PrewarmCurrent bool

	// PrewarmHistory enables hourly-history prewarming.
	// Default: true
	PrewarmHistory bool

	// HistoryHours is how much history each point prewarms.
	// Default: 24
	HistoryHours int
}

// DefaultPrewarmConfig returns the default prewarm configuration.
func DefaultPrewarmConfig() PrewarmConfig {
	return PrewarmConfig{
		Targets:        DefaultPrewarmTargets(),
		Concurrency:    3,
		Timeout:        30 * time.Second,
		PrewarmCurrent: true,
		PrewarmHistory: true,
		HistoryHours:   24,
	}
}

// DefaultPrewarmTargets returns the default prewarm targets: the cities the
// dashboard pins as default markers.
func DefaultPrewarmTargets() []PrewarmTarget {
	return []PrewarmTarget{
		{
			Name:     "Europe",
			Priority: 1,
			Points: []Point{
				{Lat: 52.3676, Lng: 4.9041},  // Amsterdam
				{Lat: 51.5074, Lng: -0.1278}, // London
				{Lat: 48.8566, Lng: 2.3522},  // Paris
				{Lat: 52.5200, Lng: 13.4050}, // Berlin
			},
		},
		{
			Name:     "Americas",
			Priority: 1,
			Points: []Point{
				{Lat: 40.7128, Lng: -74.0060},  // New York
				{Lat: 34.0522, Lng: -118.2437}, // Los Angeles
				{Lat: -23.5505, Lng: -46.6333}, // Sao Paulo
				{Lat: 19.4326, Lng: -99.1332},  // Mexico City
			},
		},
		{
			Name:     "Asia",
			Priority: 2,
			Points: []Point{
				{Lat: 28.6139, Lng: 77.2090},  // Delhi
				{Lat: 39.9042, Lng: 116.4074}, // Beijing
				{Lat: 35.6762, Lng: 139.6503}, // Tokyo
				{Lat: 13.7563, Lng: 100.5018}, // Bangkok
			},
		},
		{
			Name:     "Africa and Oceania",
			Priority: 3,
			Points: []Point{
				{Lat: 30.0444, Lng: 31.2357},   // Cairo
				{Lat: 6.5244, Lng: 3.3792},     // Lagos
				{Lat: -33.8688, Lng: 151.2093}, // Sydney
			},
		},
	}
}

// AllPoints returns all points from all targets, ordered by target priority
// (lower first). Targets with equal priority keep their declaration order.
func (c PrewarmConfig) AllPoints() []Point {
	targets := make([]PrewarmTarget, len(c.Targets))
	copy(targets, c.Targets)
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Priority < targets[j].Priority
	})

	var points []Point
	for _, target := range targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to prewarm.
func (c PrewarmConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
