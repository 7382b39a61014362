// Package cache provides the TTL key-value store used by the proxy layer to
// avoid redundant upstream calls for identical lookups.
package cache

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Store is a byte-oriented key-value cache with per-entry TTL.
type Store interface {
	// Get returns the cached value for key, or false when absent or expired.
	Get(key string) ([]byte, bool)

	// Set stores a value under key. A zero TTL means no expiry.
	Set(key string, value []byte, ttl time.Duration)
}

// Config holds configuration for the ristretto-backed store.
type Config struct {
	// MaxBytes bounds the total cached payload size (default: 64 MiB).
	MaxBytes int64

	// NumCounters sizes the admission frequency sketch (default: 100k).
	NumCounters int64
}

// RistrettoStore is a Store backed by a ristretto cache.
type RistrettoStore struct {
	cache *ristretto.Cache[string, []byte]
}

// New creates a ristretto-backed store.
func New(cfg Config) (*RistrettoStore, error) {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	numCounters := cfg.NumCounters
	if numCounters <= 0 {
		numCounters = 100_000
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: numCounters,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoStore{cache: c}, nil
}

// Get implements Store.
func (s *RistrettoStore) Get(key string) ([]byte, bool) {
	return s.cache.Get(key)
}

// Set implements Store.
func (s *RistrettoStore) Set(key string, value []byte, ttl time.Duration) {
	cost := int64(len(value))
	if cost == 0 {
		cost = 1
	}
	if ttl > 0 {
		s.cache.SetWithTTL(key, value, cost, ttl)
	} else {
		s.cache.Set(key, value, cost)
	}
	// Ristretto admits writes asynchronously; readers within the same request
	// path tolerate a miss, so no Wait here.
}

// Close releases the underlying cache resources.
func (s *RistrettoStore) Close() {
	s.cache.Close()
}
