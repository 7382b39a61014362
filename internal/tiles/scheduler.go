// Package tiles resolves viewport tile sets into overlay images with bounded
// fetch concurrency. Each viewport change starts a new generation; results
// from superseded generations are discarded so rapid panning cannot corrupt
// the cache.
package tiles

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/pkg/mercator"
)

// DefaultMaxConcurrency bounds the number of tile fetches in flight.
const DefaultMaxConcurrency = 6

// Source fetches the raw image bytes for one tile. Implementations return an
// error for anything that is not a non-empty 2xx image response.
type Source interface {
	FetchTile(ctx context.Context, tile mercator.Tile) ([]byte, error)
}

// State is the lifecycle of a tile within the scheduler.
type State uint8

const (
	// StatePending means a fetch is queued or in flight.
	StatePending State = iota
	// StateReady means the tile image is available.
	StateReady
	// StateFailed means the fetch settled with no usable image. Failures are
	// terminal within a generation; the next generation retries the tile.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Handle owns the image bytes for one ready tile. It must be released when
// the tile leaves the visible set so memory stays bounded across viewport
// changes.
type Handle struct {
	mu   sync.Mutex
	data []byte
}

// Bytes returns the image data, or nil after release.
func (h *Handle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}

// Release frees the image data.
func (h *Handle) Release() {
	h.mu.Lock()
	h.data = nil
	h.mu.Unlock()
}

type entry struct {
	tile   mercator.Tile
	state  State
	handle *Handle
}

// Config holds configuration for the scheduler.
type Config struct {
	// Source provides tile images.
	Source Source

	// Logger for scheduler operations.
	Logger zerolog.Logger

	// MaxConcurrency bounds concurrent fetches (default: DefaultMaxConcurrency).
	MaxConcurrency int
}

// Scheduler caches tile images keyed by "{z}_{x}_{y}" and keeps at most one
// outstanding fetch per tile per generation.
type Scheduler struct {
	source         Source
	logger         zerolog.Logger
	maxConcurrency int

	mu         sync.Mutex
	generation uint64
	entries    map[string]*entry
}

// NewScheduler creates a tile fetch scheduler.
func NewScheduler(cfg Config) *Scheduler {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	return &Scheduler{
		source:         cfg.Source,
		logger:         cfg.Logger,
		maxConcurrency: maxConcurrency,
		entries:        make(map[string]*entry),
	}
}

// Request replaces the requested tile set and starts fetches for tiles that
// are not already ready. It never blocks on the fetches themselves; the
// returned channel closes once every tile of this generation has settled.
// Tiles absent from the new set are evicted and their handles released.
// In-flight fetches from earlier generations are allowed to finish but their
// results are dropped.
func (s *Scheduler) Request(ctx context.Context, requested []mercator.Tile) <-chan struct{} {
	done := make(chan struct{})

	s.mu.Lock()
	s.generation++
	gen := s.generation

	want := make(map[string]bool, len(requested))
	var queue []mercator.Tile
	for _, t := range requested {
		key := t.Key()
		if want[key] {
			continue
		}
		want[key] = true

		e, ok := s.entries[key]
		if ok && e.state == StateReady {
			continue
		}
		// Missing, pending under a dead generation, or failed last
		// generation: fetch (again) under this one.
		s.entries[key] = &entry{tile: t, state: StatePending}
		queue = append(queue, t)
	}

	evicted := 0
	for key, e := range s.entries {
		if want[key] {
			continue
		}
		if e.handle != nil {
			e.handle.Release()
		}
		delete(s.entries, key)
		evicted++
	}
	s.mu.Unlock()

	s.logger.Debug().
		Uint64("generation", gen).
		Int("requested", len(want)).
		Int("queued", len(queue)).
		Int("evicted", evicted).
		Msg("tile generation started")

	if len(queue) == 0 {
		close(done)
		return done
	}

	jobs := make(chan mercator.Tile, len(queue))
	for _, t := range queue {
		jobs <- t
	}
	close(jobs)

	workers := s.maxConcurrency
	if len(queue) < workers {
		workers = len(queue)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tile := range jobs {
				data, err := s.source.FetchTile(ctx, tile)
				s.commit(gen, tile, data, err)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	return done
}

// commit records a fetch outcome, unless the generation has been superseded
// or the tile left the requested set while the fetch was in flight.
func (s *Scheduler) commit(gen uint64, tile mercator.Tile, data []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}

	e, ok := s.entries[tile.Key()]
	if !ok || e.state != StatePending {
		return
	}

	if err != nil || len(data) == 0 {
		e.state = StateFailed
		if err != nil {
			s.logger.Debug().
				Err(err).
				Str("tile", tile.Key()).
				Msg("tile fetch failed")
		}
		return
	}

	e.state = StateReady
	e.handle = &Handle{data: data}
}

// State reports the lifecycle state of a tile key.
func (s *Scheduler) State(key string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Ready returns the handle for a ready tile, or nil.
func (s *Scheduler) Ready(key string) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.state != StateReady {
		return nil
	}
	return e.handle
}

// Snapshot returns the handles of all currently ready tiles.
func (s *Scheduler) Snapshot() map[string]*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	ready := make(map[string]*Handle)
	for key, e := range s.entries {
		if e.state == StateReady {
			ready[key] = e.handle
		}
	}
	return ready
}

// Close evicts every cached tile and releases all handles.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	for key, e := range s.entries {
		if e.handle != nil {
			e.handle.Release()
		}
		delete(s.entries, key)
	}
}
