package tiles_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/tiles"
	"github.com/airsight/airsight/pkg/mercator"
)

// mockSource is a test tile source with configurable behavior per tile.
type mockSource struct {
	mu        sync.Mutex
	fetches   atomic.Int32
	inFlight  atomic.Int32
	highWater atomic.Int32
	delay     time.Duration
	failKeys  map[string]bool
}

func (m *mockSource) FetchTile(ctx context.Context, tile mercator.Tile) ([]byte, error) {
	m.fetches.Add(1)

	n := m.inFlight.Add(1)
	for {
		hw := m.highWater.Load()
		if n <= hw || m.highWater.CompareAndSwap(hw, n) {
			break
		}
	}
	defer m.inFlight.Add(-1)

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	fail := m.failKeys[tile.Key()]
	m.mu.Unlock()
	if fail {
		return nil, errors.New("tile unavailable")
	}
	return []byte("png:" + tile.Key()), nil
}

func tileGrid(z, count int) []mercator.Tile {
	n := 1 << uint(z)
	out := make([]mercator.Tile, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, mercator.Tile{Z: z, X: i % n, Y: (i / n) % n})
	}
	return out
}

func newScheduler(src tiles.Source, concurrency int) *tiles.Scheduler {
	return tiles.NewScheduler(tiles.Config{
		Source:         src,
		Logger:         zerolog.New(io.Discard),
		MaxConcurrency: concurrency,
	})
}

func TestScheduler_AllTilesSettle(t *testing.T) {
	src := &mockSource{failKeys: map[string]bool{"4_2_1": true}}
	s := newScheduler(src, 6)

	requested := tileGrid(4, 20)
	<-s.Request(context.Background(), requested)

	for _, tile := range requested {
		state, ok := s.State(tile.Key())
		require.True(t, ok, "tile %s missing", tile.Key())
		if tile.Key() == "4_2_1" {
			assert.Equal(t, tiles.StateFailed, state)
			assert.Nil(t, s.Ready(tile.Key()))
		} else {
			assert.Equal(t, tiles.StateReady, state)
			require.NotNil(t, s.Ready(tile.Key()))
			assert.Equal(t, []byte("png:"+tile.Key()), s.Ready(tile.Key()).Bytes())
		}
	}
}

func TestScheduler_BoundedConcurrency(t *testing.T) {
	src := &mockSource{delay: 5 * time.Millisecond}
	s := newScheduler(src, 6)

	<-s.Request(context.Background(), tileGrid(4, 50))

	assert.LessOrEqual(t, src.highWater.Load(), int32(6),
		"more than 6 fetches ran concurrently")
	assert.Equal(t, int32(50), src.fetches.Load())
}

func TestScheduler_CacheAvoidsRefetch(t *testing.T) {
	src := &mockSource{}
	s := newScheduler(src, 6)

	requested := tileGrid(4, 10)
	<-s.Request(context.Background(), requested)
	require.Equal(t, int32(10), src.fetches.Load())

	// Same set again: everything is ready, nothing is refetched.
	<-s.Request(context.Background(), requested)
	assert.Equal(t, int32(10), src.fetches.Load())
}

func TestScheduler_FailedTileRetriedNextGeneration(t *testing.T) {
	src := &mockSource{failKeys: map[string]bool{"4_0_0": true}}
	s := newScheduler(src, 2)

	requested := tileGrid(4, 4)
	<-s.Request(context.Background(), requested)

	state, _ := s.State("4_0_0")
	require.Equal(t, tiles.StateFailed, state)
	before := src.fetches.Load()

	src.mu.Lock()
	src.failKeys["4_0_0"] = false
	src.mu.Unlock()

	<-s.Request(context.Background(), requested)

	state, _ = s.State("4_0_0")
	assert.Equal(t, tiles.StateReady, state)
	// Only the previously failed tile is refetched.
	assert.Equal(t, before+1, src.fetches.Load())
}

// gatedSource blocks fetches for selected tile keys until released.
type gatedSource struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func (g *gatedSource) FetchTile(ctx context.Context, tile mercator.Tile) ([]byte, error) {
	g.mu.Lock()
	gate := g.gates[tile.Key()]
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []byte("png:" + tile.Key()), nil
}

func TestScheduler_StaleGenerationDiscarded(t *testing.T) {
	gate := make(chan struct{})
	src := &gatedSource{gates: map[string]chan struct{}{
		"4_0_0": gate,
		"4_1_0": gate,
	}}
	s := newScheduler(src, 6)

	// Generation A: fetches block on the gate.
	genA := []mercator.Tile{{Z: 4, X: 0, Y: 0}, {Z: 4, X: 1, Y: 0}}
	doneA := s.Request(context.Background(), genA)

	// Generation B replaces the set before A settles.
	genB := []mercator.Tile{{Z: 4, X: 2, Y: 2}, {Z: 4, X: 3, Y: 2}}
	<-s.Request(context.Background(), genB)

	// Release A's fetches; their late results must not appear anywhere.
	close(gate)
	<-doneA

	for _, tile := range genA {
		_, ok := s.State(tile.Key())
		assert.False(t, ok, "stale tile %s still cached", tile.Key())
	}
	for _, tile := range genB {
		state, ok := s.State(tile.Key())
		require.True(t, ok)
		assert.Equal(t, tiles.StateReady, state)
	}
}

func TestScheduler_EvictionReleasesHandles(t *testing.T) {
	src := &mockSource{}
	s := newScheduler(src, 6)

	first := []mercator.Tile{{Z: 4, X: 0, Y: 0}}
	<-s.Request(context.Background(), first)

	handle := s.Ready("4_0_0")
	require.NotNil(t, handle)
	require.NotNil(t, handle.Bytes())

	// Viewport moves away: the old handle must be released.
	<-s.Request(context.Background(), []mercator.Tile{{Z: 4, X: 3, Y: 3}})

	assert.Nil(t, handle.Bytes(), "evicted handle not released")
	assert.Nil(t, s.Ready("4_0_0"))
}

func TestScheduler_DuplicateRequestCoordinates(t *testing.T) {
	src := &mockSource{}
	s := newScheduler(src, 6)

	tile := mercator.Tile{Z: 4, X: 1, Y: 1}
	<-s.Request(context.Background(), []mercator.Tile{tile, tile, tile})

	assert.Equal(t, int32(1), src.fetches.Load())
}

func TestScheduler_EmptyBytesIsFailure(t *testing.T) {
	src := &emptySource{}
	s := newScheduler(src, 1)

	tile := mercator.Tile{Z: 2, X: 0, Y: 0}
	<-s.Request(context.Background(), []mercator.Tile{tile})

	state, ok := s.State(tile.Key())
	require.True(t, ok)
	assert.Equal(t, tiles.StateFailed, state)
}

type emptySource struct{}

func (emptySource) FetchTile(context.Context, mercator.Tile) ([]byte, error) {
	return nil, nil
}

func TestScheduler_Close(t *testing.T) {
	src := &mockSource{}
	s := newScheduler(src, 6)

	<-s.Request(context.Background(), tileGrid(4, 6))
	require.NotEmpty(t, s.Snapshot())

	s.Close()
	assert.Empty(t, s.Snapshot())
}
