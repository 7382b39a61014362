package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/cache"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := cache.NewMemory()

	_, ok := store.Get("missing")
	assert.False(t, ok)

	store.Set("k", []byte("v"), 0)
	got, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := cache.NewMemory()

	store.Set("k", []byte("v"), 10*time.Millisecond)
	_, ok := store.Get("k")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = store.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	store := cache.NewMemory()

	store.Set("k", []byte("v"), 0)
	time.Sleep(5 * time.Millisecond)

	_, ok := store.Get("k")
	assert.True(t, ok)
}

func TestRistrettoStore_SetGet(t *testing.T) {
	store, err := cache.New(cache.Config{})
	require.NoError(t, err)
	defer store.Close()

	store.Set("k", []byte("v"), time.Minute)

	// Ristretto admits asynchronously; poll briefly.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got, ok := store.Get("k"); ok {
			assert.Equal(t, []byte("v"), got)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("value was never admitted")
}
