package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", "v1", time.Minute))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	require.NoError(t, store.Set(ctx, "k", "v2", time.Minute))
	value, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
	assert.Equal(t, 1, store.Stats().Size)

	require.NoError(t, store.Del(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(10)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "call_details:AU:c1", "{}", 600*time.Second))

	now = now.Add(599 * time.Second)
	_, err := store.Get(ctx, "call_details:AU:c1")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = store.Get(ctx, "call_details:AU:c1")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, store.Stats().Size, "expired entry is dropped on read")
}

func TestMemoryStore_NoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemoryStore(10)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	now = now.Add(24 * time.Hour)
	_, err := store.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestMemoryStore_LRUEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	require.NoError(t, store.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, store.Set(ctx, "b", "2", time.Minute))

	// touch a so b becomes least recently used
	_, err := store.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "c", "3", time.Minute))

	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = store.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemoryStore(10)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "short", "1", time.Second))
	require.NoError(t, store.Set(ctx, "long", "2", time.Hour))

	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, store.CleanupExpired())
	assert.Equal(t, 1, store.Stats().Size)
}

func TestMemoryStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(5)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	_, _ = store.Get(ctx, "k")
	_, _ = store.Get(ctx, "nope")

	stats := store.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 5, stats.MaxSize)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestMemoryStore_CleanupWorkerStops(t *testing.T) {
	store := NewMemoryStore(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.StartCleanupWorker(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}
