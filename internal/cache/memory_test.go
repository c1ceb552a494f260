package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/backorder/internal/config"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	store, err := NewMemoryStore(config.Cache{
		DefaultTTL: time.Hour,
		Memory:     config.Memory{MaxCost: 1 << 20, NumCounters: 1000},
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

// TestMemoryStoreRoundTrip verifies values are readable immediately after Set.
func TestMemoryStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "session:abc", []byte(`{"id":1}`), 0))

	got, err := store.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(got))
}

// TestMemoryStoreDelete verifies deleted keys report a miss and repeat deletes are harmless.
func TestMemoryStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "session:gone", []byte("x"), time.Minute))
	require.NoError(t, store.Delete(ctx, "session:gone"))
	require.NoError(t, store.Delete(ctx, "session:gone"))

	_, err := store.Get(ctx, "session:gone")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

// TestMemoryStoreRejectsEmptyKey ensures empty keys never reach ristretto.
func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.Set(ctx, "", []byte("x"), 0))
	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
