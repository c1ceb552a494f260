package cache

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Additional-Code/backorder/internal/config"
)

// MemoryStore keeps entries in process memory through ristretto.
type MemoryStore struct {
	cache      *ristretto.Cache[string, []byte]
	defaultTTL time.Duration
}

// NewMemoryStore builds a ristretto-backed store sized by cfg.Memory.
func NewMemoryStore(cfg config.Cache) (*MemoryStore, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.Memory.NumCounters,
		MaxCost:     cfg.Memory.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{cache: c, defaultTTL: ttl}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheMiss
	}
	value, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("cache key is required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	stored := append([]byte(nil), value...)
	if !s.cache.SetWithTTL(key, stored, int64(len(stored))+1, ttl) {
		return errors.New("cache rejected entry")
	}
	// Writes are buffered; block until visible so a session is readable right after login.
	s.cache.Wait()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	s.cache.Del(key)
	return nil
}

// Close releases ristretto's background goroutines.
func (s *MemoryStore) Close() {
	s.cache.Close()
}
