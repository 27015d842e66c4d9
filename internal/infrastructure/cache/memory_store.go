package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore keeps entries in process. Expired entries are purged every
// two default TTLs.
func NewMemoryStore(defaultTTL time.Duration) Store {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &memoryStore{cache: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, found := s.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.cache.Set(key, stored, ttl)
	return nil
}
