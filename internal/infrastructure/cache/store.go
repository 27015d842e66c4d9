package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Store is a byte-oriented key/value cache with per-entry expiry. Get reports
// a miss with found=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NewStore builds the store selected by driver. The redis client is only
// required for the redis driver.
func NewStore(driver string, client *redis.Client, defaultTTL time.Duration) (Store, error) {
	switch driver {
	case DriverRedis:
		if client == nil {
			return nil, fmt.Errorf("cache driver %q requires a redis client", driver)
		}
		return NewRedisStore(client), nil
	case DriverMemory, "":
		return NewMemoryStore(defaultTTL), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", driver)
	}
}
