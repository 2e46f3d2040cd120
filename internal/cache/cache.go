package cache

import (
	"context"
	"time"
)

// Cache is the JSON-shaped cache contract used by services. Backends are
// MemoryJSON (engine), RedisCache and Tiered (both).
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
