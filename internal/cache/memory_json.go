package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// MemoryJSON implements Cache on top of an Engine. Values are stored as
// encoded bytes so callers never share mutable state through the cache.
// Encoding problems are logged and the write becomes a no-op.
type MemoryJSON struct {
	engine *Engine
	log    *logrus.Entry
}

func NewMemoryJSON(e *Engine, l *logrus.Logger) *MemoryJSON {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &MemoryJSON{engine: e, log: l.WithField("component", "cache")}
}

func (c *MemoryJSON) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	v, ok := c.engine.Get(key)
	if !ok {
		return false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		c.log.WithField("key", key).Warn("non-json value under json key, dropping")
		c.engine.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("corrupt cache value, dropping")
		c.engine.Delete(key)
		return false, nil
	}
	return true, nil
}

func (c *MemoryJSON) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache value not serializable, skipping set")
		return nil
	}
	if ttl == 0 {
		c.engine.Set(key, b)
		return nil
	}
	c.engine.SetWithTTL(key, b, ttl)
	return nil
}

func (c *MemoryJSON) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.engine.Delete(k)
	}
	return nil
}
