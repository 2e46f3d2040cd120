package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Tiered reads through an in-process L1 to a shared L2. Failures of the L2
// are logged and treated as misses; they never fail the caller.
type Tiered struct {
	l1    Cache
	l2    Cache
	l1TTL time.Duration
	log   *logrus.Entry
}

// NewTiered builds a two-level cache. l1TTL caps how long a value read from
// l2 lives in l1; zero keeps the caller's ttl.
func NewTiered(l1, l2 Cache, l1TTL time.Duration, l *logrus.Logger) *Tiered {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Tiered{l1: l1, l2: l2, l1TTL: l1TTL, log: l.WithField("component", "cache")}
}

func (t *Tiered) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if hit, err := t.l1.GetJSON(ctx, key, dst); err == nil && hit {
		return true, nil
	}
	if t.l2 == nil {
		return false, nil
	}

	hit, err := t.l2.GetJSON(ctx, key, dst)
	if err != nil {
		t.log.WithError(err).WithField("key", key).Warn("l2 cache read failed")
		return false, nil
	}
	if !hit {
		return false, nil
	}
	_ = t.l1.SetJSON(ctx, key, dst, t.l1TTL)
	return true, nil
}

func (t *Tiered) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	l1TTL := ttl
	if t.l1TTL > 0 && (l1TTL == 0 || l1TTL > t.l1TTL) {
		l1TTL = t.l1TTL
	}
	if err := t.l1.SetJSON(ctx, key, val, l1TTL); err != nil {
		return err
	}
	if t.l2 == nil {
		return nil
	}
	if err := t.l2.SetJSON(ctx, key, val, ttl); err != nil {
		t.log.WithError(err).WithField("key", key).Warn("l2 cache write failed")
	}
	return nil
}

func (t *Tiered) Del(ctx context.Context, keys ...string) error {
	if err := t.l1.Del(ctx, keys...); err != nil {
		return err
	}
	if t.l2 == nil {
		return nil
	}
	if err := t.l2.Del(ctx, keys...); err != nil {
		t.log.WithError(err).WithField("keys", keys).Warn("l2 cache delete failed")
	}
	return nil
}
