package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/match"
)

const (
	DefaultMaxSize       = 1000
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

type EngineConfig struct {
	MaxSize       int
	DefaultTTL    time.Duration
	SweepInterval time.Duration // <0 disables the background sweep

	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	Hits    int64         `json:"hits"`
	Misses  int64         `json:"misses"`
	Sets    int64         `json:"sets"`
	Deletes int64         `json:"deletes"`
	Size    int           `json:"size"`
	MaxSize int           `json:"max_size"`
	HitRate float64       `json:"hit_rate"`
	Uptime  time.Duration `json:"uptime_ns"`
}

type entry struct {
	value      any
	createdAt  time.Time
	expiresAt  time.Time
	lastAccess time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Engine is a bounded in-memory key/value store with per-entry TTL and
// least-recently-used eviction. Recency lives in a simplelru list sized to
// MaxSize; each entry carries its own deadline. Expiry is checked on every
// read; the sweep only reclaims memory.
type Engine struct {
	mu      sync.Mutex
	items   *simplelru.LRU[string, *entry]
	cfg     EngineConfig
	now     func() time.Time
	started time.Time
	log     *logrus.Entry

	hits, misses, sets, deletes int64

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewEngine(cfg EngineConfig, l *logrus.Logger) *Engine {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if l == nil {
		l = logrus.StandardLogger()
	}

	// NewLRU only fails on a non-positive size
	items, _ := simplelru.NewLRU[string, *entry](cfg.MaxSize, nil)

	e := &Engine{
		items:   items,
		cfg:     cfg,
		now:     cfg.Now,
		started: cfg.Now(),
		log:     l.WithField("component", "cache"),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go e.sweepLoop(cfg.SweepInterval)
	} else {
		close(e.done)
	}
	return e
}

func (e *Engine) Set(key string, value any) {
	e.SetWithTTL(key, value, e.cfg.DefaultTTL)
}

// SetWithTTL stores value under key. A ttl <= 0 stores an entry that is
// already expired.
func (e *Engine) SetWithTTL(key string, value any, ttl time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.sets++

	if ent, ok := e.items.Get(key); ok {
		ent.value = value
		ent.createdAt = now
		ent.expiresAt = now.Add(ttl)
		ent.lastAccess = now
		return
	}

	for e.items.Len() >= e.cfg.MaxSize {
		e.evictOldest()
	}

	e.items.Add(key, &entry{
		value:      value,
		createdAt:  now,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	})
}

func (e *Engine) Get(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	ent, ok := e.items.Peek(key)
	if !ok {
		e.misses++
		return nil, false
	}
	if ent.expired(now) {
		e.items.Remove(key)
		e.misses++
		return nil, false
	}

	e.hits++
	ent.lastAccess = now
	e.items.Get(key)
	return ent.value, true
}

// Has reports whether key holds a live entry. It leaves recency and
// counters untouched.
func (e *Engine) Has(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.items.Peek(key)
	return ok && !ent.expired(e.now())
}

func (e *Engine) Delete(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.items.Peek(key)
	if !ok {
		return false
	}
	live := !ent.expired(e.now())
	e.items.Remove(key)
	if live {
		e.deletes++
	}
	return live
}

// Clear drops every entry and zeroes the hit/miss/set/delete counters.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items.Purge()
	e.hits, e.misses, e.sets, e.deletes = 0, 0, 0, 0
}

func (e *Engine) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveCount(e.now())
}

// TTL returns the remaining lifetime of key.
func (e *Engine) TTL(key string) (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.items.Peek(key)
	if !ok {
		return 0, false
	}
	now := e.now()
	if ent.expired(now) {
		return 0, false
	}
	return ent.expiresAt.Sub(now), true
}

// FindKeys returns the live keys matching a glob pattern ("*" matches any
// run of characters, "?" a single one), sorted.
func (e *Engine) FindKeys(pattern string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var keys []string
	for _, k := range e.items.Keys() {
		if ent, _ := e.items.Peek(k); ent.expired(now) {
			continue
		}
		if match.Match(k, pattern) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (e *Engine) DeletePattern(pattern string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	removed := 0
	for _, k := range e.items.Keys() {
		if ent, _ := e.items.Peek(k); ent.expired(now) || !match.Match(k, pattern) {
			continue
		}
		e.items.Remove(k)
		removed++
	}
	e.deletes += int64(removed)
	return removed
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	s := Stats{
		Hits:    e.hits,
		Misses:  e.misses,
		Sets:    e.sets,
		Deletes: e.deletes,
		Size:    e.liveCount(now),
		MaxSize: e.cfg.MaxSize,
		Uptime:  now.Sub(e.started),
	}
	if lookups := e.hits + e.misses; lookups > 0 {
		s.HitRate = float64(e.hits) * 100 / float64(lookups)
	}
	return s
}

// Sweep removes expired entries and returns how many were dropped.
func (e *Engine) Sweep() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	removed := 0
	for _, k := range e.items.Keys() {
		if ent, _ := e.items.Peek(k); ent.expired(now) {
			e.items.Remove(k)
			removed++
		}
	}
	return removed
}

// Destroy stops the sweep goroutine and drops all entries. Safe to call
// more than once.
func (e *Engine) Destroy() {
	e.stopOnce.Do(func() { close(e.stop) })
	<-e.done
	e.Clear()
}

func (e *Engine) sweepLoop(every time.Duration) {
	defer close(e.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := e.Sweep(); n > 0 {
				e.log.WithField("removed", n).Debug("expired entries swept")
			}
		case <-e.stop:
			return
		}
	}
}

// caller holds e.mu
func (e *Engine) evictOldest() {
	if key, _, ok := e.items.RemoveOldest(); ok {
		e.log.WithField("key", key).Trace("evicted least recently used entry")
	}
}

// caller holds e.mu
func (e *Engine) liveCount(now time.Time) int {
	n := 0
	for _, k := range e.items.Keys() {
		if ent, _ := e.items.Peek(k); !ent.expired(now) {
			n++
		}
	}
	return n
}
