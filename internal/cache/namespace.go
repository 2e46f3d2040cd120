package cache

import (
	"strings"
	"time"
)

// Key prefixes used across the service.
const (
	PrefixProfile = "profile:"
	PrefixContext = "ctx:"
	PrefixDedup   = "dedup:"
)

// Namespace scopes engine operations to keys starting with a fixed prefix.
// It has no behaviour of its own beyond the key rewrite.
type Namespace struct {
	engine *Engine
	prefix string
}

func NewNamespace(e *Engine, prefix string) *Namespace {
	return &Namespace{engine: e, prefix: prefix}
}

func (n *Namespace) Prefix() string { return n.prefix }

func (n *Namespace) Key(key string) string { return n.prefix + key }

func (n *Namespace) Get(key string) (any, bool) { return n.engine.Get(n.Key(key)) }

func (n *Namespace) Set(key string, value any) { n.engine.Set(n.Key(key), value) }

func (n *Namespace) SetWithTTL(key string, value any, ttl time.Duration) {
	n.engine.SetWithTTL(n.Key(key), value, ttl)
}

func (n *Namespace) Has(key string) bool { return n.engine.Has(n.Key(key)) }

func (n *Namespace) Delete(key string) bool { return n.engine.Delete(n.Key(key)) }

func (n *Namespace) TTL(key string) (time.Duration, bool) { return n.engine.TTL(n.Key(key)) }

// Keys lists live keys in the namespace matching pattern, without the prefix.
func (n *Namespace) Keys(pattern string) []string {
	if pattern == "" {
		pattern = "*"
	}
	full := n.engine.FindKeys(n.Key(pattern))
	out := make([]string, 0, len(full))
	for _, k := range full {
		out = append(out, strings.TrimPrefix(k, n.prefix))
	}
	return out
}

// Purge deletes every key in the namespace.
func (n *Namespace) Purge() int { return n.engine.DeletePattern(n.prefix + "*") }

// Typed is a Namespace whose values all share type T.
type Typed[T any] struct {
	ns *Namespace
}

func NewTyped[T any](e *Engine, prefix string) *Typed[T] {
	return &Typed[T]{ns: NewNamespace(e, prefix)}
}

// Get returns the cached value. A value of another type stored under the
// same key is reported as a miss.
func (t *Typed[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := t.ns.Get(key)
	if !ok {
		return zero, false
	}
	out, ok := v.(T)
	if !ok {
		return zero, false
	}
	return out, true
}

func (t *Typed[T]) Set(key string, value T) { t.ns.Set(key, value) }

func (t *Typed[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	t.ns.SetWithTTL(key, value, ttl)
}

func (t *Typed[T]) Delete(key string) bool { return t.ns.Delete(key) }

func (t *Typed[T]) Namespace() *Namespace { return t.ns }
