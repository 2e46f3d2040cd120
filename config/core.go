package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/cache"
	"github.com/yoockh/innkeeper/internal/utils"
)

// Core is the tunable surface of the coalescing and caching core plus the
// collaborators built around it.
type Core struct {
	Cache  cache.EngineConfig
	Buffer buffer.Config

	ContextTTL     time.Duration
	ContextHistory int

	InboundWorkers int
	WebhookSecret  string
	VoiceBucket    string
}

// LoadCore reads Core from the environment. Unset variables keep their
// defaults; malformed ones are reported together.
func LoadCore() (Core, error) {
	const op = "config.LoadCore"

	p := envParser{}
	c := Core{
		Cache: cache.EngineConfig{
			MaxSize:       p.integer("CACHE_MAX_SIZE", cache.DefaultMaxSize),
			DefaultTTL:    p.duration("CACHE_DEFAULT_TTL", cache.DefaultTTL),
			SweepInterval: p.duration("CACHE_SWEEP_INTERVAL", cache.DefaultSweepInterval),
		},
		Buffer: buffer.Config{
			Delays: map[buffer.Kind]time.Duration{
				buffer.KindText:  p.duration("BUFFER_TEXT_DELAY", buffer.DefaultTextDelay),
				buffer.KindVoice: p.duration("BUFFER_VOICE_DELAY", buffer.DefaultVoiceDelay),
				buffer.KindMedia: p.duration("BUFFER_MEDIA_DELAY", buffer.DefaultMediaDelay),
			},
			RetryDelay:      p.duration("BUFFER_RETRY_DELAY", buffer.DefaultRetryDelay),
			MaxBufferBytes:  p.integer("BUFFER_MAX_BYTES", buffer.DefaultMaxBufferBytes),
			ProcessTimeout:  p.duration("BUFFER_PROCESS_TIMEOUT", buffer.DefaultProcessTimeout),
			DedupTTL:        p.duration("BUFFER_DEDUP_TTL", buffer.DefaultDedupTTL),
			FallbackMessage: strings.TrimSpace(os.Getenv("FALLBACK_MESSAGE")),
		},
		ContextTTL:     p.duration("CONTEXT_TTL", 10*time.Minute),
		ContextHistory: p.integer("CONTEXT_HISTORY", 20),
		InboundWorkers: p.integer("INBOUND_WORKERS", 4),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		VoiceBucket:    os.Getenv("VOICE_BUCKET"),
	}

	if c.Cache.MaxSize <= 0 {
		p.fail("CACHE_MAX_SIZE", "must be > 0")
	}
	if c.Buffer.MaxBufferBytes <= 0 {
		p.fail("BUFFER_MAX_BYTES", "must be > 0")
	}

	if err := errors.Join(p.errs...); err != nil {
		return Core{}, utils.E(utils.CodeInvalidArgument, op, "invalid configuration", err)
	}
	return c, nil
}

type envParser struct {
	errs []error
}

func (p *envParser) fail(key, reason string) {
	p.errs = append(p.errs, fmt.Errorf("%s: %s", key, reason))
}

func (p *envParser) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, "not an integer")
		return def
	}
	return n
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, "not a duration (ex: 1500ms, 2s, 5m)")
		return def
	}
	if d < 0 {
		p.fail(key, "must not be negative")
		return def
	}
	return d
}
