package buffer

import (
	"context"
	"strings"
	"time"
)

type Kind string

const (
	KindText  Kind = "text"
	KindVoice Kind = "voice"
	KindMedia Kind = "media"
)

// ParseKind maps a gateway message type to a fragment kind. Unknown types
// are treated as text.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "voice", "audio", "ptt":
		return KindVoice
	case "media", "image", "video", "document", "sticker":
		return KindMedia
	default:
		return KindText
	}
}

// Fragment is one inbound piece of a guest message.
type Fragment struct {
	ID   string // gateway message id, used for duplicate suppression
	Kind Kind
	Text string
}

// Route carries what is needed to answer the guest.
type Route struct {
	ConversationID string `json:"conversation_id"`
	DisplayName    string `json:"display_name,omitempty"`
	ReplyTo        string `json:"reply_to,omitempty"`
	Channel        string `json:"channel,omitempty"`
}

// merge overlays the non-empty fields of next onto r.
func (r Route) merge(next Route) Route {
	if next.ConversationID != "" {
		r.ConversationID = next.ConversationID
	}
	if next.DisplayName != "" {
		r.DisplayName = next.DisplayName
	}
	if next.ReplyTo != "" {
		r.ReplyTo = next.ReplyTo
	}
	if next.Channel != "" {
		r.Channel = next.Channel
	}
	return r
}

type Reply struct {
	Text string
}

// FlushInfo describes the batch being processed. It travels in the context
// handed to the Processor.
type FlushInfo struct {
	ID        string
	Fragments int
}

type flushKey struct{}

func WithFlush(ctx context.Context, info FlushInfo) context.Context {
	return context.WithValue(ctx, flushKey{}, info)
}

func FlushFromContext(ctx context.Context) (FlushInfo, bool) {
	info, ok := ctx.Value(flushKey{}).(FlushInfo)
	return info, ok
}

// Processor answers one flushed batch. It is called at most once at a time
// per conversation.
type Processor interface {
	Process(ctx context.Context, conversationID, text string, route Route) (Reply, error)
}

type ProcessorFunc func(ctx context.Context, conversationID, text string, route Route) (Reply, error)

func (f ProcessorFunc) Process(ctx context.Context, conversationID, text string, route Route) (Reply, error) {
	return f(ctx, conversationID, text, route)
}

// Router delivers out-of-band notices, such as the fallback apology, to the
// guest.
type Router interface {
	Notify(ctx context.Context, route Route, message string) error
}

const (
	DefaultTextDelay      = 2 * time.Second
	DefaultVoiceDelay     = 6 * time.Second
	DefaultMediaDelay     = 4 * time.Second
	DefaultRetryDelay     = time.Second
	DefaultMaxBufferBytes = 8 << 10
	DefaultProcessTimeout = 90 * time.Second
	DefaultDedupTTL       = 10 * time.Minute
	DefaultSeparator      = "\n"
	DefaultFallback       = "Sorry, something went wrong on our side. A member of our team will get back to you shortly."
)

type Config struct {
	Delays          map[Kind]time.Duration
	RetryDelay      time.Duration // re-check interval while a run is active
	MaxBufferBytes  int
	ProcessTimeout  time.Duration
	DedupTTL        time.Duration
	Separator       string
	FallbackMessage string
}

func (c Config) withDefaults() Config {
	delays := map[Kind]time.Duration{
		KindText:  DefaultTextDelay,
		KindVoice: DefaultVoiceDelay,
		KindMedia: DefaultMediaDelay,
	}
	for k, d := range c.Delays {
		if d >= 0 {
			delays[k] = d
		}
	}
	c.Delays = delays

	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxBufferBytes <= 0 {
		c.MaxBufferBytes = DefaultMaxBufferBytes
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = DefaultProcessTimeout
	}
	if c.DedupTTL <= 0 {
		c.DedupTTL = DefaultDedupTTL
	}
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
	if c.FallbackMessage == "" {
		c.FallbackMessage = DefaultFallback
	}
	return c
}

// delayFor returns the debounce delay for k. Kinds without their own delay
// wait as long as text.
func (c Config) delayFor(k Kind) time.Duration {
	if d, ok := c.Delays[k]; ok {
		return d
	}
	return c.Delays[KindText]
}
