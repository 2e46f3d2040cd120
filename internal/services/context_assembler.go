package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/cache"
	"github.com/yoockh/innkeeper/internal/logger"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/utils"
)

const basePersona = "You are the front desk assistant of a hotel, answering guests over chat. " +
	"Reply in the guest's language, keep answers short and friendly, and never invent prices or availability."

// HistoryEntry is the cached shape of one past message.
type HistoryEntry struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// PromptContext is everything the model is told about a conversation.
type PromptContext struct {
	ConversationID string
	Route          buffer.Route
	Guest          *models.GuestProfile
	History        []HistoryEntry
}

// SystemPrompt renders the persona plus what is known about the guest.
func (p *PromptContext) SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString(basePersona)

	name := p.Route.DisplayName
	if p.Guest != nil && p.Guest.DisplayName != "" {
		name = p.Guest.DisplayName
	}
	if name != "" {
		fmt.Fprintf(&sb, "\n\nThe guest's name is %s.", name)
	}
	if p.Guest != nil {
		if p.Guest.Language != "" {
			fmt.Fprintf(&sb, " Preferred language: %s.", p.Guest.Language)
		}
		if len(p.Guest.Tags) > 0 {
			fmt.Fprintf(&sb, " Guest tags: %s.", strings.Join(p.Guest.Tags, ", "))
		}
		if len(p.Guest.Preferences) > 0 && string(p.Guest.Preferences) != "null" {
			fmt.Fprintf(&sb, "\nKnown preferences (JSON): %s", string(p.Guest.Preferences))
		}
	}
	return sb.String()
}

// Prompt renders the history followed by the new guest message.
func (p *PromptContext) Prompt(message string) string {
	var sb strings.Builder
	if len(p.History) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, h := range p.History {
			fmt.Fprintf(&sb, "%s: %s\n", h.Role, h.Content)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Guest says:\n")
	sb.WriteString(message)
	return sb.String()
}

type ContextAssembler interface {
	Build(ctx context.Context, conversationID string, route buffer.Route) (*PromptContext, error)
	Invalidate(ctx context.Context, conversationID string)
	InvalidateProfile(conversationID string)
}

type contextAssembler struct {
	profiles ProfileService
	messages MessageService
	cache    cache.Cache
	ttl      time.Duration
	history  int
	log      *logrus.Entry
}

func NewContextAssembler(profiles ProfileService, messages MessageService, c cache.Cache, ttl time.Duration, history int, l *logrus.Logger) ContextAssembler {
	if history <= 0 {
		history = 20
	}
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &contextAssembler{
		profiles: profiles,
		messages: messages,
		cache:    c,
		ttl:      ttl,
		history:  history,
		log:      logger.Component(l, "context"),
	}
}

func historyKey(conversationID string) string {
	return cache.PrefixContext + conversationID + ":history"
}

// Build never fails on backend trouble: a missing profile or an unreachable
// history store yields a thinner context.
func (a *contextAssembler) Build(ctx context.Context, conversationID string, route buffer.Route) (*PromptContext, error) {
	const op = "ContextAssembler.Build"

	if conversationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}

	pc := &PromptContext{ConversationID: conversationID, Route: route}
	log := a.log.WithField("conversation_id", conversationID)

	if a.profiles != nil {
		p, err := a.profiles.Get(ctx, conversationID)
		switch {
		case err == nil:
			pc.Guest = p
		case utils.IsCode(err, utils.CodeNotFound):
		default:
			log.WithError(err).Warn("guest profile unavailable")
		}
	}

	pc.History = a.loadHistory(ctx, conversationID, log)
	return pc, nil
}

func (a *contextAssembler) loadHistory(ctx context.Context, conversationID string, log *logrus.Entry) []HistoryEntry {
	key := historyKey(conversationID)

	if a.cache != nil {
		var cached []HistoryEntry
		hit, err := a.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.WithError(err).Warn("context cache read failed")
		}
		if hit {
			return cached
		}
	}

	if a.messages == nil {
		return nil
	}
	rows, err := a.messages.Latest(ctx, conversationID, a.history)
	if err != nil {
		log.WithError(err).Warn("history unavailable")
		return nil
	}

	out := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, HistoryEntry{Role: r.Role, Content: r.Content, At: r.Timestamp})
	}

	if a.cache != nil {
		if err := a.cache.SetJSON(ctx, key, out, a.ttl); err != nil {
			log.WithError(err).Warn("context cache write failed")
		}
	}
	return out
}

func (a *contextAssembler) Invalidate(ctx context.Context, conversationID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Del(ctx, historyKey(conversationID)); err != nil {
		a.log.WithError(err).WithField("conversation_id", conversationID).Warn("context invalidation failed")
	}
}

func (a *contextAssembler) InvalidateProfile(conversationID string) {
	if a.profiles != nil {
		a.profiles.Invalidate(conversationID)
	}
}
