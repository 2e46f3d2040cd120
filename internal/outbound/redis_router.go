// Package outbound delivers assistant messages to the channels guests talk
// on. Replies are fanned out on Redis: a pub/sub channel per conversation
// feeds open widget sockets and a stream feeds the chat gateway.
package outbound

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/utils"
)

const DefaultStream = "chat:outbound"

// Channel is the pub/sub channel a conversation's replies are published on.
func Channel(conversationID string) string {
	return "conversation:" + conversationID + ":outbound"
}

type Message struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	ReplyTo        string    `json:"reply_to,omitempty"`
	Channel        string    `json:"channel,omitempty"`
	DisplayName    string    `json:"display_name,omitempty"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sent_at"`
}

func NewMessage(route buffer.Route, text string, now time.Time) Message {
	return Message{
		Type:           "reply",
		ConversationID: route.ConversationID,
		ReplyTo:        route.ReplyTo,
		Channel:        route.Channel,
		DisplayName:    route.DisplayName,
		Text:           text,
		SentAt:         now.UTC(),
	}
}

type RedisRouter struct {
	Redis  redis.UniversalClient
	Stream string
	MaxLen int64 // approximate stream cap, 0 = unbounded
	Logger *logrus.Logger
}

var _ buffer.Router = (*RedisRouter)(nil)

func (r *RedisRouter) Notify(ctx context.Context, route buffer.Route, message string) error {
	const op = "RedisRouter.Notify"

	if route.ConversationID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}

	payload, err := json.Marshal(NewMessage(route, message, time.Now()))
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to encode reply", err)
	}

	stream := r.Stream
	if stream == "" {
		stream = DefaultStream
	}

	pipe := r.Redis.TxPipeline()
	pipe.Publish(ctx, Channel(route.ConversationID), payload)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: r.MaxLen,
		Approx: r.MaxLen > 0,
		Values: map[string]any{
			"conversation_id": route.ConversationID,
			"payload":         string(payload),
		},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to publish reply", err)
	}

	if r.Logger != nil {
		r.Logger.WithFields(logrus.Fields{
			"conversation_id": route.ConversationID,
			"channel":         route.Channel,
			"chars":           len(message),
		}).Debug("reply published")
	}
	return nil
}
