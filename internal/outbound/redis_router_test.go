package outbound

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/utils"
)

func TestNewMessageCarriesRoute(t *testing.T) {
	at := time.Date(2026, 5, 2, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	msg := NewMessage(buffer.Route{
		ConversationID: "c1",
		ReplyTo:        "+34600000000",
		Channel:        "whatsapp",
		DisplayName:    "Ana",
	}, "Your room is ready.", at)

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "reply",
		"conversation_id": "c1",
		"reply_to": "+34600000000",
		"channel": "whatsapp",
		"display_name": "Ana",
		"text": "Your room is ready.",
		"sent_at": "2026-05-02T08:30:00Z"
	}`, string(b))
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "conversation:c1:outbound", Channel("c1"))
}

func TestNotifyRequiresConversation(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })

	r := &RedisRouter{Redis: rdb}
	err := r.Notify(context.Background(), buffer.Route{}, "hello")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
