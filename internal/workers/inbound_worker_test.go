package workers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/innkeeper/internal/models"
)

type recordingInbound struct {
	mu     sync.Mutex
	events []models.InboundEvent
	err    error
}

func (r *recordingInbound) Ingest(_ context.Context, ev models.InboundEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func TestEventFromValues(t *testing.T) {
	ev := eventFromValues(map[string]any{
		"conversation_id": "c1",
		"message_id":      "wamid.1",
		"type":            "audio",
		"audio_url":       "https://cdn.example/v.ogg",
		"reply_to":        "+34600000000",
		"channel":         "whatsapp",
		"unexpected":      42,
	})

	assert.Equal(t, models.InboundEvent{
		ConversationID: "c1",
		MessageID:      "wamid.1",
		Kind:           "audio",
		AudioURL:       "https://cdn.example/v.ogg",
		ReplyTo:        "+34600000000",
		Channel:        "whatsapp",
	}, ev)

	assert.Equal(t, "text", eventFromValues(map[string]any{"kind": "text", "type": "voice"}).Kind)
}

func TestHandleMsg(t *testing.T) {
	l, hook := test.NewNullLogger()
	in := &recordingInbound{}
	p := &InboundWorkerPool{Inbound: in, Logger: l}

	p.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"text": "orphan"}})
	assert.Empty(t, in.events)
	require.NotNil(t, hook.LastEntry())

	in.err = errors.New("buffer full")
	p.handleMsg(context.Background(), redis.XMessage{ID: "2-0", Values: map[string]any{"conversation_id": "c1", "text": "hi"}})
	require.Len(t, in.events, 1)
	assert.Equal(t, "inbound message rejected", hook.LastEntry().Message)
}

func TestStartRequiresDependencies(t *testing.T) {
	assert.Error(t, (&InboundWorkerPool{}).Start(context.Background()))
}
