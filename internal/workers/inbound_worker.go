package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/services"
	"github.com/yoockh/innkeeper/internal/utils"
)

// InboundWorkerPool consumes gateway messages from a Redis stream and feeds
// them to the inbound service.
type InboundWorkerPool struct {
	Redis      redis.UniversalClient
	Inbound    services.InboundService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *InboundWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Inbound == nil {
		return errors.New("InboundWorkerPool missing dependency: Redis/Inbound must be set")
	}
	if p.Stream == "" {
		p.Stream = "chat:inbound"
	}
	if p.Group == "" {
		p.Group = "inbound-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *InboundWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *InboundWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	ev := eventFromValues(msg.Values)
	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":        msg.ID,
		"conversation_id": ev.ConversationID,
		"message_id":      ev.MessageID,
	})

	if ev.ConversationID == "" {
		log.Warn("stream message without conversation_id dropped")
		return
	}

	if err := p.Inbound.Ingest(ctx, ev); err != nil {
		// acked either way; the gateway owns redelivery
		log.WithError(err).WithField("code", utils.CodeOf(err)).Warn("inbound message rejected")
	}
}

// eventFromValues maps stream fields onto an InboundEvent. Gateways that
// send "type" instead of "kind" are accepted.
func eventFromValues(v map[string]any) models.InboundEvent {
	get := func(k string) string {
		raw, ok := v[k]
		if !ok || raw == nil {
			return ""
		}
		s, _ := raw.(string)
		return s
	}

	kind := get("kind")
	if kind == "" {
		kind = get("type")
	}

	return models.InboundEvent{
		ConversationID: get("conversation_id"),
		MessageID:      get("message_id"),
		Kind:           kind,
		Text:           get("text"),
		AudioURL:       get("audio_url"),
		AudioBase64:    get("audio_base64"),
		Language:       get("language"),
		DisplayName:    get("display_name"),
		ReplyTo:        get("reply_to"),
		Channel:        get("channel"),
	}
}
