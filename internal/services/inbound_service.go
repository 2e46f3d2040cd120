package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/logger"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/providers/stt"
	"github.com/yoockh/innkeeper/internal/storage"
	"github.com/yoockh/innkeeper/internal/utils"
)

const (
	maxAudioBytes    = 10 << 20
	mediaPlaceholder = "[media]"
)

// Enqueuer is the part of buffer.Manager the inbound path needs.
type Enqueuer interface {
	Enqueue(conversationID string, frag buffer.Fragment, route buffer.Route) error
}

type InboundService interface {
	Ingest(ctx context.Context, ev models.InboundEvent) error
}

// InboundDeps wires the inbound path. STT, Archive and Conversations are
// optional.
type InboundDeps struct {
	Buffer        Enqueuer
	STT           stt.Provider
	Archive       storage.Uploader
	Conversations ConversationService
	HTTPClient    *http.Client
	Logger        *logrus.Logger
}

type inboundService struct {
	buffer  Enqueuer
	stt     stt.Provider
	archive storage.Uploader
	convos  ConversationService
	client  *http.Client
	log     *logrus.Entry
}

func NewInboundService(d InboundDeps) InboundService {
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	return &inboundService{
		buffer:  d.Buffer,
		stt:     d.STT,
		archive: d.Archive,
		convos:  d.Conversations,
		client:  d.HTTPClient,
		log:     logger.Component(d.Logger, "inbound"),
	}
}

func normalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "id", "id-ID":
		return "id-ID"
	case "en", "en-US", "":
		return "en-US"
	default:
		return v
	}
}

func (s *inboundService) Ingest(ctx context.Context, ev models.InboundEvent) error {
	const op = "InboundService.Ingest"

	ev.ConversationID = strings.TrimSpace(ev.ConversationID)
	if ev.ConversationID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}
	if ev.MessageID == "" {
		ev.MessageID = uuid.NewString()
	}

	log := s.log.WithFields(logrus.Fields{
		"conversation_id": ev.ConversationID,
		"message_id":      ev.MessageID,
	})

	kind := buffer.ParseKind(ev.Kind)
	text := strings.TrimSpace(ev.Text)

	switch kind {
	case buffer.KindVoice:
		transcript, err := s.transcribe(ctx, ev, log)
		if err != nil {
			return err
		}
		text = transcript
	case buffer.KindMedia:
		if text == "" {
			text = mediaPlaceholder
		}
	}

	if text == "" {
		return utils.E(utils.CodeInvalidArgument, op, "message has no text", nil)
	}

	if s.convos != nil {
		if err := s.convos.Touch(ctx, ev.ConversationID, ev.Channel, ev.DisplayName, ev.ReplyTo); err != nil {
			log.WithError(err).Warn("conversation registry not updated")
		}
	}

	return s.buffer.Enqueue(ev.ConversationID,
		buffer.Fragment{ID: ev.MessageID, Kind: kind, Text: text},
		buffer.Route{
			ConversationID: ev.ConversationID,
			DisplayName:    ev.DisplayName,
			ReplyTo:        ev.ReplyTo,
			Channel:        ev.Channel,
		},
	)
}

func (s *inboundService) transcribe(ctx context.Context, ev models.InboundEvent, log *logrus.Entry) (string, error) {
	const op = "InboundService.transcribe"

	// a voice note with a caption or gateway-side transcript needs no STT
	if t := strings.TrimSpace(ev.Text); t != "" {
		return t, nil
	}
	if s.stt == nil {
		return "", utils.E(utils.CodeUnavailable, op, "voice messages are not supported", nil)
	}

	audio, err := s.loadAudio(ctx, ev)
	if err != nil {
		return "", err
	}

	if s.archive != nil {
		path, err := s.archive.Upload(ctx, storage.VoiceObjectName(ev.ConversationID, ev.MessageID), "audio/ogg", bytes.NewReader(audio))
		if err != nil {
			log.WithError(err).Warn("voice archive failed")
		} else {
			log = log.WithField("archived", path)
		}
	}

	text, conf, err := s.stt.Transcribe(ctx, audio, normalizeLanguage(ev.Language))
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "transcription failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "voice message is empty", nil)
	}

	log.WithField("confidence", conf).Debug("voice message transcribed")
	return text, nil
}

func (s *inboundService) loadAudio(ctx context.Context, ev models.InboundEvent) ([]byte, error) {
	const op = "InboundService.loadAudio"

	if b64 := ev.AudioBase64; b64 != "" {
		raw := b64
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:] // strip data:...;base64,
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "invalid audio_base64", err)
		}
		if len(decoded) > maxAudioBytes {
			return nil, utils.E(utils.CodeInvalidArgument, op, "audio exceeds 10MiB", nil)
		}
		return decoded, nil
	}

	if ev.AudioURL == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio_base64 or audio_url required", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ev.AudioURL, nil)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid audio_url", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to fetch audio_url", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.E(utils.CodeUnavailable, op, "audio_url returned "+resp.Status, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to read audio", err)
	}
	if len(body) > maxAudioBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio exceeds 10MiB", nil)
	}
	if len(body) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty audio", nil)
	}
	return body, nil
}
