package services

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/utils"
)

func TestInbound_TextIsEnqueuedWithRoute(t *testing.T) {
	q := &fakeEnqueuer{}
	convos := &fakeConversationRepo{}
	svc := NewInboundService(InboundDeps{Buffer: q, Conversations: NewConversationService(convos), Logger: nullLogger()})

	err := svc.Ingest(context.Background(), models.InboundEvent{
		ConversationID: " c1 ",
		MessageID:      "m1",
		Text:           "  do you allow pets? ",
		DisplayName:    "Ana",
		ReplyTo:        "+34600000000",
		Channel:        "whatsapp",
	})
	require.NoError(t, err)

	require.Len(t, q.items, 1)
	got := q.items[0]
	assert.Equal(t, "c1", got.conversationID)
	assert.Equal(t, buffer.Fragment{ID: "m1", Kind: buffer.KindText, Text: "do you allow pets?"}, got.frag)
	assert.Equal(t, "+34600000000", got.route.ReplyTo)

	require.Len(t, convos.touched, 1)
	assert.Equal(t, "whatsapp", convos.touched[0].Channel)
}

func TestInbound_MediaWithoutCaptionUsesPlaceholder(t *testing.T) {
	q := &fakeEnqueuer{}
	svc := NewInboundService(InboundDeps{Buffer: q, Logger: nullLogger()})

	require.NoError(t, svc.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Kind: "image"}))
	require.Len(t, q.items, 1)
	assert.Equal(t, buffer.KindMedia, q.items[0].frag.Kind)
	assert.Equal(t, "[media]", q.items[0].frag.Text)
	assert.NotEmpty(t, q.items[0].frag.ID)
}

func TestInbound_VoiceIsTranscribedAndArchived(t *testing.T) {
	q := &fakeEnqueuer{}
	speech := &fakeSTT{text: "can I get a late checkout"}
	archive := &fakeUploader{}
	svc := NewInboundService(InboundDeps{Buffer: q, STT: speech, Archive: archive, Logger: nullLogger()})

	audio := []byte("OggS fake opus")
	err := svc.Ingest(context.Background(), models.InboundEvent{
		ConversationID: "c1",
		MessageID:      "m9",
		Kind:           "ptt",
		AudioBase64:    "data:audio/ogg;base64," + base64.StdEncoding.EncodeToString(audio),
		Language:       "en",
	})
	require.NoError(t, err)

	assert.Equal(t, audio, speech.audio)
	assert.Equal(t, "en-US", speech.lang)
	assert.Equal(t, audio, archive.objects["voice/c1/m9.ogg"])

	require.Len(t, q.items, 1)
	assert.Equal(t, buffer.KindVoice, q.items[0].frag.Kind)
	assert.Equal(t, "can I get a late checkout", q.items[0].frag.Text)
}

func TestInbound_VoiceFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("voice-bytes"))
	}))
	defer srv.Close()

	q := &fakeEnqueuer{}
	speech := &fakeSTT{text: "hola"}
	svc := NewInboundService(InboundDeps{Buffer: q, STT: speech, HTTPClient: srv.Client(), Logger: nullLogger()})

	err := svc.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Kind: "voice", AudioURL: srv.URL, Language: "es-ES"})
	require.NoError(t, err)
	assert.Equal(t, []byte("voice-bytes"), speech.audio)
	assert.Equal(t, "es-ES", speech.lang)
}

func TestInbound_VoiceErrors(t *testing.T) {
	q := &fakeEnqueuer{}

	noSTT := NewInboundService(InboundDeps{Buffer: q, Logger: nullLogger()})
	err := noSTT.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Kind: "voice", AudioBase64: "AAAA"})
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))

	svc := NewInboundService(InboundDeps{Buffer: q, STT: &fakeSTT{text: "x"}, Logger: nullLogger()})
	err = svc.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Kind: "voice", AudioBase64: "%%%"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	err = svc.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Kind: "voice"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	failing := NewInboundService(InboundDeps{Buffer: q, STT: &fakeSTT{err: errors.New("quota")}, Logger: nullLogger()})
	err = failing.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Kind: "voice", AudioBase64: "AAAA"})
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))

	assert.Empty(t, q.items)
}

func TestInbound_VoiceCaptionSkipsTranscription(t *testing.T) {
	q := &fakeEnqueuer{}
	speech := &fakeSTT{text: "should not be used"}
	svc := NewInboundService(InboundDeps{Buffer: q, STT: speech, Logger: nullLogger()})

	require.NoError(t, svc.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Kind: "voice", Text: "gateway transcript"}))
	assert.Nil(t, speech.audio)
	assert.Equal(t, "gateway transcript", q.items[0].frag.Text)
}

func TestInbound_ValidationAndRegistryFailure(t *testing.T) {
	q := &fakeEnqueuer{}
	convos := &fakeConversationRepo{err: errors.New("mongo down")}
	svc := NewInboundService(InboundDeps{Buffer: q, Conversations: NewConversationService(convos), Logger: nullLogger()})

	err := svc.Ingest(context.Background(), models.InboundEvent{ConversationID: "", Text: "hi"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	err = svc.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Text: "   "})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	require.NoError(t, svc.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Text: "hi"}))
	assert.Len(t, q.items, 1)
}

func TestInbound_BufferErrorIsReturned(t *testing.T) {
	q := &fakeEnqueuer{err: utils.E(utils.CodeUnavailable, "Manager.Enqueue", "buffer is shutting down", nil)}
	svc := NewInboundService(InboundDeps{Buffer: q, Logger: nullLogger()})

	err := svc.Ingest(context.Background(), models.InboundEvent{ConversationID: "c1", Text: "hi"})
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}
