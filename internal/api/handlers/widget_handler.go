package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/outbound"
	"github.com/yoockh/innkeeper/internal/services"
	"github.com/yoockh/innkeeper/internal/utils"
)

const widgetChannel = "webchat"

// WidgetHandler serves the website chat widget over a websocket. Guest
// messages go through the same inbound path as the gateway; replies are
// relayed from the conversation's outbound pub/sub channel.
type WidgetHandler struct {
	inbound  services.InboundService
	redis    redis.UniversalClient
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWidgetHandler(inbound services.InboundService, rdb redis.UniversalClient, l *logrus.Logger) *WidgetHandler {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &WidgetHandler{
		inbound: inbound,
		redis:   rdb,
		log:     l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict to the hotel's site origins once WIDGET_ORIGINS exists
		},
	}
}

type widgetClientMsg struct {
	Type        string `json:"type"` // message|voice|ping
	MessageID   string `json:"message_id"`
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64"`
	Language    string `json:"language"`
	DisplayName string `json:"display_name"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) writeError(err error) error {
	code, msg := utils.CodeOf(err), "internal error"
	var ae *utils.AppError
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	return w.writeJSON(gin.H{"type": "error", "code": code, "message": msg})
}

func (h *WidgetHandler) Conversation(c *gin.Context) {
	conversationID, ok := requireConversationID(c, "WidgetHandler.Conversation")
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.log.WithField("conversation_id", conversationID)

	pubsub := h.redis.Subscribe(ctx, outbound.Channel(conversationID))
	defer pubsub.Close()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		h.readLoop(ctx, conversationID, conn, wc, log)
	}()

	msgs := pubsub.Channel()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			// forward as-is (payload is an outbound.Message)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}

func (h *WidgetHandler) readLoop(ctx context.Context, conversationID string, conn *websocket.Conn, wc *wsConn, log *logrus.Entry) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg widgetClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeError(utils.E(utils.CodeInvalidArgument, "WidgetHandler.read", "invalid json", err))
			continue
		}

		ev := models.InboundEvent{
			ConversationID: conversationID,
			MessageID:      msg.MessageID,
			Text:           msg.Text,
			AudioBase64:    msg.AudioBase64,
			Language:       msg.Language,
			DisplayName:    msg.DisplayName,
			Channel:        widgetChannel,
		}

		switch msg.Type {
		case "ping":
			_ = wc.writeJSON(gin.H{"type": "pong"})
			continue
		case "message", "":
			ev.Kind = "text"
		case "voice":
			ev.Kind = "voice"
		default:
			_ = wc.writeError(utils.E(utils.CodeInvalidArgument, "WidgetHandler.read", "unknown message type", nil))
			continue
		}

		if err := h.inbound.Ingest(ctx, ev); err != nil {
			log.WithError(err).Debug("widget message rejected")
			_ = wc.writeError(err)
			continue
		}
		_ = wc.writeJSON(gin.H{"type": "ack", "message_id": msg.MessageID})
	}
}
