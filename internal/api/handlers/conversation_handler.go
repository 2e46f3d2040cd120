package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/innkeeper/internal/services"
)

// PendingCounter reports fragments still waiting in the buffer.
type PendingCounter interface {
	Pending(conversationID string) int
}

type ConversationHandler struct {
	convos   services.ConversationService
	messages services.MessageService
	flushes  services.FlushService
	pending  PendingCounter // optional
}

func NewConversationHandler(convos services.ConversationService, messages services.MessageService, flushes services.FlushService, pending PendingCounter) *ConversationHandler {
	return &ConversationHandler{convos: convos, messages: messages, flushes: flushes, pending: pending}
}

func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := requireConversationID(c, "ConversationHandler.Get")
	if !ok {
		return
	}

	conv, err := h.convos.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	pending := 0
	if h.pending != nil {
		pending = h.pending.Pending(id)
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "pending_fragments": pending})
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	id, ok := requireConversationID(c, "ConversationHandler.Messages")
	if !ok {
		return
	}

	rows, err := h.messages.List(c.Request.Context(), id, queryLimit(c, 50, 500))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ConversationHandler) Flushes(c *gin.Context) {
	id, ok := requireConversationID(c, "ConversationHandler.Flushes")
	if !ok {
		return
	}

	out, err := h.flushes.ListByConversation(c.Request.Context(), id, int64(queryLimit(c, 50, 500)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ConversationHandler) Close(c *gin.Context) {
	id, ok := requireConversationID(c, "ConversationHandler.Close")
	if !ok {
		return
	}

	if err := h.convos.Close(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": id, "status": "closed"})
}
