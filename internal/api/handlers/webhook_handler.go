package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/services"
	"github.com/yoockh/innkeeper/internal/utils"
)

type WebhookHandler struct {
	inbound services.InboundService
}

func NewWebhookHandler(inbound services.InboundService) *WebhookHandler {
	return &WebhookHandler{inbound: inbound}
}

// Receive accepts one gateway message. The reply arrives later through the
// outbound stream.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var ev models.InboundEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WebhookHandler.Receive", "invalid request body", err))
		return
	}

	if err := h.inbound.Ingest(c.Request.Context(), ev); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
