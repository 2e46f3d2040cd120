package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/services"
	"github.com/yoockh/innkeeper/internal/utils"
	"gorm.io/datatypes"
)

type GuestHandler struct {
	svc services.ProfileService
}

func NewGuestHandler(svc services.ProfileService) *GuestHandler {
	return &GuestHandler{svc: svc}
}

func (h *GuestHandler) Get(c *gin.Context) {
	id, ok := requireConversationID(c, "GuestHandler.Get")
	if !ok {
		return
	}

	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type UpdateGuestRequest struct {
	DisplayName *string   `json:"display_name,omitempty"`
	Language    *string   `json:"language,omitempty"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`

	// JSONB (raw)
	Preferences *json.RawMessage `json:"preferences,omitempty"`
}

func (h *GuestHandler) Update(c *gin.Context) {
	const op = "GuestHandler.Update"

	id, ok := requireConversationID(c, op)
	if !ok {
		return
	}

	var req UpdateGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	if req.Preferences != nil && !json.Valid(*req.Preferences) {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "preferences must be JSON", nil))
		return
	}

	existing, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if !utils.IsCode(err, utils.CodeNotFound) {
			writeError(c, err)
			return
		}
		existing = &models.GuestProfile{ConversationID: id}
	}

	if req.DisplayName != nil {
		existing.DisplayName = *req.DisplayName
	}
	if req.Language != nil {
		existing.Language = *req.Language
	}
	if req.PhoneNumber != nil {
		existing.PhoneNumber = *req.PhoneNumber
	}
	if req.Tags != nil {
		existing.Tags = *req.Tags
	}
	if req.Preferences != nil {
		existing.Preferences = datatypes.JSON(*req.Preferences)
	}

	if err := h.svc.Upsert(c.Request.Context(), existing); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, existing)
}
