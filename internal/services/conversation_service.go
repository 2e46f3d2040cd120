package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/innkeeper/internal/models"
	mongorepo "github.com/yoockh/innkeeper/internal/repositories/mongo"
	"github.com/yoockh/innkeeper/internal/utils"
)

type ConversationService interface {
	Touch(ctx context.Context, conversationID, channel, displayName, replyTo string) error
	Get(ctx context.Context, conversationID string) (*models.Conversation, error)
	Close(ctx context.Context, conversationID string) error
}

type conversationService struct {
	convos mongorepo.ConversationRepository
}

func NewConversationService(convos mongorepo.ConversationRepository) ConversationService {
	return &conversationService{convos: convos}
}

func (s *conversationService) Touch(ctx context.Context, conversationID, channel, displayName, replyTo string) error {
	const op = "ConversationService.Touch"

	if conversationID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}

	err := s.convos.Touch(ctx, &models.Conversation{
		ConversationID: conversationID,
		Channel:        channel,
		DisplayName:    displayName,
		ReplyTo:        replyTo,
		LastMessageAt:  time.Now().UTC(),
	})
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to touch conversation", err)
	}
	return nil
}

func (s *conversationService) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	const op = "ConversationService.Get"

	if conversationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}

	out, err := s.convos.GetByConversationID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "conversation not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get conversation", err)
	}
	return out, nil
}

func (s *conversationService) Close(ctx context.Context, conversationID string) error {
	const op = "ConversationService.Close"

	if conversationID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}
	if err := s.convos.Close(ctx, conversationID, time.Now().UTC()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "conversation not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to close conversation", err)
	}
	return nil
}
