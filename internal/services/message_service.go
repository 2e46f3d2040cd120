package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/innkeeper/internal/models"
	pgrepo "github.com/yoockh/innkeeper/internal/repositories/postgres"
	"github.com/yoockh/innkeeper/internal/utils"
	"gorm.io/datatypes"
)

type MessageService interface {
	Append(ctx context.Context, conversationID, role, content string, fragmentCount int, metadataJSON []byte) (*models.ConversationLog, error)
	List(ctx context.Context, conversationID string, limit int) ([]models.ConversationLog, error)
	Latest(ctx context.Context, conversationID string, n int) ([]models.ConversationLog, error)
}

type messageService struct {
	messages pgrepo.MessageRepository
}

func NewMessageService(messages pgrepo.MessageRepository) MessageService {
	return &messageService{messages: messages}
}

func (s *messageService) Append(ctx context.Context, conversationID, role, content string, fragmentCount int, metadataJSON []byte) (*models.ConversationLog, error) {
	const op = "MessageService.Append"

	content = strings.TrimSpace(content)
	if conversationID == "" || content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id and content are required", nil)
	}
	if role != models.RoleGuest && role != models.RoleAssistant {
		return nil, utils.E(utils.CodeInvalidArgument, op, "role must be guest or assistant", nil)
	}

	row := &models.ConversationLog{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		FragmentCount:  fragmentCount,
		Timestamp:      time.Now().UTC(),
	}
	if len(metadataJSON) > 0 {
		row.Metadata = datatypes.JSON(metadataJSON)
	}

	if err := s.messages.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert message", err)
	}
	return row, nil
}

func (s *messageService) List(ctx context.Context, conversationID string, limit int) ([]models.ConversationLog, error) {
	const op = "MessageService.List"

	if conversationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}
	rows, err := s.messages.ListByConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}
	return rows, nil
}

func (s *messageService) Latest(ctx context.Context, conversationID string, n int) ([]models.ConversationLog, error) {
	const op = "MessageService.Latest"

	if conversationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}
	rows, err := s.messages.LatestN(ctx, conversationID, n)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load history", err)
	}
	return rows, nil
}
