package postgres

import (
	"context"

	"github.com/yoockh/innkeeper/internal/models"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Insert(ctx context.Context, log *models.ConversationLog) error
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]models.ConversationLog, error)
	LatestN(ctx context.Context, conversationID string, n int) ([]models.ConversationLog, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Insert(ctx context.Context, log *models.ConversationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID string, limit int) ([]models.ConversationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.ConversationLog
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// LatestN returns the newest n messages in chronological order.
func (r *messageRepo) LatestN(ctx context.Context, conversationID string, n int) ([]models.ConversationLog, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := r.ListByConversation(ctx, conversationID, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
