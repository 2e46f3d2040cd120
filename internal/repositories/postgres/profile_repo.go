package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	GetByConversationID(ctx context.Context, conversationID string) (*models.GuestProfile, error)
	Upsert(ctx context.Context, p *models.GuestProfile) error
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByConversationID(ctx context.Context, conversationID string) (*models.GuestProfile, error) {
	var p models.GuestProfile
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) Upsert(ctx context.Context, p *models.GuestProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "language", "phone_number", "tags", "preferences", "updated_at"}),
		}).
		Create(p).Error
}
