package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/innkeeper/internal/cache"
	"github.com/yoockh/innkeeper/internal/models"
	pgrepo "github.com/yoockh/innkeeper/internal/repositories/postgres"
	"github.com/yoockh/innkeeper/internal/utils"
)

// ProfileService reads guest profiles through the in-memory cache.
type ProfileService interface {
	Get(ctx context.Context, conversationID string) (*models.GuestProfile, error)
	Upsert(ctx context.Context, p *models.GuestProfile) error
	Invalidate(conversationID string)
}

type profileService struct {
	profiles pgrepo.ProfileRepository
	cache    *cache.Typed[models.GuestProfile] // optional
}

func NewProfileService(profiles pgrepo.ProfileRepository, c *cache.Typed[models.GuestProfile]) ProfileService {
	return &profileService{profiles: profiles, cache: c}
}

func (s *profileService) Get(ctx context.Context, conversationID string) (*models.GuestProfile, error) {
	const op = "ProfileService.Get"

	if conversationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}

	if s.cache != nil {
		if p, ok := s.cache.Get(conversationID); ok {
			return &p, nil
		}
	}

	p, err := s.profiles.GetByConversationID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "guest profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get guest profile", err)
	}

	if s.cache != nil {
		s.cache.Set(conversationID, *p)
	}
	return p, nil
}

func (s *profileService) Upsert(ctx context.Context, p *models.GuestProfile) error {
	const op = "ProfileService.Upsert"

	if p == nil || p.ConversationID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "profile.conversation_id is required", nil)
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.profiles.Upsert(ctx, p); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to upsert guest profile", err)
	}
	s.Invalidate(p.ConversationID)
	return nil
}

func (s *profileService) Invalidate(conversationID string) {
	if s.cache != nil {
		s.cache.Delete(conversationID)
	}
}
