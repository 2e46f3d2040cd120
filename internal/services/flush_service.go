package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/innkeeper/internal/models"
	mongorepo "github.com/yoockh/innkeeper/internal/repositories/mongo"
	"github.com/yoockh/innkeeper/internal/utils"
)

// FlushService keeps the audit trail of coalesced batches.
type FlushService interface {
	Start(ctx context.Context, flushID, conversationID, combinedText string, fragmentCount int) (*models.FlushRecord, error)
	Finish(ctx context.Context, flushID, reply string, runErr error, elapsed time.Duration) error
	ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.FlushRecord, error)
}

type flushService struct {
	flushes mongorepo.FlushRepository
	ttl     time.Duration
}

func NewFlushService(flushes mongorepo.FlushRepository, ttl time.Duration) FlushService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &flushService{flushes: flushes, ttl: ttl}
}

func (s *flushService) Start(ctx context.Context, flushID, conversationID, combinedText string, fragmentCount int) (*models.FlushRecord, error) {
	const op = "FlushService.Start"

	if conversationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}
	if flushID == "" {
		flushID = uuid.NewString()
	}

	now := time.Now().UTC()
	doc := &models.FlushRecord{
		FlushID:        flushID,
		ConversationID: conversationID,
		CombinedText:   combinedText,
		FragmentCount:  fragmentCount,
		Status:         models.FlushProcessing,
		Timestamp:      now,
		ExpiresAt:      now.Add(s.ttl),
	}

	if err := s.flushes.Insert(ctx, doc); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert flush record", err)
	}
	return doc, nil
}

func (s *flushService) Finish(ctx context.Context, flushID, reply string, runErr error, elapsed time.Duration) error {
	const op = "FlushService.Finish"

	if flushID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "flush_id is required", nil)
	}

	status, errMsg := models.FlushDone, ""
	if runErr != nil {
		status, errMsg = models.FlushFailed, runErr.Error()
	}
	if err := s.flushes.Complete(ctx, flushID, status, reply, errMsg, elapsed.Milliseconds()); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update flush record", err)
	}
	return nil
}

func (s *flushService) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.FlushRecord, error) {
	const op = "FlushService.ListByConversation"

	if conversationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}
	out, err := s.flushes.ListByConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list flushes", err)
	}
	return out, nil
}
