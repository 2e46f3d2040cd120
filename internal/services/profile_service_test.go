package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/innkeeper/internal/cache"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/utils"
)

func TestProfileService_GetReadsThroughCache(t *testing.T) {
	repo := newFakeProfileRepo(models.GuestProfile{ConversationID: "c1", DisplayName: "Ana"})
	typed := cache.NewTyped[models.GuestProfile](newEngine(t), cache.PrefixProfile)
	svc := NewProfileService(repo, typed)

	for i := 0; i < 3; i++ {
		p, err := svc.Get(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, "Ana", p.DisplayName)
	}
	assert.Equal(t, 1, repo.gets)
}

func TestProfileService_UpsertInvalidatesCache(t *testing.T) {
	repo := newFakeProfileRepo(models.GuestProfile{ConversationID: "c1", DisplayName: "Ana"})
	typed := cache.NewTyped[models.GuestProfile](newEngine(t), cache.PrefixProfile)
	svc := NewProfileService(repo, typed)
	ctx := context.Background()

	_, err := svc.Get(ctx, "c1")
	require.NoError(t, err)

	require.NoError(t, svc.Upsert(ctx, &models.GuestProfile{ConversationID: "c1", DisplayName: "Ana María"}))
	_, cached := typed.Get("c1")
	assert.False(t, cached)

	p, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ana María", p.DisplayName)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestProfileService_Errors(t *testing.T) {
	svc := NewProfileService(newFakeProfileRepo(), nil)

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	_, err = svc.Get(context.Background(), "")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	err = svc.Upsert(context.Background(), &models.GuestProfile{})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
