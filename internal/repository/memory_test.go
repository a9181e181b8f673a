package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredspace/kindred/internal/domain"
)

func TestInMemorySessionRepository(t *testing.T) {
	repo := NewInMemorySessionRepository()
	ctx := context.Background()

	session := domain.NewSession("alice", "bob")
	require.NoError(t, repo.Save(ctx, session))

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	// Stored state is a copy, later mutation of the input does not leak in.
	session.Active = false
	got, err = repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	require.NoError(t, repo.Delete(ctx, session.ID))
	_, err = repo.GetByID(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInMemoryListActive(t *testing.T) {
	repo := NewInMemorySessionRepository()
	ctx := context.Background()

	active := domain.NewSession("alice", "bob")
	ended := domain.NewSession("carol", "dave")
	ended.Active = false

	require.NoError(t, repo.Save(ctx, active))
	require.NoError(t, repo.Save(ctx, ended))

	sessions, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, active.ID, sessions[0].ID)
}

func TestInMemoryHonorsCancelledContext(t *testing.T) {
	repo := NewInMemorySessionRepository()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, repo.Save(ctx, domain.NewSession("alice", "bob")))
	_, err := repo.GetByID(ctx, "any")
	assert.Error(t, err)
}
