package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenDenylistInProcess(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	repo := NewTokenDenylistRepository(nil)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, repo.Revoke(ctx, "jti-stale", now.Add(-time.Minute)))

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "jti-stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-2", now.Add(time.Hour)))
	assert.NotContains(t, repo.local, "jti-1")
}
