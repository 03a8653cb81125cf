package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = cacheNamespace + "revoked:"

// TokenDenylistRepository remembers revoked access token IDs until the token
// would have expired anyway. Without a Redis client the list is kept in
// process, which only holds for a single API instance.
type TokenDenylistRepository struct {
	client *redis.Client
	now    func() time.Time

	mu    sync.Mutex
	local map[string]time.Time
}

// NewTokenDenylistRepository constructs the denylist.
func NewTokenDenylistRepository(client *redis.Client) *TokenDenylistRepository {
	return &TokenDenylistRepository{client: client, now: time.Now, local: map[string]time.Time{}}
}

// Revoke blocks tokenID until the given instant. Already expired tokens are ignored.
func (r *TokenDenylistRepository) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if r.client != nil {
		if err := r.client.Set(ctx, revokedTokenPrefix+tokenID, 1, ttl).Err(); err != nil {
			return fmt.Errorf("redis revoke token %s: %w", tokenID, err)
		}
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	r.local[tokenID] = until
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired.
func (r *TokenDenylistRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	if r.client != nil {
		n, err := r.client.Exists(ctx, revokedTokenPrefix+tokenID).Result()
		if err != nil {
			return false, fmt.Errorf("redis lookup token %s: %w", tokenID, err)
		}
		return n > 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.local[tokenID]
	return ok && r.now().Before(until), nil
}

func (r *TokenDenylistRepository) prune() {
	now := r.now()
	for id, until := range r.local {
		if !now.Before(until) {
			delete(r.local, id)
		}
	}
}
