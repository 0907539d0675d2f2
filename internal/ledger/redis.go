package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"classlog/auth-bridge/internal/model"
)

const revokedKeyPrefix = "ledger:revoked:"

// Cached remembers revoked tokens in redis in front of a backing Ledger.
// Revocation is permanent, so only revoked answers are cached; anything else
// is read from the backing ledger. Redis failures never change an answer,
// they only cost the extra backing read.
type Cached struct {
	backing Ledger
	redis   *redis.Client
	ttl     time.Duration
	log     *zap.Logger
}

// NewCached keeps entries for ttl, which should be the session lifetime:
// after that the token is expired anyway.
func NewCached(backing Ledger, client *redis.Client, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{backing: backing, redis: client, ttl: ttl, log: log}
}

func (c *Cached) RecordIssuance(ctx context.Context, userID, tokenID string) error {
	return c.backing.RecordIssuance(ctx, userID, tokenID)
}

func (c *Cached) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return c.backing.RevokeAll(ctx, userID)
}

func (c *Cached) ListTokens(ctx context.Context, userID string) ([]model.ExtensionToken, error) {
	return c.backing.ListTokens(ctx, userID)
}

func (c *Cached) Status(ctx context.Context, userID, tokenID string) (TokenStatus, error) {
	key := revokedKeyPrefix + tokenID
	owner, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil && owner == userID:
		return StatusRevoked, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.log.Warn("revocation cache read failed", zap.String("token_id", tokenID), zap.Error(err))
	}

	status, err := c.backing.Status(ctx, userID, tokenID)
	if err != nil {
		return status, err
	}
	if status == StatusRevoked {
		if err := c.redis.Set(ctx, key, userID, c.ttl).Err(); err != nil {
			c.log.Warn("revocation cache write failed", zap.String("token_id", tokenID), zap.Error(err))
		}
	}
	return status, nil
}
