package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classlog/auth-bridge/internal/apperr"
)

func TestMemoryRevokeAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.RecordIssuance(ctx, "user-1", "t1"))
	require.NoError(t, m.RecordIssuance(ctx, "user-1", "t2"))
	require.NoError(t, m.RecordIssuance(ctx, "user-2", "t3"))

	count, err := m.RevokeAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = m.RevokeAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	status, err := m.Status(ctx, "user-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, status)

	status, err = m.Status(ctx, "user-2", "t3")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, status)

	tokens, err := m.ListTokens(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, tokens, 2, "revoked rows are kept")
	for _, token := range tokens {
		assert.False(t, token.Active)
		assert.False(t, token.UpdatedAt.Before(token.CreatedAt))
	}
}

func TestMemoryStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.RecordIssuance(ctx, "user-1", "t1"))

	status, err := m.Status(ctx, "user-1", "missing")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status)

	status, err = m.Status(ctx, "user-2", "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status, "token owned by another user")

	count, err := m.RevokeAll(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryIssuanceAfterRevokeIsActive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.RecordIssuance(ctx, "user-1", "old"))
	_, err := m.RevokeAll(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, m.RecordIssuance(ctx, "user-1", "new"))

	status, err := m.Status(ctx, "user-1", "new")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, status)
}

func TestMemoryStorageError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Err = errors.New("connection refused")

	_, err := m.RevokeAll(ctx, "user-1")
	assert.True(t, apperr.IsKind(err, apperr.Storage))
	_, err = m.Status(ctx, "user-1", "t1")
	assert.True(t, apperr.IsKind(err, apperr.Storage))
	err = m.RecordIssuance(ctx, "user-1", "t1")
	assert.True(t, apperr.IsKind(err, apperr.Storage))
}

func TestMemoryRecordIssuanceValidation(t *testing.T) {
	m := NewMemory()
	err := m.RecordIssuance(context.Background(), "", "t1")
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedRemembersRevokedTokens(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	backing := NewMemory()
	cached := NewCached(backing, client, time.Hour, nil)

	require.NoError(t, cached.RecordIssuance(ctx, "user-1", "t1"))
	status, err := cached.Status(ctx, "user-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, status)
	assert.False(t, mr.Exists(revokedKeyPrefix+"t1"), "active answers are not cached")

	count, err := cached.RevokeAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	status, err = cached.Status(ctx, "user-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, status)
	assert.True(t, mr.Exists(revokedKeyPrefix+"t1"))
	assert.Equal(t, time.Hour, mr.TTL(revokedKeyPrefix+"t1"))

	// Served from redis even when the backing store is down.
	backing.Err = errors.New("down")
	status, err = cached.Status(ctx, "user-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, status)
}

func TestCachedIgnoresEntryForOtherUser(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	backing := NewMemory()
	cached := NewCached(backing, client, time.Hour, nil)

	require.NoError(t, backing.RecordIssuance(ctx, "user-1", "t1"))
	require.NoError(t, mr.Set(revokedKeyPrefix+"t1", "user-2"))

	status, err := cached.Status(ctx, "user-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, status)
}

func TestCachedFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	backing := NewMemory()
	cached := NewCached(backing, client, time.Hour, nil)

	require.NoError(t, cached.RecordIssuance(ctx, "user-1", "t1"))
	_, err := cached.RevokeAll(ctx, "user-1")
	require.NoError(t, err)

	mr.Close()

	status, err := cached.Status(ctx, "user-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, status)

	backing.Err = errors.New("down")
	_, err = cached.Status(ctx, "user-1", "t1")
	assert.True(t, apperr.IsKind(err, apperr.Storage), "no cache and no backing must surface a storage error")
}
