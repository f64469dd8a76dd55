package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolhub/internal/cache"
)

func TestTokenStore_RefreshAllowlist(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(cache.NewMemory())
	userID := uuid.New()

	require.NoError(t, store.StoreRefreshToken(ctx, "jti-1", userID, time.Minute))

	got, err := store.ConsumeRefreshToken(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = store.ConsumeRefreshToken(ctx, "jti-1")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	require.NoError(t, store.StoreRefreshToken(ctx, "jti-2", userID, time.Minute))
	require.NoError(t, store.DeleteRefreshToken(ctx, "jti-2"))
	_, err = store.ConsumeRefreshToken(ctx, "jti-2")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestTokenStore_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(cache.NewMemory())
	userID := uuid.New()
	require.NoError(t, store.StoreRefreshToken(ctx, "jti-1", userID, time.Minute))

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		start = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if got, err := store.ConsumeRefreshToken(ctx, "jti-1"); err == nil {
				assert.Equal(t, userID, got)
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestTokenStore_RedisWriteFailures(t *testing.T) {
	client := cache.New("127.0.0.1:1", "", 0)
	defer client.Close()
	store := NewTokenStore(client)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.Error(t, store.RevokeAccessToken(ctx, "jti-1", time.Minute))
	assert.Error(t, store.StoreRefreshToken(ctx, "jti-2", uuid.New(), time.Minute))
	assert.Error(t, store.DeleteRefreshToken(ctx, "jti-2"))

	_, err := store.ConsumeRefreshToken(ctx, "jti-2")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRefreshTokenNotFound)

	// The denylist read fails open.
	revoked, err := store.IsAccessTokenRevoked(ctx, "jti-1")
	assert.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenStore_AccessDenylist(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(cache.NewMemory())

	revoked, err := store.IsAccessTokenRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.RevokeAccessToken(ctx, "jti-2", time.Minute))
	revoked, err = store.IsAccessTokenRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Already-expired tokens need no denylist entry.
	require.NoError(t, store.RevokeAccessToken(ctx, "jti-3", 0))
	revoked, err = store.IsAccessTokenRevoked(ctx, "jti-3")
	require.NoError(t, err)
	assert.False(t, revoked)
}
