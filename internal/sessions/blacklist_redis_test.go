package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestBlacklistAccessToken_IsAccessTokenBlacklisted(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	SetBlacklistClient(client)
	defer SetBlacklistClient(nil)

	ctx := context.Background()
	token := "access-token-1"
	require.NoError(t, BlacklistAccessToken(ctx, token, 2*time.Second))

	ok, err := IsAccessTokenBlacklisted(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)

	m.FastForward(3 * time.Second)

	ok, err = IsAccessTokenBlacklisted(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBlacklistUntil_PastExpiryIsIgnored(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer SetBlacklistClient(nil)

	ctx := context.Background()
	require.NoError(t, BlacklistUntil(ctx, "expired", time.Now().Add(-time.Minute)))
	ok, err := IsAccessTokenBlacklisted(ctx, "expired")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, BlacklistUntil(ctx, "live", time.Now().Add(time.Minute)))
	ok, err = IsAccessTokenBlacklisted(ctx, "live")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBlacklist_NoClient_Noop(t *testing.T) {
	SetBlacklistClient(nil)
	ctx := context.Background()
	token := "no-client-token"
	require.NoError(t, BlacklistAccessToken(ctx, token, 1*time.Second))
	ok, err := IsAccessTokenBlacklisted(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)
}
