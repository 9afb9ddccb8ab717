package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	return NewRedisRepository(client, "test:session:"), m
}

func TestRedisRepository_CreateGetDelete(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	s := &Session{
		RefreshToken: "r1",
		UserID:       "user-1",
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(5 * time.Second),
	}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "user-1", got.UserID)

	require.NoError(t, repo.DeleteByRefresh(ctx, "r1"))
	got, err = repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	s := &Session{
		RefreshToken: "r2",
		UserID:       "user-2",
		ExpiresAt:    time.Now().UTC().Add(1 * time.Second),
	}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	require.NotNil(t, got)

	m.FastForward(2 * time.Second)

	got, err = repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_DeleteByUser(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Minute)
	require.NoError(t, repo.Create(ctx, &Session{RefreshToken: "a", UserID: "u", ExpiresAt: exp}))
	require.NoError(t, repo.Create(ctx, &Session{RefreshToken: "b", UserID: "u", ExpiresAt: exp}))
	require.NoError(t, repo.Create(ctx, &Session{RefreshToken: "c", UserID: "other", ExpiresAt: exp}))

	require.NoError(t, repo.DeleteByUser(ctx, "u"))

	for _, tok := range []string{"a", "b"} {
		got, err := repo.GetByRefresh(ctx, tok)
		require.NoError(t, err)
		require.Nil(t, got)
	}
	got, err := repo.GetByRefresh(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, got)
}
