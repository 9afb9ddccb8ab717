package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "linkage_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com ,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "linkage_test", cfg.MongoDB.Database)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, 80, cfg.App.ProfileGateThreshold)
	require.Equal(t, 5*time.Minute, cfg.Cache.EngagementSummaryTTL)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfig_RequiresMongoURI(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	_, err := LoadConfig()
	require.ErrorIs(t, err, ErrMissingMongoURI)
}

func TestRedisAddr_EmptyWhenUnset(t *testing.T) {
	require.Equal(t, "", RedisConfig{Port: "6379"}.Addr())
}
