package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingMongoURI is returned when MONGODB_URI is not configured.
var ErrMissingMongoURI = errors.New("environment variable MONGODB_URI is required")

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Clerk     ClerkConfig
	MinIO     MinIOConfig
	Gemini    GeminiConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Cache     CacheConfig
	App       AppConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// ClerkConfig configures verification of Clerk session tokens (OIDC discovery on Issuer).
type ClerkConfig struct {
	Issuer   string
	Audience string
}

type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type CacheConfig struct {
	DefaultTTL           time.Duration
	EngagementSummaryTTL time.Duration
	CleanupInterval      time.Duration
}

type AppConfig struct {
	ClientURL            string
	AdminURL             string
	ProfileGateThreshold int
	SearchCandidateLimit int
	InvitationTTL        time.Duration
	AllowInsecureTokens  bool
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "linkage")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("JWT_ISSUER", "linkage-va-hub")
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	viper.SetDefault("MINIO_BUCKET", "linkage-media")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	viper.SetDefault("GEMINI_TIMEOUT_SECONDS", 15)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")
	viper.SetDefault("CACHE_DEFAULT_TTL_SECONDS", 600)
	viper.SetDefault("CACHE_ENGAGEMENT_SUMMARY_TTL_SECONDS", 300)
	viper.SetDefault("CACHE_CLEANUP_INTERVAL_SECONDS", 120)
	viper.SetDefault("CLIENT_URL", "http://localhost:3000")
	viper.SetDefault("ADMIN_URL", "http://localhost:3001")
	viper.SetDefault("PROFILE_GATE_THRESHOLD", 80)
	viper.SetDefault("SEARCH_CANDIDATE_LIMIT", 500)
	viper.SetDefault("INVITATION_TTL_HOURS", 168)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:          viper.GetString("JWT_SECRET"),
			Issuer:          viper.GetString("JWT_ISSUER"),
			AccessTokenTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(viper.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		Clerk: ClerkConfig{
			Issuer:   viper.GetString("CLERK_ISSUER"),
			Audience: viper.GetString("CLERK_AUDIENCE"),
		},
		MinIO: MinIOConfig{
			Endpoint:      viper.GetString("MINIO_ENDPOINT"),
			AccessKey:     viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey:     viper.GetString("MINIO_SECRET_KEY"),
			UseSSL:        viper.GetBool("MINIO_USE_SSL"),
			Bucket:        viper.GetString("MINIO_BUCKET"),
			PublicBaseURL: viper.GetString("MINIO_PUBLIC_BASE_URL"),
		},
		Gemini: GeminiConfig{
			APIKey:  viper.GetString("GEMINI_API_KEY"),
			Model:   viper.GetString("GEMINI_MODEL"),
			Timeout: time.Duration(viper.GetInt("GEMINI_TIMEOUT_SECONDS")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Cache: CacheConfig{
			DefaultTTL:           time.Duration(viper.GetInt("CACHE_DEFAULT_TTL_SECONDS")) * time.Second,
			EngagementSummaryTTL: time.Duration(viper.GetInt("CACHE_ENGAGEMENT_SUMMARY_TTL_SECONDS")) * time.Second,
			CleanupInterval:      time.Duration(viper.GetInt("CACHE_CLEANUP_INTERVAL_SECONDS")) * time.Second,
		},
		App: AppConfig{
			ClientURL:            strings.TrimRight(viper.GetString("CLIENT_URL"), "/"),
			AdminURL:             strings.TrimRight(viper.GetString("ADMIN_URL"), "/"),
			ProfileGateThreshold: viper.GetInt("PROFILE_GATE_THRESHOLD"),
			SearchCandidateLimit: viper.GetInt("SEARCH_CANDIDATE_LIMIT"),
			InvitationTTL:        time.Duration(viper.GetInt("INVITATION_TTL_HOURS")) * time.Hour,
			AllowInsecureTokens:  viper.GetBool("ALLOW_INSECURE_TOKEN"),
		},
	}

	if cfg.MongoDB.URI == "" {
		return nil, ErrMissingMongoURI
	}
	return cfg, nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
