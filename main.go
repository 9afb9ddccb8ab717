package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/config"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/database"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/oidc"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/search/gemini"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/sessions"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/storage"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/metrics"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

const mongoConnectAttempts = 5

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: env=%s redis=%v clerk=%v minio=%v gemini=%v",
		cfg.Server.Environment, cfg.Redis.Addr() != "", cfg.Clerk.Issuer != "", cfg.MinIO.Endpoint != "", cfg.Gemini.APIKey != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts, func(attempt int, err error) {
		logger.Warnf("mongo connect attempt %d failed: %v", attempt, err)
	})
	if err != nil {
		logger.Fatalf("failed to connect to MongoDB: %v", err)
	}
	db := client.Database(cfg.MongoDB.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Fatalf("failed to ensure indexes: %v", err)
	}
	logger.Infof("connected to MongoDB database %s", cfg.MongoDB.Database)

	ext := externals{redis: connectRedis(ctx, cfg)}
	sessions.SetBlacklistClient(ext.redis)
	if store := connectStorage(ctx, cfg); store != nil {
		ext.store = store
	}
	if an := searchAnalyzer(ctx, cfg); an != nil {
		ext.analyzer = an
	}
	if cfg.Clerk.Issuer != "" {
		v, err := oidc.NewVerifier(ctx, cfg.Clerk.Issuer, cfg.Clerk.Audience)
		if err != nil {
			logger.Warnf("clerk verifier disabled: %v", err)
		} else {
			ext.clerk = v
		}
	}

	a := newApp(ctx, cfg, mongoRepos(db, ext.redis), ext)
	r := a.routes()
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	registerHealth(r, client, ext.redis, ext.clerk != nil)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Errorf("mongo disconnect: %v", err)
	}
	if ext.redis != nil {
		_ = ext.redis.Close()
	}
}

// connectRedis returns a client when Redis is configured and reachable.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	addr := cfg.Redis.Addr()
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warnf("redis ping failed, continuing without redis: %v", err)
		_ = rdb.Close()
		return nil
	}
	logger.Infof("connected to Redis at %s", addr)
	return rdb
}

func connectStorage(ctx context.Context, cfg *config.Config) *storage.MinIOStorage {
	if cfg.MinIO.Endpoint == "" {
		return nil
	}
	store, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
	if err != nil {
		logger.Warnf("uploads disabled: %v", err)
		return nil
	}
	return store
}

func searchAnalyzer(ctx context.Context, cfg *config.Config) *gemini.Analyzer {
	if cfg.Gemini.APIKey == "" {
		logger.Infof("GEMINI_API_KEY not set, search uses keyword fallback")
		return nil
	}
	gen, err := gemini.NewGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		logger.Warnf("gemini disabled: %v", err)
		return nil
	}
	return gemini.NewAnalyzer(gen, logger.L(), 500)
}

// insecureVerifier accepts unsigned tokens. It is only built outside production
// and when explicitly enabled.
func insecureVerifier(cfg *config.Config) middleware.Verifier {
	if !cfg.App.AllowInsecureTokens || cfg.IsProduction() {
		return nil
	}
	logger.Warnf("accepting unsigned tokens (ALLOW_INSECURE_TOKENS)")
	return oidc.NewInsecureVerifier()
}

func registerHealth(r *gin.Engine, client *mongo.Client, rdb *redis.Client, clerk bool) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": time.Since(startTime).String()})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := gin.H{}
		if client == nil {
			deps["mongo"] = "not configured"
			ready = false
		} else if err := client.Ping(ctx, nil); err != nil {
			deps["mongo"] = "error: " + err.Error()
			ready = false
		} else {
			deps["mongo"] = "ok"
		}
		if rdb == nil {
			deps["redis"] = "disabled"
		} else if err := rdb.Ping(ctx).Err(); err != nil {
			deps["redis"] = "error: " + err.Error()
			ready = false
		} else {
			deps["redis"] = "ok"
		}
		deps["clerk"] = "disabled"
		if clerk {
			deps["clerk"] = "ok"
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})
}
