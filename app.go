package main

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/handlers"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/admin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/announcements"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/businesses"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/cache"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/config"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/database"
	enghandler "github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement/handler"
	engrepo "github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement/repository"
	engservice "github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement/service"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/intercept"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/invitations"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/messaging"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/notifications"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/profile"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/realtime"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/search"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/sessions"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/settings"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/tokens"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/vas"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// repos is the persistence layer the services are built on.
type repos struct {
	users         users.UserRepository
	sessions      sessions.Repository
	vas           vas.Repository
	businesses    businesses.Repository
	messaging     messaging.Repository
	notifications notifications.Repository
	announcements announcements.Repository
	invitations   invitations.Repository
	settings      settings.Repository
	engagements   engrepo.Repository
}

// mongoRepos binds every repository to its collection. Sessions live in Redis when it is available.
func mongoRepos(db *mongo.Database, rdb *redis.Client) repos {
	r := repos{
		users:         users.NewMongoUserRepository(db.Collection(database.UsersCollection)),
		vas:           vas.NewMongoRepository(db.Collection(database.VAsCollection)),
		businesses:    businesses.NewMongoRepository(db.Collection(database.BusinessesCollection)),
		messaging:     messaging.NewMongoRepository(db),
		notifications: notifications.NewMongoRepository(db.Collection(database.NotificationsCollection)),
		announcements: announcements.NewMongoRepository(db),
		invitations:   invitations.NewMongoRepository(db.Collection(database.InvitationsCollection)),
		settings:      settings.NewMongoRepository(db.Collection(database.SettingsCollection)),
		engagements:   engrepo.NewMongoRepo(db.Collection(database.EngagementsCollection)),
	}
	if rdb != nil {
		r.sessions = sessions.NewRedisRepository(rdb, "session:")
		logger.Infof("using Redis for session storage")
	} else {
		r.sessions = sessions.NewMongoRepository(db.Collection(database.SessionsCollection))
	}
	return r
}

// externals are the optional outside services; nil fields disable the feature.
type externals struct {
	redis    *redis.Client
	store    handlers.Uploader
	analyzer search.Analyzer
	clerk    middleware.Verifier
}

type app struct {
	cfg *config.Config
	ext externals
	hub *realtime.Hub

	users         *users.Service
	sessions      *sessions.Service
	settings      *settings.Service
	vas           *vas.Service
	businesses    *businesses.Service
	notifications *notifications.Service
	announcements *announcements.Service
	messaging     *messaging.Service
	intercept     *intercept.Service
	invitations   *invitations.Service
	engagements   *engservice.Service
	admin         *admin.Service
	searcher      *search.Searcher
}

// newApp builds the services. ctx bounds background work such as the realtime subscription.
func newApp(ctx context.Context, cfg *config.Config, r repos, ext externals) *app {
	a := &app{cfg: cfg, ext: ext, hub: realtime.NewHub()}
	if ext.redis != nil {
		broker := realtime.NewRedisBroker(ext.redis, realtime.DefaultChannel, a.hub)
		if err := broker.Start(ctx); err != nil {
			logger.Warnf("realtime broker disabled: %v", err)
		} else {
			a.hub.UseBroker(broker)
		}
	}
	shared := cache.New(ext.redis, cfg.Cache.DefaultTTL, cfg.Cache.CleanupInterval)

	a.users = users.NewService(r.users)
	a.sessions = sessions.NewService(r.sessions, cfg.JWT.RefreshTokenTTL)
	a.settings = settings.NewService(r.settings, shared)
	if seeded, err := a.settings.Seed(ctx); err != nil {
		logger.Warnf("seed settings: %v", err)
	} else if len(seeded) > 0 {
		logger.Infow("seeded settings", "keys", seeded)
	}
	a.vas = vas.NewService(r.vas)
	a.businesses = businesses.NewService(r.businesses)
	a.notifications = notifications.NewService(r.notifications, a.hub)
	a.announcements = announcements.NewService(r.announcements, a.hub)
	a.messaging = messaging.NewService(r.messaging, a.users, a.notifications, a.hub,
		messaging.WithGate(a.profileGate),
		messaging.WithConversationCounter(a.vas),
	)
	a.hub.SetConversationAuthorizer(a.messaging)
	a.intercept = intercept.NewService(a.messaging, a.hub, a.businessName)
	a.invitations = invitations.NewService(r.invitations, a.users, cfg.App.AdminURL)
	a.invitations.SetTTL(cfg.App.InvitationTTL)

	summaryTTL := cfg.Cache.EngagementSummaryTTL
	if secs := a.settings.Int(ctx, settings.KeyEngagementSummaryTTL, 0); secs > 0 {
		summaryTTL = time.Duration(secs) * time.Second
	}
	a.engagements = engservice.New(r.engagements, shared, a.hub,
		engservice.WithSummaryTTL(summaryTTL),
		engservice.WithVANames(a.vaName),
	)
	a.admin = admin.NewService(a.users, a.vas, a.businesses, a.messaging, a.engagements)

	a.searcher = search.NewSearcher(ext.analyzer)
	a.searcher.SetTimeout(cfg.Gemini.Timeout)
	return a
}

// profileGate reports a business user's profile completion and the current threshold.
func (a *app) profileGate(ctx context.Context, businessUserID string) (profile.Completion, int, error) {
	threshold := a.settings.Int(ctx, settings.KeyProfileGateThreshold, a.cfg.App.ProfileGateThreshold)
	b, err := a.businesses.GetByUser(ctx, businessUserID)
	if errors.Is(err, businesses.ErrNotFound) {
		return profile.Business(nil), threshold, nil
	}
	if err != nil {
		return profile.Completion{}, threshold, err
	}
	return profile.Business(b), threshold, nil
}

// businessName prefers the company name and falls back to the account name.
func (a *app) businessName(ctx context.Context, userID string) string {
	if b, err := a.businesses.GetByUser(ctx, userID); err == nil && b.DisplayName() != "" {
		return b.DisplayName()
	}
	if u, err := a.users.Get(ctx, userID); err == nil {
		if u.Name != "" {
			return u.Name
		}
		return u.Email
	}
	return "a business"
}

func (a *app) vaName(ctx context.Context, vaUserID string) (string, error) {
	if va, err := a.vas.GetByUser(ctx, vaUserID); err == nil && va.Name != "" {
		return va.Name, nil
	}
	u, err := a.users.Get(ctx, vaUserID)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

// verifier accepts the API's own tokens, then Clerk session tokens, then (in
// integration mode only) unsigned tokens.
func (a *app) verifier() middleware.Verifier {
	chain := middleware.ChainVerifier{tokens.NewVerifier(a.cfg)}
	if a.ext.clerk != nil {
		chain = append(chain, a.ext.clerk)
	}
	if ins := insecureVerifier(a.cfg); ins != nil {
		chain = append(chain, ins)
	}
	return chain
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}

// routes builds the HTTP surface: public /api, authenticated /api and /api/admin.
func (a *app) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Metrics(), gin.Logger())
	if len(a.cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(corsConfig(a.cfg.CORS.AllowedOrigins)))
	}
	if rl := a.cfg.RateLimit; rl.Enabled {
		if rl.UseRedis && a.ext.redis != nil {
			r.Use(middleware.RedisRateLimitMiddleware(a.ext.redis, rl.RPS, rl.Burst, time.Duration(rl.WindowSeconds)*time.Second))
		} else {
			r.Use(middleware.RateLimitMiddleware(rl.RPS, rl.Burst))
		}
	}

	ver := a.verifier()
	public := r.Group("/api", middleware.OptionalAuth(ver), middleware.OptionalPrincipal(a.users))
	authed := r.Group("/api", middleware.AuthMiddleware(ver), middleware.Principal(a.users))
	adminGroup := authed.Group("/admin", middleware.RequireAdmin())
	businessOnly := authed.Group("", middleware.RequireRole(models.RoleBusiness))

	authH := handlers.NewAuthHandler(a.cfg, a.users, a.sessions, a.ext.clerk)
	authH.Register(public.Group("", middleware.ScopedRateLimit("auth", 1, 10)))
	authH.RegisterMe(authed)

	vaH := handlers.NewVAHandler(a.vas, a.searcher, a.ext.store, a.users, a.settings)
	vaH.SetCandidateLimit(a.cfg.App.SearchCandidateLimit)
	vaH.Register(public, authed)

	handlers.NewBusinessHandler(a.businesses, a.ext.store, a.users).Register(authed)
	handlers.NewProfileHandler(a.vas, a.businesses, a.settings).Register(authed)
	handlers.NewConversationHandler(a.messaging).Register(authed.Group("", middleware.ScopedRateLimit("messages", 2, 20)))
	handlers.NewNotificationHandler(a.notifications).Register(authed)

	annH := handlers.NewAnnouncementHandler(a.announcements)
	annH.Register(authed)
	annH.RegisterAdmin(adminGroup)

	cfgH := handlers.NewConfigHandler(a.settings)
	cfgH.RegisterPublic(public)
	cfgH.RegisterAdmin(adminGroup)

	invH := handlers.NewInvitationHandler(a.invitations, authH)
	invH.RegisterPublic(public)
	invH.RegisterAdmin(adminGroup)

	handlers.NewAdminHandler(a.admin, a.users, a.vas, a.businesses, a.sessions).Register(adminGroup)
	handlers.NewInterceptHandler(a.intercept, a.messaging, a.users, a.businesses).Register(adminGroup)
	enghandler.RegisterEngagementRoutes(businessOnly, adminGroup, a.engagements)

	handlers.NewWSHandler(a.hub, ver, a.users, a.cfg.CORS.AllowedOrigins).Register(r)
	handlers.RegisterSwagger(r)
	return r
}
