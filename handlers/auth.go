package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/config"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/sessions"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/tokens"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

const defaultAccessTTL = 15 * time.Minute

// LoginRequest is the password login body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest creates a local account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Role     string `json:"role" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	clerk       middleware.Verifier
}

// NewAuthHandler builds the handler. clerk verifies Clerk session tokens for
// /auth/clerk/sync and may be nil when Clerk is not configured.
func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, clerk middleware.Verifier) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, clerk: clerk}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/register", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
	a.POST("/create-first-admin", h.CreateFirstAdmin)
	a.GET("/admin-exists", h.AdminExists)
	if h.clerk != nil {
		a.POST("/clerk/sync", middleware.AuthMiddleware(h.clerk), h.ClerkSync)
	}
}

// RegisterMe mounts GET /me on a group that already resolved the principal.
func (h *AuthHandler) RegisterMe(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
}

func (h *AuthHandler) accessTTL() time.Duration {
	if h.cfg.JWT.AccessTokenTTL > 0 {
		return h.cfg.JWT.AccessTokenTTL
	}
	return defaultAccessTTL
}

// Issue creates an access token and a refresh session for u.
func (h *AuthHandler) Issue(c *gin.Context, u *models.User) (gin.H, error) {
	ttl := h.accessTTL()
	access, err := tokens.GenerateAccessToken(h.cfg, u, ttl)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.ID, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return gin.H{"accessToken": access, "refreshToken": rft, "user": u, "expiresIn": int(ttl.Seconds())}, nil
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, status int, u *models.User) {
	body, err := h.Issue(c, u)
	if err != nil {
		logger.Errorf("issue tokens for %s: %v", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(status, body)
}

// SignUp registers a local VA or business account and logs it in.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.usersSvc.Register(c.Request.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Infow("user registered", "user", u.ID, "role", u.Role)
	h.respondWithTokens(c, http.StatusCreated, u)
}

// Login checks e-mail and password and returns an access/refresh token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondWithTokens(c, http.StatusOK, u)
}

// Refresh consumes a refresh token and returns a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, next, err := h.sessionsSvc.Rotate(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if err == sessions.ErrInvalidRefresh {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		logger.Errorf("rotate refresh session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	u, err := h.usersSvc.Get(c.Request.Context(), sess.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user no longer exists"})
		return
	}
	if u.Suspended {
		_ = h.sessionsSvc.DeleteRefresh(c.Request.Context(), next)
		c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
		return
	}
	ttl := h.accessTTL()
	access, err := tokens.GenerateAccessToken(h.cfg, u, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "refreshToken": next, "expiresIn": int(ttl.Seconds())})
}

// Logout invalidates the refresh token and blacklists the bearer access token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if at, ok := middleware.BearerToken(c.GetHeader("Authorization")); ok {
		if exp, err := parseExpFromJWT(at); err == nil {
			if err := sessions.BlacklistUntil(c.Request.Context(), at, exp); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
				return
			}
		}
	}
	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// AdminExists tells the admin app whether first-run setup is still open.
func (h *AuthHandler) AdminExists(c *gin.Context) {
	has, err := h.usersSvc.HasAdmin(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": has})
}

// CreateFirstAdmin bootstraps the first admin account; refused once one exists.
func (h *AuthHandler) CreateFirstAdmin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.usersSvc.CreateFirstAdmin(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Warnf("first admin account created: %s", u.Email)
	h.respondWithTokens(c, http.StatusCreated, u)
}

// ClerkSync links the verified Clerk session to a user and optionally sets its role.
func (h *AuthHandler) ClerkSync(c *gin.Context) {
	claims, _ := middleware.Claims(c)
	var req struct {
		Role string `json:"role"`
	}
	_ = c.ShouldBindJSON(&req)
	ctx := c.Request.Context()
	u, err := h.usersSvc.UpsertFromClaims(ctx, claims)
	if err != nil {
		logger.Errorf("user upsert error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user upsert failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token has no subject"})
		return
	}
	if req.Role != "" {
		if u, err = h.usersSvc.AssignRole(ctx, u.ID, req.Role); err != nil {
			fail(c, err)
			return
		}
	}
	if u.Suspended {
		c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "needsOnboarding": u.Role == ""})
}

// Me returns the current user.
func (h *AuthHandler) Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":            u,
		"vaProfile":       u.VAProfile,
		"businessProfile": u.BusinessProfile,
		"needsOnboarding": u.Role == "" && !u.Admin,
	})
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim as time.Time.
// This performs payload-only parsing (no signature verification) and is suitable
// for computing remaining TTLs for blacklisting purposes.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	payload := parts[1]
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		b, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return time.Time{}, err
		}
	}
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	var claims map[string]interface{}
	if err := dec.Decode(&claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0), nil
	case json.Number:
		i64, err := vv.Int64()
		if err != nil {
			f, err2 := vv.Float64()
			if err2 != nil {
				return time.Time{}, err
			}
			return time.Unix(int64(f), 0), nil
		}
		return time.Unix(i64, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported exp type %T", v)
	}
}
