package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/sessions"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
)

// Context keys set by the auth middleware.
const (
	ClaimsKey = "claims"
	TokenKey  = "accessToken"
	UserKey   = "user"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier []Verifier

func (ch ChainVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	err := errors.New("no verifier configured")
	for _, v := range ch {
		if v == nil {
			continue
		}
		tok, verr := v.Verify(ctx, raw)
		if verr == nil {
			return tok, nil
		}
		err = verr
	}
	return nil, err
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// VerifyClaims verifies raw, rejects blacklisted tokens and decodes the claims.
func VerifyClaims(ctx context.Context, ver Verifier, raw string) (map[string]interface{}, error) {
	revoked, err := sessions.IsAccessTokenBlacklisted(ctx, raw)
	if err != nil {
		logger.Warnf("blacklist lookup failed: %v", err)
	}
	if revoked {
		return nil, errors.New("token has been revoked")
	}
	tok, err := ver.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		return nil, errors.New("failed to parse claims")
	}
	return claims, nil
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token, ok := BearerToken(auth)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}
		claims, err := VerifyClaims(c.Request.Context(), ver, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// OptionalAuth sets claims when a valid bearer token is present and never aborts.
func OptionalAuth(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := BearerToken(c.GetHeader("Authorization")); ok {
			if claims, err := VerifyClaims(c.Request.Context(), ver, token); err == nil {
				c.Set(ClaimsKey, claims)
				c.Set(TokenKey, token)
			}
		}
		c.Next()
	}
}

// PrincipalResolver maps verified claims to a stored user; (nil, nil) means unknown.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, claims map[string]interface{}) (*models.User, error)
}

// Claims returns the verified claims of the request, if any.
func Claims(c *gin.Context) (map[string]interface{}, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	cm, ok := v.(map[string]interface{})
	return cm, ok
}

// CurrentUser returns the user loaded by Principal or OptionalPrincipal.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// Principal loads the user behind the verified claims. Unknown subjects get 404 with
// needsOnboarding so the client can finish sign-up; suspended accounts get 403.
func Principal(res PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		u, err := res.ResolvePrincipal(c.Request.Context(), claims)
		if err != nil {
			logger.Errorf("resolve principal: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}
		if u == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found", "needsOnboarding": true})
			return
		}
		if u.Suspended {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account suspended"})
			return
		}
		c.Set(UserKey, u)
		c.Next()
	}
}

// OptionalPrincipal loads the user when claims are present and never aborts.
func OptionalPrincipal(res PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := Claims(c); ok {
			if u, err := res.ResolvePrincipal(c.Request.Context(), claims); err == nil && u != nil && !u.Suspended {
				c.Set(UserKey, u)
			}
		}
		c.Next()
	}
}

// RequireRole rejects users whose role is not one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role " + u.Role + " is not authorized for this route"})
	}
}

// RequireAdmin rejects non-admin users.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if !u.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
