package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier implements Verifier
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	if raw == "goodtoken" {
		return &fakeToken{data: map[string]interface{}{"sub": "user1", "email": "test@example.com"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "BadHeader")
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer goodtoken")
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		claims, ok := c.Get("claims")
		require.True(t, ok)
		resp, _ := json.Marshal(gin.H{"claims": claims})
		c.Writer.Write(resp)
	})
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Contains(t, got, "claims")
}

func TestAuthMiddleware_RejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	sessions.SetBlacklistClient(client)
	defer sessions.SetBlacklistClient(nil)

	// add token to blacklist
	token := "black-token"
	require.NoError(t, sessions.BlacklistAccessToken(context.Background(), token, 5*time.Second))

	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) { c.Status(http.StatusOK) })
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

type rejectVerifier struct{}

func (rejectVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	return nil, fmt.Errorf("not mine")
}

func TestChainVerifier(t *testing.T) {
	ch := ChainVerifier{rejectVerifier{}, nil, &fakeVerifier{}}
	tok, err := ch.Verify(context.Background(), "goodtoken")
	require.NoError(t, err)
	require.NotNil(t, tok)

	_, err = ch.Verify(context.Background(), "other")
	require.Error(t, err)

	_, err = ChainVerifier{}.Verify(context.Background(), "goodtoken")
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	require.True(t, ok)
	require.Equal(t, "abc", tok)
	_, ok = BearerToken("Basic abc")
	require.False(t, ok)
	_, ok = BearerToken("Bearer")
	require.False(t, ok)
}

type fakeResolver map[string]*models.User

func (f fakeResolver) ResolvePrincipal(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	return f[sub], nil
}

func principalRouter(res PrincipalResolver, guards ...gin.HandlerFunc) *gin.Engine {
	g := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(&fakeVerifier{}), Principal(res)}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})
	g.GET("/", handlers...)
	return g
}

func serveWithToken(g *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer goodtoken")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestPrincipal_UnknownUserNeedsOnboarding(t *testing.T) {
	rw := serveWithToken(principalRouter(fakeResolver{}))
	require.Equal(t, http.StatusNotFound, rw.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Equal(t, true, body["needsOnboarding"])
}

func TestPrincipal_SuspendedForbidden(t *testing.T) {
	rw := serveWithToken(principalRouter(fakeResolver{"user1": {ID: "user1", Suspended: true}}))
	require.Equal(t, http.StatusForbidden, rw.Code)
}

func TestRequireRoleAndAdmin(t *testing.T) {
	va := fakeResolver{"user1": {ID: "user1", Role: models.RoleVA}}
	require.Equal(t, http.StatusOK, serveWithToken(principalRouter(va, RequireRole(models.RoleVA))).Code)
	require.Equal(t, http.StatusForbidden, serveWithToken(principalRouter(va, RequireRole(models.RoleBusiness))).Code)
	require.Equal(t, http.StatusForbidden, serveWithToken(principalRouter(va, RequireAdmin())).Code)

	admin := fakeResolver{"user1": {ID: "user1", Admin: true}}
	require.Equal(t, http.StatusOK, serveWithToken(principalRouter(admin, RequireAdmin())).Code)
}

func TestOptionalAuth(t *testing.T) {
	res := fakeResolver{"user1": {ID: "user1"}}
	g := gin.New()
	g.GET("/", OptionalAuth(&fakeVerifier{}), OptionalPrincipal(res), func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.ID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	rw := serveWithToken(g)
	require.Equal(t, "user1", rw.Body.String())

	for _, header := range []string{"", "Bearer bad"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rw = httptest.NewRecorder()
		g.ServeHTTP(rw, req)
		require.Equal(t, http.StatusOK, rw.Code)
		require.Equal(t, "anonymous", rw.Body.String())
	}
}
