package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/config"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/oidc"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/sessions"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/tokens"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	cfg   *config.Config
	users *users.Service
	srv   *mr.Miniredis
	g     *gin.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	srv, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	sessions.SetBlacklistClient(client)
	t.Cleanup(func() { sessions.SetBlacklistClient(nil) })

	cfg := &config.Config{}
	cfg.JWT.Secret = "handlers-test-secret-32-bytes-xx"
	cfg.JWT.Issuer = "linkage-test"
	uSvc := users.NewService(users.NewMemoryRepository())
	sSvc := sessions.NewService(sessions.NewRedisRepository(client, "session:"), time.Hour)
	h := NewAuthHandler(cfg, uSvc, sSvc, oidc.NewInsecureVerifier())

	g := gin.New()
	h.Register(g.Group("/"))
	api := g.Group("/api", middleware.AuthMiddleware(tokens.NewVerifier(cfg)), middleware.Principal(uSvc))
	h.RegisterMe(api)
	return &authFixture{cfg: cfg, users: uSvc, srv: srv, g: g}
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
		Admin bool   `json:"admin"`
	} `json:"user"`
}

func TestAuth_RegisterLoginRefresh(t *testing.T) {
	f := newAuthFixture(t)

	w := do(f.g, http.MethodPost, "/auth/register", `{"email":"Maria@Example.com","password":"secret1","name":"Maria","role":"va"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg tokenPair
	decode(t, w, &reg)
	require.NotEmpty(t, reg.AccessToken)
	require.NotEmpty(t, reg.RefreshToken)
	require.Equal(t, "maria@example.com", reg.User.Email)
	require.Equal(t, 900, reg.ExpiresIn)

	w = do(f.g, http.MethodPost, "/auth/register", `{"email":"maria@example.com","password":"secret1","role":"va"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	w = do(f.g, http.MethodPost, "/auth/register", `{"email":"x@example.com","password":"123","role":"va"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(f.g, http.MethodPost, "/auth/login", `{"email":"maria@example.com","password":"wrong1"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(f.g, http.MethodPost, "/auth/login", `{"email":"maria@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login tokenPair
	decode(t, w, &login)

	w = do(f.g, http.MethodGet, "/api/me", "", bearer(login.AccessToken)...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var me struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		NeedsOnboarding bool `json:"needsOnboarding"`
	}
	decode(t, w, &me)
	require.Equal(t, reg.User.ID, me.User.ID)
	require.False(t, me.NeedsOnboarding)

	w = do(f.g, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+login.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refreshed tokenPair
	decode(t, w, &refreshed)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// a refresh token rotates only once
	w = do(f.g, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+login.RefreshToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_SuspendedLoginForbidden(t *testing.T) {
	f := newAuthFixture(t)
	u, err := f.users.Register(context.Background(), "s@x.io", "secret1", "S", "business")
	require.NoError(t, err)
	_, err = f.users.ToggleSuspend(context.Background(), "admin", u.ID)
	require.NoError(t, err)

	w := do(f.g, http.MethodPost, "/auth/login", `{"email":"s@x.io","password":"secret1"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuth_LogoutBlacklistsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	w := do(f.g, http.MethodPost, "/auth/register", `{"email":"b@x.io","password":"secret1","role":"business"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var pair tokenPair
	decode(t, w, &pair)

	w = do(f.g, http.MethodPost, "/auth/logout", `{"refreshToken":"`+pair.RefreshToken+`"}`, bearer(pair.AccessToken)...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	revoked, err := sessions.IsAccessTokenBlacklisted(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	require.True(t, revoked)

	w = do(f.g, http.MethodGet, "/api/me", "", bearer(pair.AccessToken)...)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(f.g, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+pair.RefreshToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// blacklist entries expire with the token
	f.srv.FastForward(20 * time.Minute)
	revoked, err = sessions.IsAccessTokenBlacklisted(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestAuth_CreateFirstAdmin(t *testing.T) {
	f := newAuthFixture(t)

	w := do(f.g, http.MethodGet, "/auth/admin-exists", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"exists":false}`, w.Body.String())

	w = do(f.g, http.MethodPost, "/auth/create-first-admin", `{"email":"root@linkage.ph","password":"secret1","name":"Root"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pair tokenPair
	decode(t, w, &pair)
	require.True(t, pair.User.Admin)

	w = do(f.g, http.MethodPost, "/auth/create-first-admin", `{"email":"other@linkage.ph","password":"secret1"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = do(f.g, http.MethodGet, "/auth/admin-exists", "")
	require.JSONEq(t, `{"exists":true}`, w.Body.String())
}

func fakeJWT(claims map[string]interface{}) string {
	b, _ := json.Marshal(claims)
	return "hdr." + base64.RawURLEncoding.EncodeToString(b) + ".sig"
}

func TestAuth_ClerkSync(t *testing.T) {
	f := newAuthFixture(t)
	tok := fakeJWT(map[string]interface{}{"sub": "user_clerk_1", "email": "c@x.io", "name": "Clerk User"})

	w := do(f.g, http.MethodPost, "/auth/clerk/sync", `{}`, bearer(tok)...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"needsOnboarding":true`)

	w = do(f.g, http.MethodPost, "/auth/clerk/sync", `{"role":"business"}`, bearer(tok)...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"needsOnboarding":false`)

	w = do(f.g, http.MethodPost, "/auth/clerk/sync", `{"role":"va"}`, bearer(tok)...)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(f.g, http.MethodPost, "/auth/clerk/sync", `{}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseExpFromJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	got, err := parseExpFromJWT(fakeJWT(map[string]interface{}{"exp": exp}))
	require.NoError(t, err)
	require.Equal(t, exp, got.Unix())

	_, err = parseExpFromJWT(fakeJWT(map[string]interface{}{"sub": "x"}))
	require.Error(t, err)
	_, err = parseExpFromJWT("garbage")
	require.Error(t, err)
}
