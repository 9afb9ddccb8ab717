package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/config"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// ErrMissingSecret is returned when JWT_SECRET is not configured.
var ErrMissingSecret = errors.New("jwt secret not configured")

// GenerateAccessToken creates a signed HS256 access token for the user
func GenerateAccessToken(cfg *config.Config, u *models.User, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", ErrMissingSecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
		"admin": u.Admin,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if cfg.JWT.Issuer != "" {
		claims["iss"] = cfg.JWT.Issuer
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// Parse validates signature, algorithm, expiry and (when set) issuer.
func Parse(secret, issuer, raw string) (jwt.MapClaims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if _, err := Expiry(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Expiry returns the exp claim of a verified token.
func Expiry(claims jwt.MapClaims) (time.Time, error) {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	return exp.Time, nil
}

type claimsToken struct {
	claims jwt.MapClaims
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Verifier checks locally issued access tokens for AuthMiddleware.
type Verifier struct {
	secret string
	issuer string
}

func NewVerifier(cfg *config.Config) *Verifier {
	return &Verifier{secret: cfg.JWT.Secret, issuer: cfg.JWT.Issuer}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := Parse(v.secret, v.issuer, raw)
	if err != nil {
		return nil, err
	}
	return &claimsToken{claims: claims}, nil
}
