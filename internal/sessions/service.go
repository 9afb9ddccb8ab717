package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// DefaultTTL is the refresh session lifetime when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidRefresh is returned when a refresh token is unknown or expired.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
	ttl  time.Duration
}

// NewService builds a session service. A zero ttl selects DefaultTTL.
func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: r, ttl: ttl}
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateSession stores a new refresh session for the user and returns the refresh token.
func (s *Service) CreateSession(ctx context.Context, userID, userAgent, ip string) (string, error) {
	r, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	sess := &Session{
		RefreshToken: r,
		UserID:       userID,
		UserAgent:    userAgent,
		IP:           ip,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return r, nil
}

// ValidateRefresh returns the session if refresh token is valid and not expired
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Expired(time.Now().UTC()) {
		_ = s.repo.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return sess, nil
}

// Rotate consumes a refresh token and issues a new one for the same user.
// A refresh token can only be rotated once.
func (s *Service) Rotate(ctx context.Context, refresh string) (*Session, string, error) {
	sess, err := s.ValidateRefresh(ctx, refresh)
	if err != nil {
		return nil, "", err
	}
	if sess == nil {
		return nil, "", ErrInvalidRefresh
	}
	if err := s.repo.DeleteByRefresh(ctx, refresh); err != nil {
		return nil, "", err
	}
	next, err := s.CreateSession(ctx, sess.UserID, sess.UserAgent, sess.IP)
	if err != nil {
		return nil, "", err
	}
	return sess, next, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}

// RevokeUser deletes every session of a user (suspension, password reset).
func (s *Service) RevokeUser(ctx context.Context, userID string) error {
	return s.repo.DeleteByUser(ctx, userID)
}
