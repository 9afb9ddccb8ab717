package sessions

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fake repo for testing
type fakeRepo struct {
	store map[string]*Session
}

func (f *fakeRepo) Create(ctx context.Context, s *Session) error {
	if f.store == nil {
		f.store = map[string]*Session{}
	}
	f.store[s.RefreshToken] = s
	return nil
}

func (f *fakeRepo) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	s, ok := f.store[refresh]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (f *fakeRepo) DeleteByRefresh(ctx context.Context, refresh string) error {
	delete(f.store, refresh)
	return nil
}

func (f *fakeRepo) DeleteByUser(ctx context.Context, userID string) error {
	for k, s := range f.store {
		if s.UserID == userID {
			delete(f.store, k)
		}
	}
	return nil
}

func TestCreateAndValidateSession(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, time.Hour)
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "user-1", "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if r == "" {
		t.Fatalf("expected refresh token")
	}
	sess, err := svc.ValidateRefresh(ctx, r)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if sess == nil || sess.UserID != "user-1" {
		t.Fatalf("unexpected session: %v", sess)
	}
	if err := svc.DeleteRefresh(ctx, r); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if sess2, _ := svc.ValidateRefresh(ctx, r); sess2 != nil {
		t.Fatalf("expected session removed")
	}
}

func TestValidateRefresh_ExpiredIsRemoved(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, time.Hour)
	ctx := context.Background()
	_ = repo.Create(ctx, &Session{RefreshToken: "old", UserID: "u", ExpiresAt: time.Now().Add(-time.Second)})

	sess, err := svc.ValidateRefresh(ctx, "old")
	if err != nil || sess != nil {
		t.Fatalf("expected expired session to be rejected: %v %v", sess, err)
	}
	if _, ok := repo.store["old"]; ok {
		t.Fatalf("expected expired session to be deleted")
	}
}

func TestRotate(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, 0)
	ctx := context.Background()
	first, err := svc.CreateSession(ctx, "user-9", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sess, next, err := svc.Rotate(ctx, first)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if sess.UserID != "user-9" || next == "" || next == first {
		t.Fatalf("unexpected rotation result: %v %q", sess, next)
	}
	if _, _, err := svc.Rotate(ctx, first); !errors.Is(err, ErrInvalidRefresh) {
		t.Fatalf("expected reused token to be rejected, got %v", err)
	}
	if got := repo.store[next]; got == nil || time.Until(got.ExpiresAt) < DefaultTTL-time.Minute {
		t.Fatalf("expected default ttl on rotated session: %+v", got)
	}

	if err := svc.RevokeUser(ctx, "user-9"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if len(repo.store) != 0 {
		t.Fatalf("expected all sessions revoked, have %d", len(repo.store))
	}
}
