package users

import (
	"context"
	"errors"
	"testing"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
)

func TestUpsertFromClaims(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	claims := map[string]interface{}{
		"sub":   "user_clerk_123",
		"email": "X@Example.com",
		"name":  "X User",
	}

	u, err := svc.UpsertFromClaims(ctx, claims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.ClerkID != "user_clerk_123" {
		t.Fatalf("unexpected clerk id: %s", u.ClerkID)
	}
	if u.Email != "x@example.com" {
		t.Fatalf("expected lowercased email, got %s", u.Email)
	}
	if u.Provider != models.ProviderClerk || !u.IsVerified {
		t.Fatalf("expected verified clerk user: %+v", u)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps to be set: %+v", u)
	}

	// second call returns the same record
	again, err := svc.UpsertFromClaims(ctx, claims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != u.ID {
		t.Fatalf("expected same user, got %s and %s", again.ID, u.ID)
	}

	// missing sub => returns nil
	u2, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"email": "y@e.com"})
	if err != nil {
		t.Fatalf("unexpected error on missing sub: %v", err)
	}
	if u2 != nil {
		t.Fatalf("expected nil when sub missing, got: %v", u2)
	}
}

func TestUpsertFromClaims_LinksExistingEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	local, err := svc.Register(ctx, "maria@example.com", "secret1", "Maria", models.RoleVA)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	linked, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "user_abc", "email": "maria@example.com"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if linked.ID != local.ID || linked.ClerkID != "user_abc" {
		t.Fatalf("expected local account to be linked, got %+v", linked)
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.co", "123", "A", models.RoleVA); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password error, got %v", err)
	}
	if _, err := svc.Register(ctx, "a@b.co", "secret1", "A", "admin"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	u, err := svc.Register(ctx, " A@B.co ", "secret1", "A", models.RoleBusiness)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.PasswordHash == "secret1" || u.PasswordHash == "" {
		t.Fatalf("password must be hashed")
	}
	if _, err := svc.Register(ctx, "a@b.co", "secret1", "A", models.RoleBusiness); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}

	if _, err := svc.Authenticate(ctx, "a@b.co", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	got, err := svc.Authenticate(ctx, "A@b.co", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.SignInCount != 1 || got.LastSignInAt == nil {
		t.Fatalf("expected sign-in to be recorded: %+v", got)
	}

	if _, err := svc.ToggleSuspend(ctx, "someone-else", u.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "a@b.co", "secret1"); !errors.Is(err, ErrSuspended) {
		t.Fatalf("expected suspended, got %v", err)
	}
}

func TestResolvePrincipal(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	local, _ := svc.Register(ctx, "l@x.io", "secret1", "L", models.RoleVA)
	clerk, _ := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "user_c", "email": "c@x.io"})

	got, err := svc.ResolvePrincipal(ctx, map[string]interface{}{"sub": local.ID})
	if err != nil || got == nil || got.ID != local.ID {
		t.Fatalf("expected local user, got %v %v", got, err)
	}
	got, err = svc.ResolvePrincipal(ctx, map[string]interface{}{"sub": "user_c"})
	if err != nil || got == nil || got.ID != clerk.ID {
		t.Fatalf("expected clerk user, got %v %v", got, err)
	}
	got, err = svc.ResolvePrincipal(ctx, map[string]interface{}{"sub": "nobody"})
	if err != nil || got != nil {
		t.Fatalf("expected nil for unknown subject, got %v %v", got, err)
	}
}

func TestAdminLifecycle(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	has, err := svc.HasAdmin(ctx)
	if err != nil || has {
		t.Fatalf("expected no admin: %v %v", has, err)
	}
	admin, err := svc.CreateFirstAdmin(ctx, "root@linkage.ph", "secret1", "Root")
	if err != nil {
		t.Fatalf("create first admin: %v", err)
	}
	if !admin.Admin {
		t.Fatalf("expected admin flag")
	}
	if _, err := svc.CreateFirstAdmin(ctx, "other@linkage.ph", "secret1", "Other"); !errors.Is(err, ErrAdminExists) {
		t.Fatalf("expected ErrAdminExists, got %v", err)
	}
	if _, err := svc.ToggleAdmin(ctx, admin.ID, admin.ID); !errors.Is(err, ErrSelfChange) {
		t.Fatalf("expected self change error, got %v", err)
	}

	va, _ := svc.Register(ctx, "va@x.io", "secret1", "VA", models.RoleVA)
	promoted, err := svc.ToggleAdmin(ctx, admin.ID, va.ID)
	if err != nil || !promoted.Admin {
		t.Fatalf("expected promotion: %v %v", promoted, err)
	}
	admins, err := svc.ListAdmins(ctx)
	if err != nil || len(admins) != 2 {
		t.Fatalf("expected two admins, got %d (%v)", len(admins), err)
	}
}

func TestAssignRoleAndLinkProfile(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	u, _ := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "user_r", "email": "r@x.io"})

	if _, err := svc.AssignRole(ctx, u.ID, models.RoleBusiness); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	if _, err := svc.AssignRole(ctx, u.ID, models.RoleVA); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected role change to be refused, got %v", err)
	}
	if err := svc.LinkProfile(ctx, u.ID, models.RoleBusiness, "biz-1"); err != nil {
		t.Fatalf("link: %v", err)
	}
	got, _ := svc.Get(ctx, u.ID)
	if got.BusinessProfile != "biz-1" {
		t.Fatalf("expected business profile link, got %+v", got)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
