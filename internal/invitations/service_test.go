package invitations

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *users.Service) {
	t.Helper()
	accounts := users.NewService(users.NewMemoryRepository())
	return NewService(NewMemoryRepository(), accounts, "https://admin.linkage.ph/"), accounts
}

func TestInviteVerifyAccept(t *testing.T) {
	svc, accounts := newService(t)
	ctx := context.Background()

	created, err := svc.Invite(ctx, "admin-1", " New@Linkage.ph ", "welcome aboard")
	require.NoError(t, err)
	require.Equal(t, "new@linkage.ph", created.Invitation.Email)
	require.Equal(t, "https://admin.linkage.ph/admin/accept-invitation/"+created.Token, created.URL)
	require.Len(t, created.Token, 64)
	require.Equal(t, HashToken(created.Token), created.Invitation.TokenHash)
	require.NotEqual(t, created.Token, created.Invitation.TokenHash)

	_, err = svc.Invite(ctx, "admin-1", "new@linkage.ph", "")
	require.ErrorIs(t, err, ErrPendingInvite)

	inv, err := svc.Verify(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, created.Invitation.ID, inv.ID)
	_, err = svc.Verify(ctx, "bogus")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Accept(ctx, created.Token, "New Admin", "123")
	require.ErrorIs(t, err, ErrPasswordLength)
	u, err := svc.Accept(ctx, created.Token, "New Admin", "secret1")
	require.NoError(t, err)
	require.True(t, u.Admin)

	_, err = svc.Accept(ctx, created.Token, "New Admin", "secret1")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = accounts.Authenticate(ctx, "new@linkage.ph", "secret1")
	require.NoError(t, err)

	_, err = svc.Invite(ctx, "admin-1", "new@linkage.ph", "")
	require.ErrorIs(t, err, ErrAlreadyAdmin)
}

func TestInvite_PromotesExistingUser(t *testing.T) {
	svc, accounts := newService(t)
	ctx := context.Background()
	existing, err := accounts.Register(ctx, "va@x.io", "secret1", "VA", models.RoleVA)
	require.NoError(t, err)

	created, err := svc.Invite(ctx, "admin-1", "va@x.io", "")
	require.NoError(t, err)
	u, err := svc.Accept(ctx, created.Token, "", "newpass1")
	require.NoError(t, err)
	require.Equal(t, existing.ID, u.ID)
	require.True(t, u.Admin)
}

func TestExpiryCancelResend(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Invite(ctx, "admin-1", "not-an-email", "")
	require.ErrorIs(t, err, ErrEmailRequired)
	_, err = svc.Invite(ctx, "admin-1", "a@b.co", strings.Repeat("m", 501))
	require.Error(t, err)

	created, err := svc.Invite(ctx, "admin-1", "a@b.co", "")
	require.NoError(t, err)

	start := time.Now().UTC()
	svc.now = func() time.Time { return start.Add(TTL + time.Minute) }
	_, err = svc.Verify(ctx, created.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
	list, err := svc.List(ctx, StatusExpired)
	require.NoError(t, err)
	require.Len(t, list, 1)

	resent, err := svc.Resend(ctx, created.Invitation.ID)
	require.NoError(t, err)
	require.NotEqual(t, created.Token, resent.Token)
	_, err = svc.Verify(ctx, resent.Token)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, created.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Cancel(ctx, created.Invitation.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, created.Invitation.ID)
	require.ErrorIs(t, err, ErrNotPending)
	_, err = svc.Verify(ctx, resent.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Cancel(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetTTL(t *testing.T) {
	svc, _ := newService(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	svc.SetTTL(48 * time.Hour)
	svc.SetTTL(0)

	created, err := svc.Invite(context.Background(), "admin-1", "ttl@b.co", "")
	require.NoError(t, err)
	require.Equal(t, start.Add(48*time.Hour), created.Invitation.ExpiresAt)
}
