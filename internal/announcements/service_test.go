package announcements

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/stretchr/testify/require"
)

type recorder struct{ rooms []string }

func (r *recorder) Emit(room, event string, payload interface{}) {
	r.rooms = append(r.rooms, room+"|"+event)
}

func str(s string) *string { return &s }

func TestCreate_ValidatesAndBroadcasts(t *testing.T) {
	rec := &recorder{}
	svc := NewService(NewMemoryRepository(), rec)
	ctx := context.Background()

	a, err := svc.Create(ctx, "admin", Input{Title: str("Maintenance"), Content: str("Down on Sunday"), TargetAudience: str(AudienceVA)})
	require.NoError(t, err)
	require.Equal(t, "normal", a.Priority)
	require.True(t, a.IsActive)
	require.Equal(t, []string{"role:va|announcement:new"}, rec.rooms)

	rec.rooms = nil
	_, err = svc.Create(ctx, "admin", Input{Title: str("All"), Content: str("Hello everyone")})
	require.NoError(t, err)
	require.Equal(t, []string{"role:va|announcement:new", "role:business|announcement:new"}, rec.rooms)

	rec.rooms = nil
	later := time.Now().Add(time.Hour)
	_, err = svc.Create(ctx, "admin", Input{Title: str("Soon"), Content: str("x"), PublishAt: &later})
	require.NoError(t, err)
	require.Empty(t, rec.rooms)

	for _, in := range []Input{
		{Content: str("x")},
		{Title: str(strings.Repeat("t", 201)), Content: str("x")},
		{Title: str("t"), Content: str(strings.Repeat("c", 5001))},
		{Title: str("t"), Content: str("x"), Priority: str("meh")},
		{Title: str("t"), Content: str("x"), Category: str("gossip")},
		{Title: str("t"), Content: str("x"), TargetAudience: str("admins")},
	} {
		_, err := svc.Create(ctx, "admin", in)
		var verr *models.ValidationError
		require.True(t, errors.As(err, &verr), "%+v", in)
	}
}

func TestForUser_ReadReceipts(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()
	va := &models.User{ID: "va-1", Role: models.RoleVA}
	biz := &models.User{ID: "biz-1", Role: models.RoleBusiness}

	forVA, err := svc.Create(ctx, "admin", Input{Title: str("VA only"), Content: str("x"), TargetAudience: str(AudienceVA)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "admin", Input{Title: str("Everyone"), Content: str("x")})
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	expired := time.Now().Add(-time.Hour)
	_, err = svc.Create(ctx, "admin", Input{Title: str("Old"), Content: str("x"), PublishAt: &past, ExpiresAt: &expired})
	require.NoError(t, err)
	off := false
	_, err = svc.Create(ctx, "admin", Input{Title: str("Draft"), Content: str("x"), IsActive: &off})
	require.NoError(t, err)

	list, page, err := svc.ForUser(ctx, va, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, int64(2), page.Total)

	list, _, err = svc.ForUser(ctx, biz, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Everyone", list[0].Title)

	require.ErrorIs(t, svc.MarkRead(ctx, biz, forVA.ID), ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, va, forVA.ID))
	require.NoError(t, svc.MarkRead(ctx, va, forVA.ID))

	got, err := svc.repo.Get(ctx, forVA.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.TotalReads)

	n, err := svc.UnreadCount(ctx, va)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	list, _, err = svc.ForUser(ctx, va, 1, 10)
	require.NoError(t, err)
	for _, a := range list {
		require.Equal(t, a.ID == forVA.ID, a.IsRead)
	}

	all, page, err := svc.AdminList(ctx, nil, 1, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, int64(4), page.Total)

	upd, err := svc.Update(ctx, forVA.ID, Input{Priority: str("urgent")})
	require.NoError(t, err)
	require.Equal(t, "urgent", upd.Priority)
	require.NoError(t, svc.Delete(ctx, forVA.ID))
	require.ErrorIs(t, svc.Delete(ctx, forVA.ID), ErrNotFound)
}
