package vas

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/stretchr/testify/require"
)

var longBio = strings.Repeat("Experienced assistant. ", 6)

func newVA(name string) *models.VA {
	return &models.VA{Name: name, Bio: longBio}
}

func TestCreate_DefaultsAndValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", &models.VA{Name: "Short", Bio: "too short"})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "bio", ve.Field)

	va, err := svc.Create(ctx, "u1", newVA("Maria"))
	require.NoError(t, err)
	require.NotEmpty(t, va.ID)
	require.Len(t, va.PublicProfileKey, 32)
	require.Equal(t, models.SearchOpen, va.SearchStatus)
	require.Equal(t, models.VAStatusApproved, va.Status)
	require.Equal(t, "other", va.Industry)
	require.NotNil(t, va.ProfileUpdatedAt)

	_, err = svc.Create(ctx, "u1", newVA("Again"))
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdate_PartialAndProtectedFields(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	va, err := svc.Create(ctx, "owner", newVA("Maria"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, "intruder", false, va.ID, []byte(`{"hero":"x"}`))
	require.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Update(ctx, "owner", false, va.ID, []byte(`{"hero":"Ecommerce specialist","user":"hijack","status":"rejected","searchScore":99}`))
	require.NoError(t, err)
	require.Equal(t, "Ecommerce specialist", got.Hero)
	require.Equal(t, "Maria", got.Name)
	require.Equal(t, "owner", got.User)
	require.Equal(t, models.VAStatusApproved, got.Status)
	require.Zero(t, got.SearchScore)

	_, err = svc.Update(ctx, "owner", false, va.ID, []byte(`{"bio":"short"}`))
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))

	_, err = svc.Update(ctx, "admin", true, va.ID, []byte(`{"yearsOfExperience":51}`))
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "yearsOfExperience", ve.Field)
}

func TestGetByIdentifierAndVisibility(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	va, _ := svc.Create(ctx, "owner", newVA("Maria"))

	byKey, err := svc.GetByIdentifier(ctx, va.PublicProfileKey)
	require.NoError(t, err)
	require.Equal(t, va.ID, byKey.ID)
	_, err = svc.GetByIdentifier(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	hidden := "invisible"
	_, err = svc.AdminUpdate(ctx, va.ID, AdminPatch{SearchStatus: &hidden})
	require.NoError(t, err)
	got, _ := svc.Get(ctx, va.ID)
	require.False(t, CanView(got, "", false))
	require.False(t, CanView(got, "someone", false))
	require.True(t, CanView(got, "owner", false))
	require.True(t, CanView(got, "someone", true))
}

func TestPublicListFiltersAndPagination(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	for i, name := range []string{"Ana", "Ben", "Cara", "Dan"} {
		va := newVA(name)
		va.PreferredMinRate = float64(5 + i)
		va.Skills = []string{"shopify"}
		if name == "Dan" {
			va.SearchStatus = models.SearchNotInterested
		}
		if name == "Ben" {
			va.Specialties = []string{"bookkeeping"}
			va.RoleType = models.RoleType{FullTimeEmployment: true}
		}
		_, err := svc.Create(ctx, "user-"+name, va)
		require.NoError(t, err)
	}

	list, total, err := svc.PublicList(ctx, ListFilter{Sort: "name", Page: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, list, 2)
	require.Equal(t, "Ana", list[0].Name)

	list, total, err = svc.PublicList(ctx, ListFilter{Sort: "-rate", MinRate: 6, MaxRate: 7})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "Cara", list[0].Name)

	list, _, err = svc.PublicList(ctx, ListFilter{Specialties: []string{"bookkeeping"}})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, _, err = svc.PublicList(ctx, ListFilter{RoleTypes: []string{"full_time_employment"}, Search: "SHOPIFY"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Ben", list[0].Name)
}

func TestFeaturedAndDelete(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	a, _ := svc.Create(ctx, "a", newVA("A"))
	_, _ = svc.Create(ctx, "b", newVA("B"))

	yes := true
	_, err := svc.AdminUpdate(ctx, a.ID, AdminPatch{Featured: &yes})
	require.NoError(t, err)
	featured, err := svc.Featured(ctx, 0)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	require.Equal(t, a.ID, featured[0].ID)

	bad := "archived"
	_, err = svc.AdminUpdate(ctx, a.ID, AdminPatch{Status: &bad})
	require.Error(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))
	require.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)
}

func TestSubmitDISCAndMedia(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	va, _ := svc.Create(ctx, "owner", newVA("Maria"))

	answers := map[int]int{}
	for id := 1; id <= 16; id++ {
		answers[id] = 3
	}
	answers[2], answers[11], answers[12], answers[14] = 5, 5, 5, 5
	got, res, err := svc.SubmitDISC(ctx, "owner", answers)
	require.NoError(t, err)
	require.Equal(t, "I", res.PrimaryType)
	require.Equal(t, 100, got.DISC.Influence)

	_, _, err = svc.SubmitDISC(ctx, "owner", map[int]int{1: 9})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))

	got, err = svc.SetMedia(ctx, "owner", false, va.ID, MediaCover, "https://cdn/covers/x.png")
	require.NoError(t, err)
	require.Equal(t, "https://cdn/covers/x.png", got.CoverImage)
	_, err = svc.SetMedia(ctx, "owner", false, va.ID, "logo", "u")
	require.Error(t, err)

	got, err = svc.SetSpecialties(ctx, "owner", false, va.ID, []string{"a", " a ", "", "b"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got.Specialties)

	require.NoError(t, svc.RecordConversation(ctx, "owner"))
	got, _ = svc.Get(ctx, va.ID)
	require.Equal(t, 1, got.ConversationsCount)
}

func TestUpdate_CannotRewriteDISCOrFeaturing(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	va, err := svc.Create(ctx, "owner", newVA("Maria"))
	require.NoError(t, err)

	answers := map[int]int{}
	for id := 1; id <= 16; id++ {
		answers[id] = 3
	}
	_, res, err := svc.SubmitDISC(ctx, "owner", answers)
	require.NoError(t, err)
	require.Equal(t, "I", res.PrimaryType)
	yes := true
	featured, err := svc.AdminUpdate(ctx, va.ID, AdminPatch{Featured: &yes})
	require.NoError(t, err)
	featuredAt := *featured.FeaturedAt

	_, err = svc.Update(ctx, "owner", false, va.ID, []byte(`{"discAssessment":{"primaryType":"D","dominance":100},"featuredAt":"2001-01-01T00:00:00Z","hero":"Virtual assistant"}`))
	require.NoError(t, err)

	stored, err := svc.Get(ctx, va.ID)
	require.NoError(t, err)
	require.Equal(t, "Virtual assistant", stored.Hero)
	require.Equal(t, "I", stored.DISC.PrimaryType)
	require.Equal(t, res.Dominance, stored.DISC.Dominance)
	require.True(t, featuredAt.Equal(*stored.FeaturedAt))

	_, err = svc.Update(ctx, "owner", false, va.ID, []byte(`{"discAssessment":{"primaryType":"C"},"bio":"short"}`))
	require.Error(t, err)
	stored, err = svc.Get(ctx, va.ID)
	require.NoError(t, err)
	require.Equal(t, "I", stored.DISC.PrimaryType)
}
