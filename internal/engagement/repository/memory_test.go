package repository

import (
	"context"
	"testing"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, r *MemoryRepo) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []engagement.Engagement{
		{ID: "e1", ClientID: "b1", VAID: "v1", VAName: "Zoe", Status: engagement.StatusActive, Tags: []string{"seo"}, Contract: engagement.Contract{HoursPerWeek: 40}},
		{ID: "e2", ClientID: "b1", VAID: "v2", VAName: "Ana", Status: engagement.StatusPaused, Notes: "Bookkeeping help", Contract: engagement.Contract{HoursPerWeek: 20}},
		{ID: "e3", ClientID: "b1", VAID: "v3", VAName: "Mia", Status: engagement.StatusPast},
		{ID: "e4", ClientID: "b2", VAID: "v1", VAName: "Zoe", Status: engagement.StatusConsidering},
	}
	for i := range rows {
		rows[i].CreatedAt = base.AddDate(0, 0, i)
		rows[i].UpdatedAt = rows[i].CreatedAt
		rows[i].LastActivityAt = rows[i].CreatedAt
		require.NoError(t, r.Create(context.Background(), &rows[i]))
	}
}

func ids(list []*engagement.Engagement) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestMemoryRepoCRUD(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	e := &engagement.Engagement{ID: "x", ClientID: "b", Notes: "hello"}
	require.NoError(t, r.Create(ctx, e))

	got, err := r.Get(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "hello", got.Notes)

	got.Notes = "new"
	require.NoError(t, r.Update(ctx, got))
	got2, err := r.Get(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "new", got2.Notes)

	require.NoError(t, r.Delete(ctx, "x"))
	_, err = r.Get(ctx, "x")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.Update(ctx, got), ErrNotFound)
}

func TestMemoryRepoFiltersAndSorts(t *testing.T) {
	r := NewMemoryRepo()
	seed(t, r)
	ctx := context.Background()

	list, err := r.List(ctx, engagement.Filter{ClientID: "b1"})
	require.NoError(t, err)
	require.Equal(t, []string{"e3", "e2", "e1"}, ids(list))

	list, _ = r.List(ctx, engagement.Filter{ClientID: "b1", Sort: engagement.SortName})
	require.Equal(t, []string{"e2", "e3", "e1"}, ids(list))

	list, _ = r.List(ctx, engagement.Filter{ClientID: "b1", Status: engagement.FilterInactive, Sort: engagement.SortOldest})
	require.Equal(t, []string{"e2", "e3"}, ids(list))

	list, _ = r.List(ctx, engagement.Filter{Search: "SEO"})
	require.Equal(t, []string{"e1"}, ids(list))
	list, _ = r.List(ctx, engagement.Filter{Search: "bookkeeping"})
	require.Equal(t, []string{"e2"}, ids(list))

	list, _ = r.List(ctx, engagement.Filter{ClientID: "b1", Sort: engagement.SortOldest, Page: 2, Limit: 2})
	require.Equal(t, []string{"e3"}, ids(list))

	n, _ := r.Count(ctx, engagement.Filter{VAID: "v1"})
	require.EqualValues(t, 2, n)

	counts, _ := r.CountByStatus(ctx, engagement.Filter{ClientID: "b1"})
	require.Equal(t, map[string]int64{"active": 1, "paused": 1, "past": 1}, counts)

	avg, _ := r.AverageHoursPerWeek(ctx)
	require.InDelta(t, 30.0, avg, 0.001)
}
