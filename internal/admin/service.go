// Package admin aggregates platform-wide statistics for the admin dashboard.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/businesses"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/vas"
	"golang.org/x/sync/errgroup"
)

const (
	recentActivityLimit = 5
	activeWindow        = 30 * 24 * time.Hour
)

type UserCounter interface {
	Count(ctx context.Context, f users.ListFilter) (int64, error)
}

type VADirectory interface {
	Count(ctx context.Context, f vas.ListFilter) (int64, error)
	List(ctx context.Context, f vas.ListFilter) ([]*models.VA, int64, error)
}

type BusinessCounter interface {
	Count(ctx context.Context, f businesses.ListFilter) (int64, error)
}

type ConversationStats interface {
	Stats(ctx context.Context, activeSince time.Time) (total, active, messages int64, err error)
}

type EngagementAnalytics interface {
	Analytics(ctx context.Context) (*engagement.Analytics, error)
}

type Service struct {
	users         UserCounter
	vas           VADirectory
	businesses    BusinessCounter
	conversations ConversationStats
	engagements   EngagementAnalytics
	now           func() time.Time
}

func NewService(u UserCounter, v VADirectory, b BusinessCounter, c ConversationStats, e EngagementAnalytics) *Service {
	return &Service{users: u, vas: v, businesses: b, conversations: c, engagements: e, now: func() time.Time { return time.Now().UTC() }}
}

type Stats struct {
	TotalVAs         int64        `json:"totalVAs"`
	ActiveVAs        int64        `json:"activeVAs"`
	TotalBusinesses  int64        `json:"totalBusinesses"`
	PendingApprovals int64        `json:"pendingApprovals"`
	RecentActivity   []*models.VA `json:"recentActivity"`
}

// Stats is the admin overview card set.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalVAs, err = s.vas.Count(gctx, vas.ListFilter{})
		return
	})
	g.Go(func() (err error) {
		st.ActiveVAs, err = s.vas.Count(gctx, vas.ListFilter{SearchStatus: []string{models.SearchActivelyLooking, models.SearchOpen}})
		return
	})
	g.Go(func() (err error) {
		st.TotalBusinesses, err = s.businesses.Count(gctx, businesses.ListFilter{})
		return
	})
	g.Go(func() (err error) {
		st.PendingApprovals, err = s.vas.Count(gctx, vas.ListFilter{Status: models.VAStatusPending})
		return
	})
	g.Go(func() (err error) {
		st.RecentActivity, _, err = s.vas.List(gctx, vas.ListFilter{Sort: "-createdAt", Page: 1, Limit: recentActivityLimit})
		return
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return st, nil
}

type Dashboard struct {
	TotalUsers          int64 `json:"totalUsers"`
	TotalVAs            int64 `json:"totalVAs"`
	TotalBusinesses     int64 `json:"totalBusinesses"`
	ActiveConversations int64 `json:"activeConversations"`
	NewUsersToday       int64 `json:"newUsersToday"`
	NewVAsToday         int64 `json:"newVAsToday"`
	NewBusinessesToday  int64 `json:"newBusinessesToday"`
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	today := startOfDay(now)
	d := &Dashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.TotalUsers, err = s.users.Count(gctx, users.ListFilter{})
		return
	})
	g.Go(func() (err error) {
		d.TotalVAs, err = s.vas.Count(gctx, vas.ListFilter{})
		return
	})
	g.Go(func() (err error) {
		d.TotalBusinesses, err = s.businesses.Count(gctx, businesses.ListFilter{})
		return
	})
	g.Go(func() (err error) {
		_, d.ActiveConversations, _, err = s.conversations.Stats(gctx, now.Add(-activeWindow))
		return
	})
	g.Go(func() (err error) {
		d.NewUsersToday, err = s.users.Count(gctx, users.ListFilter{CreatedSince: today})
		return
	})
	g.Go(func() (err error) {
		d.NewVAsToday, err = s.vas.Count(gctx, vas.ListFilter{CreatedSince: today})
		return
	})
	g.Go(func() (err error) {
		d.NewBusinessesToday, err = s.businesses.Count(gctx, businesses.ListFilter{CreatedSince: today})
		return
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("admin dashboard: %w", err)
	}
	return d, nil
}

type Analytics struct {
	UsersByRole           map[string]int64      `json:"usersByRole"`
	VAsBySearchStatus     map[string]int64      `json:"vasBySearchStatus"`
	TotalConversations    int64                 `json:"totalConversations"`
	ActiveConversations   int64                 `json:"activeConversations"`
	TotalMessages         int64                 `json:"totalMessages"`
	Engagements           *engagement.Analytics `json:"engagements"`
	SignupsLast30Days     int64                 `json:"signupsLast30Days"`
	VASignupsLast30Days   int64                 `json:"vaSignupsLast30Days"`
	BusinessSignupsLast30 int64                 `json:"businessSignupsLast30Days"`
}

var searchStatuses = []string{models.SearchActivelyLooking, models.SearchOpen, models.SearchNotInterested, models.SearchInvisible}

// Analytics is the detailed breakdown behind the analytics page.
func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	now := s.now()
	since := now.Add(-activeWindow)
	roles := []string{models.RoleVA, models.RoleBusiness}
	a := &Analytics{UsersByRole: map[string]int64{}, VAsBySearchStatus: map[string]int64{}}
	roleCounts := make([]int64, len(roles))
	statusCounts := make([]int64, len(searchStatuses))

	g, gctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		i, role := i, role
		g.Go(func() (err error) {
			roleCounts[i], err = s.users.Count(gctx, users.ListFilter{Role: role})
			return
		})
	}
	for i, st := range searchStatuses {
		i, st := i, st
		g.Go(func() (err error) {
			statusCounts[i], err = s.vas.Count(gctx, vas.ListFilter{SearchStatus: []string{st}})
			return
		})
	}
	g.Go(func() (err error) {
		a.TotalConversations, a.ActiveConversations, a.TotalMessages, err = s.conversations.Stats(gctx, since)
		return
	})
	g.Go(func() (err error) {
		a.Engagements, err = s.engagements.Analytics(gctx)
		return
	})
	g.Go(func() (err error) {
		a.SignupsLast30Days, err = s.users.Count(gctx, users.ListFilter{CreatedSince: since})
		return
	})
	g.Go(func() (err error) {
		a.VASignupsLast30Days, err = s.users.Count(gctx, users.ListFilter{Role: models.RoleVA, CreatedSince: since})
		return
	})
	g.Go(func() (err error) {
		a.BusinessSignupsLast30, err = s.users.Count(gctx, users.ListFilter{Role: models.RoleBusiness, CreatedSince: since})
		return
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("admin analytics: %w", err)
	}
	for i, role := range roles {
		a.UsersByRole[role] = roleCounts[i]
	}
	for i, st := range searchStatuses {
		a.VAsBySearchStatus[st] = statusCounts[i]
	}
	return a, nil
}
