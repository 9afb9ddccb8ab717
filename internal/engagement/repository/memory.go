package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement"
)

// MemoryRepo is an in-memory repository used by unit tests and the CLI.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]engagement.Engagement
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]engagement.Engagement)}
}

func (m *MemoryRepo) Create(ctx context.Context, e *engagement.Engagement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[e.ID] = *e
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*engagement.Engagement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.store[id]; ok {
		return &e, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) Update(ctx context.Context, e *engagement.Engagement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[e.ID]; !ok {
		return ErrNotFound
	}
	m.store[e.ID] = *e
	return nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func matches(f engagement.Filter, e engagement.Engagement) bool {
	if f.ClientID != "" && e.ClientID != f.ClientID {
		return false
	}
	if f.VAID != "" && e.VAID != f.VAID {
		return false
	}
	if set := engagement.StatusSet(f.Status); set != nil {
		ok := false
		for _, s := range set {
			ok = ok || e.Status == s
		}
		if !ok {
			return false
		}
	}
	if !f.CreatedFrom.IsZero() && e.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && e.CreatedAt.After(f.CreatedTo) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hit := strings.Contains(strings.ToLower(e.VAName), q) || strings.Contains(strings.ToLower(e.Notes), q)
		for _, t := range e.Tags {
			hit = hit || strings.Contains(strings.ToLower(t), q)
		}
		if !hit {
			return false
		}
	}
	return true
}

func less(sortKey string, a, b engagement.Engagement) bool {
	switch sortKey {
	case engagement.SortOldest:
		return a.CreatedAt.Before(b.CreatedAt)
	case engagement.SortStatus:
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	case engagement.SortName:
		return strings.ToLower(a.VAName) < strings.ToLower(b.VAName)
	}
	return a.LastActivityAt.After(b.LastActivityAt)
}

func (m *MemoryRepo) filtered(f engagement.Filter) []engagement.Engagement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engagement.Engagement, 0, len(m.store))
	for _, e := range m.store {
		if matches(f, e) {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemoryRepo) List(ctx context.Context, f engagement.Filter) ([]*engagement.Engagement, error) {
	all := m.filtered(f)
	sort.SliceStable(all, func(i, j int) bool {
		if less(f.Sort, all[i], all[j]) {
			return true
		}
		if less(f.Sort, all[j], all[i]) {
			return false
		}
		return all[i].ID < all[j].ID
	})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.Limit
		if start >= len(all) {
			all = nil
		} else {
			end := start + f.Limit
			if end > len(all) {
				end = len(all)
			}
			all = all[start:end]
		}
	}
	out := make([]*engagement.Engagement, 0, len(all))
	for i := range all {
		out = append(out, &all[i])
	}
	return out, nil
}

func (m *MemoryRepo) Count(ctx context.Context, f engagement.Filter) (int64, error) {
	return int64(len(m.filtered(f))), nil
}

func (m *MemoryRepo) CountByStatus(ctx context.Context, f engagement.Filter) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, e := range m.filtered(f) {
		counts[e.Status]++
	}
	return counts, nil
}

func (m *MemoryRepo) AverageHoursPerWeek(ctx context.Context) (float64, error) {
	var sum, n int
	for _, e := range m.filtered(engagement.Filter{}) {
		if e.Contract.HoursPerWeek > 0 {
			sum += e.Contract.HoursPerWeek
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}
