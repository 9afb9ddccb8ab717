package vas

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
)

// MemoryRepository is an in-memory Repository for tests and the CLI.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]models.VA
	order []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]models.VA{}}
}

func (r *MemoryRepository) Create(ctx context.Context, va *models.VA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.store {
		if existing.User == va.User || existing.PublicProfileKey == va.PublicProfileKey {
			return ErrDuplicate
		}
	}
	r.store[va.ID] = *va
	r.order = append(r.order, va.ID)
	return nil
}

func (r *MemoryRepository) find(match func(models.VA) bool) *models.VA {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if va, ok := r.store[id]; ok && match(va) {
			return &va
		}
	}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.VA, error) {
	return r.find(func(va models.VA) bool { return va.ID == id }), nil
}

func (r *MemoryRepository) GetByPublicKey(ctx context.Context, key string) (*models.VA, error) {
	return r.find(func(va models.VA) bool { return va.PublicProfileKey == key }), nil
}

func (r *MemoryRepository) GetByUser(ctx context.Context, userID string) (*models.VA, error) {
	return r.find(func(va models.VA) bool { return va.User == userID }), nil
}

func (r *MemoryRepository) Update(ctx context.Context, va *models.VA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[va.ID]; !ok {
		return ErrNotFound
	}
	r.store[va.ID] = *va
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return ErrNotFound
	}
	delete(r.store, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (f ListFilter) matches(va models.VA) bool {
	if len(f.SearchStatus) > 0 && !contains(f.SearchStatus, va.SearchStatus) {
		return false
	}
	if f.Status != "" && va.Status != f.Status {
		return false
	}
	if f.FeaturedOnly && va.FeaturedAt == nil {
		return false
	}
	if !f.CreatedSince.IsZero() && va.CreatedAt.Before(f.CreatedSince) {
		return false
	}
	if len(f.Specialties) > 0 && !intersects(f.Specialties, va.Specialties) {
		return false
	}
	if f.Search != "" {
		hit := containsFold(va.Name, f.Search) || containsFold(va.Bio, f.Search) || containsFold(va.Hero, f.Search)
		for _, s := range va.Skills {
			hit = hit || containsFold(s, f.Search)
		}
		if !hit {
			return false
		}
	}
	if f.MinRate > 0 || f.MaxRate > 0 {
		min, max := f.rateBounds()
		hourly := va.PreferredMinRate >= min && va.PreferredMinRate <= max
		monthly := va.PreferredMinSalary >= min*HoursPerMonth && va.PreferredMinSalary <= max*HoursPerMonth
		if !hourly && !monthly {
			return false
		}
	}
	if len(f.RoleTypes) > 0 && !intersects(f.RoleTypes, va.RoleType.Types()) {
		return false
	}
	if len(f.RoleLevels) > 0 && !intersects(f.RoleLevels, va.RoleLevel.Levels()) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if contains(b, v) {
			return true
		}
	}
	return false
}

func less(sortKey string, a, b *models.VA) bool {
	switch NormalizeSort(sortKey) {
	case "-profileUpdatedAt":
		if a.ProfileUpdatedAt == nil || b.ProfileUpdatedAt == nil {
			return a.ProfileUpdatedAt != nil && b.ProfileUpdatedAt == nil
		}
		return a.ProfileUpdatedAt.After(*b.ProfileUpdatedAt)
	case "rate":
		return a.PreferredMinRate < b.PreferredMinRate
	case "-rate":
		return a.PreferredMinRate > b.PreferredMinRate
	case "name":
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	case "-createdAt":
		return a.CreatedAt.After(b.CreatedAt)
	case "-featuredAt":
		if a.FeaturedAt == nil || b.FeaturedAt == nil {
			return a.FeaturedAt != nil && b.FeaturedAt == nil
		}
		return a.FeaturedAt.After(*b.FeaturedAt)
	}
	return a.SearchScore > b.SearchScore
}

func (r *MemoryRepository) List(ctx context.Context, f ListFilter) ([]*models.VA, error) {
	r.mu.RLock()
	out := []*models.VA{}
	for _, id := range r.order {
		va := r.store[id]
		if f.matches(va) {
			out = append(out, &va)
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return less(f.Sort, out[i], out[j]) })
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.Limit
		if start >= len(out) {
			return []*models.VA{}, nil
		}
		end := start + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

func (r *MemoryRepository) Count(ctx context.Context, f ListFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, va := range r.store {
		if f.matches(va) {
			n++
		}
	}
	return n, nil
}
