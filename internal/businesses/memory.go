package businesses

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]models.Business
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]models.Business{}}
}

func (r *MemoryRepository) Create(ctx context.Context, b *models.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.store {
		if existing.User == b.User {
			return ErrDuplicate
		}
	}
	r.store[b.ID] = *b
	return nil
}

func (r *MemoryRepository) find(match func(models.Business) bool) *models.Business {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.store {
		if match(b) {
			cp := b
			return &cp
		}
	}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Business, error) {
	return r.find(func(b models.Business) bool { return b.ID == id }), nil
}

func (r *MemoryRepository) GetByUser(ctx context.Context, userID string) (*models.Business, error) {
	return r.find(func(b models.Business) bool { return b.User == userID }), nil
}

func (r *MemoryRepository) Update(ctx context.Context, b *models.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[b.ID]; !ok {
		return ErrNotFound
	}
	r.store[b.ID] = *b
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (f ListFilter) matches(b models.Business) bool {
	if f.Industry != "" && b.Industry != f.Industry {
		return false
	}
	if !f.CreatedSince.IsZero() && b.CreatedAt.Before(f.CreatedSince) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hit := false
		for _, s := range []string{b.Company, b.ContactName, b.Email} {
			hit = hit || strings.Contains(strings.ToLower(s), q)
		}
		return hit
	}
	return true
}

func (r *MemoryRepository) List(ctx context.Context, f ListFilter) ([]*models.Business, error) {
	r.mu.RLock()
	out := []*models.Business{}
	for _, b := range r.store {
		if f.matches(b) {
			cp := b
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.Limit
		if start >= len(out) {
			return []*models.Business{}, nil
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
	for _, b := range r.store {
		if f.matches(b) {
			n++
		}
	}
	return n, nil
}
