package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
)

// MemoryRepository is an in-memory UserRepository for tests and the CLI.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]models.User{}}
}

func (r *MemoryRepository) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.store {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	r.store[u.ID] = *u
	return nil
}

func (r *MemoryRepository) find(match func(models.User) bool) *models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.store {
		if match(u) {
			cp := u
			return &cp
		}
	}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id }), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email }), nil
}

func (r *MemoryRepository) GetByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	if clerkID == "" {
		return nil, nil
	}
	return r.find(func(u models.User) bool { return u.ClerkID == clerkID }), nil
}

func (r *MemoryRepository) Update(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[u.ID]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	r.store[u.ID] = *u
	return nil
}

func (r *MemoryRepository) RecordSignIn(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store[id]
	if !ok {
		return ErrNotFound
	}
	u.SignInCount++
	u.LastSignInAt = &at
	r.store[id] = u
	return nil
}

func (f ListFilter) matches(u models.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Suspended != nil && u.Suspended != *f.Suspended {
		return false
	}
	if f.Admin != nil && u.Admin != *f.Admin {
		return false
	}
	if !f.CreatedSince.IsZero() && u.CreatedAt.Before(f.CreatedSince) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(u.Email), q) && !strings.Contains(strings.ToLower(u.Name), q) {
			return false
		}
	}
	return true
}

func (r *MemoryRepository) List(ctx context.Context, f ListFilter) ([]*models.User, error) {
	r.mu.RLock()
	var out []*models.User
	for _, u := range r.store {
		if f.matches(u) {
			cp := u
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
			return []*models.User{}, nil
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
	for _, u := range r.store {
		if f.matches(u) {
			n++
		}
	}
	return n, nil
}
