package announcements

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Announcement
	reads map[string]Read
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[string]Announcement{}, reads: map[string]Read{}}
}

func (r *MemoryRepository) Create(ctx context.Context, a *Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = *a
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Announcement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) Update(ctx context.Context, a *Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; !ok {
		return ErrNotFound
	}
	r.items[a.ID] = *a
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	for k, rd := range r.reads {
		if rd.Announcement == id {
			delete(r.reads, k)
		}
	}
	return nil
}

func (f ListFilter) matches(a Announcement) bool {
	if f.Active != nil && a.IsActive != *f.Active {
		return false
	}
	if f.VisibleTo != "" && !a.Visible(f.VisibleTo, f.At) {
		return false
	}
	return true
}

func (r *MemoryRepository) filtered(f ListFilter) []*Announcement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Announcement{}
	for _, a := range r.items {
		if f.matches(a) {
			cp := a
			out = append(out, &cp)
		}
	}
	return out
}

func (r *MemoryRepository) List(ctx context.Context, f ListFilter) ([]*Announcement, error) {
	out := r.filtered(f)
	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishAt.Equal(out[j].PublishAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PublishAt.After(out[j].PublishAt)
	})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.Limit
		if start >= len(out) {
			return []*Announcement{}, nil
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
	return int64(len(r.filtered(f))), nil
}

func (r *MemoryRepository) MarkRead(ctx context.Context, rd *Read) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := rd.Announcement + "|" + rd.User
	if _, ok := r.reads[key]; ok {
		return false, nil
	}
	r.reads[key] = *rd
	if a, ok := r.items[rd.Announcement]; ok {
		a.TotalReads++
		r.items[rd.Announcement] = a
	}
	return true, nil
}

func (r *MemoryRepository) ReadSet(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]bool{}
	for _, id := range ids {
		if _, ok := r.reads[id+"|"+userID]; ok {
			out[id] = true
		}
	}
	return out, nil
}
