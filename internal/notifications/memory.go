package notifications

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps notifications in process.
type MemoryRepository struct {
	mu    sync.Mutex
	items map[string]*Notification
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[string]*Notification{}}
}

func (r *MemoryRepository) Create(ctx context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, f ListFilter) ([]*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*Notification{}
	for _, n := range r.items {
		if n.Recipient != f.Recipient || n.Archived || (f.UnreadOnly && n.ReadAt != nil) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	list, _ := r.List(ctx, ListFilter{Recipient: recipient, UnreadOnly: true})
	return int64(len(list)), nil
}

func (r *MemoryRepository) MarkRead(ctx context.Context, recipient string, ids []string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for id, item := range r.items {
		if item.Recipient != recipient || item.ReadAt != nil || (len(ids) > 0 && !want[id]) {
			continue
		}
		t := at
		item.ReadAt = &t
		n++
	}
	return n, nil
}

func (r *MemoryRepository) Archive(ctx context.Context, recipient, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.Recipient != recipient {
		return ErrNotFound
	}
	n.Archived = true
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, recipient, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.Recipient != recipient {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}
