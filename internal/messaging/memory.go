package messaging

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps conversations and messages in process.
type MemoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	messages      []Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{conversations: map[string]Conversation{}}
}

func (r *MemoryRepository) CreateConversation(ctx context.Context, c *Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.conversations {
		if existing.VA == c.VA && existing.Business == c.Business && existing.IsIntercepted == c.IsIntercepted {
			return ErrDuplicate
		}
	}
	r.conversations[c.ID] = *c
	return nil
}

func (r *MemoryRepository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) FindConversation(ctx context.Context, va, business string, intercepted bool) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conversations {
		if c.VA == va && c.Business == business && c.IsIntercepted == intercepted {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) mutate(id string, fn func(c *Conversation)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}
	fn(&c)
	r.conversations[id] = c
	return nil
}

func (r *MemoryRepository) SetBlockedAt(ctx context.Context, id, reader string, at *time.Time, now time.Time) error {
	return r.mutate(id, func(c *Conversation) {
		if reader == ReaderVA {
			c.VABlockedAt = at
		} else {
			c.BusinessBlockedAt = at
		}
		c.UpdatedAt = now
	})
}

func (r *MemoryRepository) AddArchivedBy(ctx context.Context, id, userID string, now time.Time) error {
	return r.mutate(id, func(c *Conversation) {
		for _, a := range c.ArchivedBy {
			if a == userID {
				return
			}
		}
		c.ArchivedBy = append(append([]string(nil), c.ArchivedBy...), userID)
		c.UpdatedAt = now
	})
}

func (r *MemoryRepository) UpdateAdminState(ctx context.Context, id string, u AdminUpdate) error {
	return r.mutate(id, func(c *Conversation) {
		c.AdminActions = append([]AdminAction(nil), c.AdminActions...)
		u.ApplyTo(c)
	})
}

func (f ConversationFilter) matches(c Conversation) bool {
	if f.VA != "" && c.VA != f.VA {
		return false
	}
	if f.Business != "" && c.Business != f.Business {
		return false
	}
	if f.Participant != "" && !c.IsParticipant(f.Participant) {
		return false
	}
	if f.Intercepted != nil && c.IsIntercepted != *f.Intercepted {
		return false
	}
	if f.AdminStatus != "" && c.AdminStatus != f.AdminStatus {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.NotArchivedBy != "" {
		for _, id := range c.ArchivedBy {
			if id == f.NotArchivedBy {
				return false
			}
		}
	}
	if !f.ActiveSince.IsZero() && c.LastMessageAt.Before(f.ActiveSince) {
		return false
	}
	return true
}

func (r *MemoryRepository) filtered(f ConversationFilter) []Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Conversation
	for _, c := range r.conversations {
		if f.matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func (r *MemoryRepository) ListConversations(ctx context.Context, f ConversationFilter) ([]*Conversation, error) {
	list := r.filtered(f)
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastMessageAt.Equal(list[j].LastMessageAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].LastMessageAt.After(list[j].LastMessageAt)
	})
	out := []*Conversation{}
	for i := range list {
		out = append(out, &list[i])
	}
	return paginate(out, f.Page, f.Limit), nil
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return items[:0]
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (r *MemoryRepository) CountConversations(ctx context.Context, f ConversationFilter) (int64, error) {
	return int64(len(r.filtered(f))), nil
}

func (r *MemoryRepository) CountByAdminStatus(ctx context.Context) (map[string]int64, error) {
	yes := true
	out := map[string]int64{}
	for _, c := range r.filtered(ConversationFilter{Intercepted: &yes}) {
		out[c.AdminStatus]++
	}
	return out, nil
}

func unreadFor(u UnreadCount, reader string) int {
	switch reader {
	case ReaderVA:
		return u.VA
	case ReaderBusiness:
		return u.Business
	case ReaderAdmin:
		return u.Admin
	}
	return 0
}

func (r *MemoryRepository) SumUnread(ctx context.Context, f ConversationFilter, reader string) (int64, error) {
	var n int64
	for _, c := range r.filtered(f) {
		n += int64(unreadFor(c.UnreadCount, reader))
	}
	return n, nil
}

func (r *MemoryRepository) RecordMessage(ctx context.Context, id string, last LastMessage, unread map[string]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}
	c.LastMessage = &last
	c.LastMessageAt = last.CreatedAt
	c.UpdatedAt = last.CreatedAt
	c.MessagesCount++
	c.UnreadCount.VA += unread[ReaderVA]
	c.UnreadCount.Business += unread[ReaderBusiness]
	c.UnreadCount.Admin += unread[ReaderAdmin]
	r.conversations[id] = c
	return nil
}

func (r *MemoryRepository) ResetUnread(ctx context.Context, id, reader string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}
	switch reader {
	case ReaderVA:
		c.UnreadCount.VA = 0
	case ReaderBusiness:
		c.UnreadCount.Business = 0
	case ReaderAdmin:
		c.UnreadCount.Admin = 0
	}
	r.conversations[id] = c
	return nil
}

func (r *MemoryRepository) CreateMessage(ctx context.Context, m *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	cp.ClientID = ""
	r.messages = append(r.messages, cp)
	return nil
}

func (r *MemoryRepository) ListMessages(ctx context.Context, conversationID string, page, limit int) ([]*Message, error) {
	r.mu.RLock()
	out := []*Message{}
	for i := range r.messages {
		if m := r.messages[i]; m.Conversation == conversationID && m.DeletedAt == nil {
			out = append(out, &m)
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, page, limit), nil
}

func (r *MemoryRepository) CountMessages(ctx context.Context, conversationID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, m := range r.messages {
		if m.DeletedAt == nil && (conversationID == "" || m.Conversation == conversationID) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) MarkMessagesRead(ctx context.Context, conversationID, reader string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.Conversation == conversationID && m.Sender != reader && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
			m.Status = DeliveryRead
			n++
		}
	}
	return n, nil
}
