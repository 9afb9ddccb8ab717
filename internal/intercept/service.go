// Package intercept lets admins review business-to-VA conversations before the VA sees them.
package intercept

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/messaging"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/realtime"
)

var ErrNotIntercepted = errors.New("conversation is not intercepted")

// Batch actions.
const (
	ActionMarkAsRead   = "markAsRead"
	ActionUpdateStatus = "updateStatus"
	ActionArchive      = "archive"
)

const maxNotesLength = 2000

// NameFunc returns the display name of a business user.
type NameFunc func(ctx context.Context, businessUserID string) string

type Service struct {
	msgs         *messaging.Service
	repo         messaging.Repository
	emitter      realtime.Emitter
	businessName NameFunc
	now          func() time.Time
}

func NewService(msgs *messaging.Service, emitter realtime.Emitter, businessName NameFunc) *Service {
	if emitter == nil {
		emitter = realtime.Nop{}
	}
	return &Service{
		msgs:         msgs,
		repo:         msgs.Repo(),
		emitter:      emitter,
		businessName: businessName,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) get(ctx context.Context, id string) (*messaging.Conversation, error) {
	c, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsIntercepted {
		return nil, ErrNotIntercepted
	}
	return c, nil
}

// record writes u together with an admin action entry and mirrors both onto c.
func (s *Service) record(ctx context.Context, c *messaging.Conversation, admin, action, details string, u messaging.AdminUpdate) error {
	now := s.now()
	u.Action = &messaging.AdminAction{
		Action:      action,
		PerformedBy: admin,
		PerformedAt: now,
		Details:     details,
	}
	u.At = now
	if err := s.repo.UpdateAdminState(ctx, c.ID, u); err != nil {
		return err
	}
	u.ApplyTo(c)
	return nil
}

// List pages through intercepted conversations, most recent activity first.
func (s *Service) List(ctx context.Context, adminStatus string, page, limit int) ([]*messaging.Conversation, models.Pagination, error) {
	if adminStatus != "" && !messaging.ValidAdminStatus(adminStatus) {
		return nil, models.Pagination{}, models.Invalid("status", "unknown admin status %q", adminStatus)
	}
	page, limit = models.NormalizePage(page, limit, messaging.DefaultPageSize, messaging.MaxPageSize)
	yes := true
	f := messaging.ConversationFilter{Intercepted: &yes, AdminStatus: adminStatus, Page: page, Limit: limit}
	list, err := s.repo.ListConversations(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	f.Page, f.Limit = 0, 0
	total, err := s.repo.CountConversations(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return list, models.NewPagination(page, limit, total), nil
}

// Get returns an intercepted conversation with its messages and clears the admin unread counter.
func (s *Service) Get(ctx context.Context, id string, page, limit int) (*messaging.Thread, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UnreadCount.Admin > 0 {
		if err := s.repo.ResetUnread(ctx, c.ID, messaging.ReaderAdmin); err != nil {
			return nil, err
		}
		c.UnreadCount.Admin = 0
		s.msgs.PushAdminUnread(ctx)
	}
	return s.msgs.Thread(ctx, c, page, limit)
}

// ForwardResult is the outcome of Forward.
type ForwardResult struct {
	Intercepted *messaging.Conversation `json:"interceptedConversation"`
	Direct      *messaging.Conversation `json:"directConversation"`
	Message     *messaging.Message      `json:"message"`
}

// Forward passes the business's inquiry on to the VA in a direct conversation.
func (s *Service) Forward(ctx context.Context, adminID, id, note string, includeHistory bool) (*ForwardResult, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := s.businessName(ctx, c.Business)
	var b strings.Builder
	fmt.Fprintf(&b, "[Admin Message on behalf of %s]\n\n", name)
	if note = strings.TrimSpace(note); note != "" {
		b.WriteString(note)
	}
	if includeHistory {
		history, err := s.repo.ListMessages(ctx, c.ID, 0, 0)
		if err != nil {
			return nil, err
		}
		b.WriteString("\n\n--- Original messages ---")
		for _, m := range history {
			fmt.Fprintf(&b, "\n[%s] %s", m.CreatedAt.Format("2006-01-02 15:04"), m.Body)
		}
	}
	direct, isNew, err := s.msgs.FindOrCreate(ctx, c.VA, c.Business, false)
	if err != nil {
		return nil, err
	}
	m, err := s.msgs.Post(ctx, direct, messaging.PostInput{
		Sender:      c.Business,
		SenderModel: messaging.SenderAdmin,
		Body:        b.String(),
		MessageType: messaging.TypeAdminForward,
		Unread:      map[string]int{messaging.ReaderVA: 1},
	})
	if err != nil {
		return nil, err
	}
	forwarded := messaging.AdminForwarded
	u := messaging.AdminUpdate{AdminStatus: &forwarded, ForwardedConversation: &direct.ID}
	if err := s.record(ctx, c, adminID, "forwarded", direct.ID, u); err != nil {
		return nil, err
	}
	if isNew {
		s.emitter.Emit(realtime.UserRoom(c.VA), realtime.EventNewConversation, map[string]interface{}{"conversation": direct})
	}
	s.msgs.PushMessage(ctx, direct, m, c.VA, name)
	return &ForwardResult{Intercepted: c, Direct: direct, Message: m}, nil
}

// Reply answers the business inside the intercepted conversation on the VA's behalf.
func (s *Service) Reply(ctx context.Context, adminID, id, body string) (*messaging.Message, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.msgs.Post(ctx, c, messaging.PostInput{
		Sender:      c.VA,
		SenderModel: messaging.SenderAdmin,
		Body:        body,
		Unread:      map[string]int{messaging.ReaderBusiness: 1},
	})
	if err != nil {
		return nil, err
	}
	replied := messaging.AdminReplied
	if err := s.record(ctx, c, adminID, "replied", "", messaging.AdminUpdate{AdminStatus: &replied}); err != nil {
		return nil, err
	}
	s.msgs.PushMessage(ctx, c, m, c.Business, "Linkage")
	s.msgs.PushAdminUnread(ctx)
	return m, nil
}

// SetNotes replaces the admin notes.
func (s *Service) SetNotes(ctx context.Context, adminID, id, notes string) (*messaging.Conversation, error) {
	if len([]rune(notes)) > maxNotesLength {
		return nil, models.Invalid("notes", "notes cannot exceed %d characters", maxNotesLength)
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, c, adminID, "notes_updated", "", messaging.AdminUpdate{AdminNotes: &notes}); err != nil {
		return nil, err
	}
	return c, nil
}

// SetStatus moves the conversation to another moderation state.
func (s *Service) SetStatus(ctx context.Context, adminID, id, status string) (*messaging.Conversation, error) {
	if !messaging.ValidAdminStatus(status) {
		return nil, models.Invalid("status", "unknown admin status %q", status)
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	details := c.AdminStatus + " -> " + status
	if err := s.record(ctx, c, adminID, "status_changed", details, messaging.AdminUpdate{AdminStatus: &status}); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) archive(ctx context.Context, adminID, id string) error {
	c, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	archived := messaging.StatusArchived
	return s.record(ctx, c, adminID, "archived", "", messaging.AdminUpdate{Status: &archived})
}

// BatchFailure is one failed id of a batch.
type BatchFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BatchResult struct {
	Successful []string       `json:"successful"`
	Failed     []BatchFailure `json:"failed"`
}

// Batch applies action to every id and reports each outcome.
func (s *Service) Batch(ctx context.Context, adminID string, ids []string, action, status string) (*BatchResult, error) {
	if len(ids) == 0 {
		return nil, models.Invalid("ids", "at least one conversation id is required")
	}
	var apply func(id string) error
	switch action {
	case ActionMarkAsRead:
		apply = func(id string) error {
			if _, err := s.get(ctx, id); err != nil {
				return err
			}
			return s.repo.ResetUnread(ctx, id, messaging.ReaderAdmin)
		}
	case ActionUpdateStatus:
		if !messaging.ValidAdminStatus(status) {
			return nil, models.Invalid("status", "unknown admin status %q", status)
		}
		apply = func(id string) error {
			_, err := s.SetStatus(ctx, adminID, id, status)
			return err
		}
	case ActionArchive:
		apply = func(id string) error { return s.archive(ctx, adminID, id) }
	default:
		return nil, models.Invalid("action", "unknown action %q", action)
	}
	res := &BatchResult{Successful: []string{}, Failed: []BatchFailure{}}
	for _, id := range ids {
		if err := apply(id); err != nil {
			res.Failed = append(res.Failed, BatchFailure{ID: id, Error: err.Error()})
			continue
		}
		res.Successful = append(res.Successful, id)
	}
	if action == ActionMarkAsRead {
		s.msgs.PushAdminUnread(ctx)
	}
	return res, nil
}

// Stats counts intercepted conversations by moderation state.
type Stats struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"byStatus"`
	UnreadTotal int64            `json:"unreadTotal"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	by, err := s.repo.CountByAdminStatus(ctx)
	if err != nil {
		return nil, err
	}
	yes := true
	unread, err := s.repo.SumUnread(ctx, messaging.ConversationFilter{Intercepted: &yes}, messaging.ReaderAdmin)
	if err != nil {
		return nil, err
	}
	st := &Stats{ByStatus: map[string]int64{}, UnreadTotal: unread}
	for _, status := range messaging.AdminStatuses {
		st.ByStatus[status] = by[status]
		st.Total += by[status]
	}
	return st, nil
}
