package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/realtime"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Service struct {
	repo    Repository
	emitter realtime.Emitter
	now     func() time.Time
}

func NewService(repo Repository, emitter realtime.Emitter) *Service {
	if emitter == nil {
		emitter = realtime.Nop{}
	}
	return &Service{repo: repo, emitter: emitter, now: func() time.Time { return time.Now().UTC() }}
}

// Notify stores a notification and pushes it to the recipient's room.
func (s *Service) Notify(ctx context.Context, in Input) (*Notification, error) {
	if in.Recipient == "" {
		return nil, models.Invalid("recipient", "recipient is required")
	}
	if !ValidType(in.Type) {
		return nil, models.Invalid("type", "unknown notification type %q", in.Type)
	}
	title := in.Title
	if title == "" {
		title = DefaultTitle(in.Type)
	}
	n := &Notification{
		ID:           uuid.NewString(),
		Recipient:    in.Recipient,
		Type:         in.Type,
		Title:        title,
		Message:      in.Message,
		Params:       in.Params,
		ActionURL:    in.ActionURL,
		Conversation: in.Conversation,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.emitter.Emit(realtime.UserRoom(n.Recipient), realtime.EventNotification, n)
	return n, nil
}

// List returns the newest notifications of a user and their unread count.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, int64, error) {
	_, limit = models.NormalizePage(1, limit, DefaultListLimit, MaxListLimit)
	list, err := s.repo.List(ctx, ListFilter{Recipient: userID, UnreadOnly: unreadOnly, Limit: limit})
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks ids read; an empty list is rejected so it cannot mark everything by accident.
func (s *Service) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, models.Invalid("ids", "at least one notification id is required")
	}
	return s.repo.MarkRead(ctx, userID, ids, s.now())
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkRead(ctx, userID, nil, s.now())
}

func (s *Service) Archive(ctx context.Context, userID, id string) error {
	return s.repo.Archive(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}
