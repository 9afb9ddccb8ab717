package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/notifications"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/profile"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/realtime"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
)

var (
	ErrForbidden    = errors.New("not a participant of this conversation")
	ErrBlocked      = errors.New("you have been blocked in this conversation")
	ErrInvalidPeer  = errors.New("conversations are between a VA and a business")
	ErrUserNotFound = errors.New("recipient not found")
)

const (
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultMessagePage = 50
	MaxMessagePage     = 200
)

// GateError is returned when a business profile is not complete enough to start conversations.
type GateError struct {
	Completion profile.Completion
	Threshold  int
}

func (e *GateError) Error() string {
	return fmt.Sprintf("profile must be at least %d%% complete to message VAs", e.Threshold)
}

// Directory resolves users.
type Directory interface {
	Get(ctx context.Context, id string) (*models.User, error)
	ListAdmins(ctx context.Context) ([]*models.User, error)
}

// Notifier creates in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, in notifications.Input) (*notifications.Notification, error)
}

// GateFunc computes a business user's profile completion and the threshold it must reach.
type GateFunc func(ctx context.Context, businessUserID string) (profile.Completion, int, error)

// ConversationCounter is told about every new VA conversation.
type ConversationCounter interface {
	RecordConversation(ctx context.Context, vaUserID string) error
}

type Service struct {
	repo     Repository
	users    Directory
	notifier Notifier
	emitter  realtime.Emitter
	gate     GateFunc
	counter  ConversationCounter
	now      func() time.Time
}

type Option func(*Service)

func WithGate(g GateFunc) Option                           { return func(s *Service) { s.gate = g } }
func WithConversationCounter(c ConversationCounter) Option { return func(s *Service) { s.counter = c } }
func WithClock(now func() time.Time) Option                { return func(s *Service) { s.now = now } }

func NewService(repo Repository, users Directory, notifier Notifier, emitter realtime.Emitter, opts ...Option) *Service {
	if emitter == nil {
		emitter = realtime.Nop{}
	}
	s := &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		emitter:  emitter,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Repo exposes the underlying repository to the moderation service.
func (s *Service) Repo() Repository { return s.repo }

// CanAccess reports whether u may read c. Intercepted conversations are hidden from the VA.
func CanAccess(c *Conversation, u *models.User) bool {
	if u == nil {
		return false
	}
	if u.Admin {
		return true
	}
	if c.IsIntercepted {
		return c.Business == u.ID
	}
	return c.IsParticipant(u.ID)
}

// readerOf maps a participant to its unread counter.
func readerOf(c *Conversation, userID string) string {
	if c.VA == userID {
		return ReaderVA
	}
	return ReaderBusiness
}

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", models.Invalid("message", "message is required")
	}
	if len([]rune(body)) > MaxBodyLength {
		return "", models.Invalid("message", "message cannot exceed %d characters", MaxBodyLength)
	}
	return body, nil
}

func (s *Service) load(ctx context.Context, u *models.User, id string) (*Conversation, error) {
	c, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanAccess(c, u) {
		return nil, ErrForbidden
	}
	return c, nil
}

// IsParticipant lets the realtime hub authorise conversation room joins.
func (s *Service) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	c, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if c.IsIntercepted {
		return c.Business == userID, nil
	}
	return c.IsParticipant(userID), nil
}

// Eligibility reports whether u may start conversations with VAs.
func (s *Service) Eligibility(ctx context.Context, u *models.User) (bool, *profile.Completion, int, error) {
	if !u.IsBusiness() || s.gate == nil {
		return true, nil, 0, nil
	}
	c, threshold, err := s.gate(ctx, u.ID)
	if err != nil {
		return false, nil, threshold, err
	}
	return profile.CanMessageAt(c, threshold), &c, threshold, nil
}

func (s *Service) newConversation(va, business string, intercepted bool) *Conversation {
	now := s.now()
	c := &Conversation{
		ID:                uuid.NewString(),
		VA:                va,
		Business:          business,
		Participants:      []string{va, business},
		Status:            StatusActive,
		IsIntercepted:     intercepted,
		InboundEmailToken: uuid.NewString(),
		LastMessageAt:     now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if intercepted {
		c.Participants = []string{business}
		c.OriginalSender = business
		c.InterceptedAt = &now
		c.AdminStatus = AdminPending
	}
	return c
}

// FindOrCreate returns the conversation for the pair, creating it when missing.
func (s *Service) FindOrCreate(ctx context.Context, va, business string, intercepted bool) (*Conversation, bool, error) {
	c, err := s.repo.FindConversation(ctx, va, business, intercepted)
	if err != nil || c != nil {
		return c, false, err
	}
	c = s.newConversation(va, business, intercepted)
	if err := s.repo.CreateConversation(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// lost a race with a concurrent start
			c, err = s.repo.FindConversation(ctx, va, business, intercepted)
			return c, false, err
		}
		return nil, false, err
	}
	if s.counter != nil && !intercepted {
		if err := s.counter.RecordConversation(ctx, va); err != nil {
			logger.Warnf("record VA conversation: %v", err)
		}
	}
	return c, true, nil
}

// PostInput is a message to append to a conversation.
type PostInput struct {
	Sender      string
	SenderModel string
	Body        string
	MessageType string
	ReplyTo     string
	ClientID    string
	Attachments []Attachment
	// Unread lists the counters to bump.
	Unread map[string]int
}

// Post stores a message and updates the conversation's last message and unread counters.
func (s *Service) Post(ctx context.Context, c *Conversation, in PostInput) (*Message, error) {
	body, err := validateBody(in.Body)
	if err != nil {
		return nil, err
	}
	if in.SenderModel == "" {
		in.SenderModel = SenderUser
	}
	if in.MessageType == "" {
		in.MessageType = TypeText
	}
	now := s.now()
	m := &Message{
		ID:               uuid.NewString(),
		Conversation:     c.ID,
		Sender:           in.Sender,
		SenderModel:      in.SenderModel,
		Body:             body,
		BodyHTML:         RenderHTML(body),
		Attachments:      in.Attachments,
		Status:           DeliverySent,
		MessageType:      in.MessageType,
		ReplyTo:          in.ReplyTo,
		ModerationStatus: ModerationApproved,
		ClientID:         in.ClientID,
		CreatedAt:        now,
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	last := LastMessage{Body: preview(body), Sender: in.Sender, CreatedAt: now}
	if err := s.repo.RecordMessage(ctx, c.ID, last, in.Unread); err != nil {
		return nil, err
	}
	c.LastMessage = &last
	c.LastMessageAt = now
	c.MessagesCount++
	c.UnreadCount.VA += in.Unread[ReaderVA]
	c.UnreadCount.Business += in.Unread[ReaderBusiness]
	c.UnreadCount.Admin += in.Unread[ReaderAdmin]
	return m, nil
}

func (s *Service) notify(ctx context.Context, in notifications.Input) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		logger.Warnf("notify %s: %v", in.Recipient, err)
	}
}

// NotifyAdmins sends a notification to every admin account.
func (s *Service) NotifyAdmins(ctx context.Context, in notifications.Input) {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		logger.Warnf("list admins: %v", err)
		return
	}
	for _, a := range admins {
		in.Recipient = a.ID
		s.notify(ctx, in)
	}
}

// PushMessage delivers m to recipient and to the conversation room, and notifies the recipient.
func (s *Service) PushMessage(ctx context.Context, c *Conversation, m *Message, recipient, senderName string) {
	payload := map[string]interface{}{"conversationId": c.ID, "message": m}
	s.emitter.Emit(realtime.UserRoom(recipient), realtime.EventNewMessage, payload)
	s.emitter.Emit(realtime.ConversationRoom(c.ID), realtime.EventNewMessage, payload)
	s.notify(ctx, notifications.Input{
		Recipient:    recipient,
		Type:         notifications.TypeNewMessage,
		Message:      fmt.Sprintf("%s: %s", senderName, preview(m.Body)),
		ActionURL:    "/messages/" + c.ID,
		Conversation: c.ID,
	})
}

// PushAdminUnread tells admins the intercepted unread total changed.
func (s *Service) PushAdminUnread(ctx context.Context) {
	yes := true
	total, err := s.repo.SumUnread(ctx, ConversationFilter{Intercepted: &yes}, ReaderAdmin)
	if err != nil {
		logger.Warnf("admin unread total: %v", err)
		return
	}
	s.emitter.Emit(realtime.AdminRoom, realtime.EventAdminUnreadUpdate, map[string]interface{}{"unreadCount": total})
}

// StartResult is the outcome of Start.
type StartResult struct {
	Conversation *Conversation `json:"conversation"`
	Message      *Message      `json:"message"`
	IsNew        bool          `json:"isNew"`
}

// Start opens (or reuses) a conversation between sender and recipientID and posts the first
// message. Businesses reaching out to VAs go through admin review.
func (s *Service) Start(ctx context.Context, sender *models.User, recipientID, body, clientID string) (*StartResult, error) {
	if _, err := validateBody(body); err != nil {
		return nil, err
	}
	other, err := s.users.Get(ctx, recipientID)
	if err != nil || other == nil {
		return nil, ErrUserNotFound
	}
	var va, business *models.User
	switch {
	case sender.IsVA() && other.IsBusiness():
		va, business = sender, other
	case sender.IsBusiness() && other.IsVA():
		va, business = other, sender
	default:
		return nil, ErrInvalidPeer
	}
	intercepted := sender.IsBusiness()
	if intercepted {
		ok, completion, threshold, err := s.Eligibility(ctx, sender)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &GateError{Completion: *completion, Threshold: threshold}
		}
	}
	c, isNew, err := s.FindOrCreate(ctx, va.ID, business.ID, intercepted)
	if err != nil {
		return nil, err
	}
	if c.BlockedFor(sender.ID) {
		return nil, ErrBlocked
	}
	unread := map[string]int{ReaderBusiness: 1}
	if intercepted {
		unread = map[string]int{ReaderAdmin: 1}
	}
	m, err := s.Post(ctx, c, PostInput{Sender: sender.ID, Body: body, ClientID: clientID, Unread: unread})
	if err != nil {
		return nil, err
	}
	if intercepted {
		if isNew {
			s.emitter.Emit(realtime.AdminRoom, realtime.EventNewConversation, map[string]interface{}{"conversation": c})
			s.NotifyAdmins(ctx, notifications.Input{
				Type:         notifications.TypeInterceptedConversation,
				Message:      fmt.Sprintf("%s wants to contact %s", displayName(business), displayName(va)),
				ActionURL:    "/admin/intercept/" + c.ID,
				Conversation: c.ID,
			})
		}
		s.PushAdminUnread(ctx)
	} else {
		if isNew {
			s.emitter.Emit(realtime.UserRoom(business.ID), realtime.EventNewConversation, map[string]interface{}{"conversation": c})
		}
		s.PushMessage(ctx, c, m, business.ID, displayName(va))
	}
	return &StartResult{Conversation: c, Message: m, IsNew: isNew}, nil
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Send posts a message from u into an existing conversation.
func (s *Service) Send(ctx context.Context, u *models.User, id, body, clientID, replyTo string) (*Message, error) {
	c, err := s.load(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if !c.IsParticipant(u.ID) {
		return nil, ErrForbidden
	}
	if c.BlockedFor(u.ID) {
		return nil, ErrBlocked
	}
	if c.IsIntercepted {
		m, err := s.Post(ctx, c, PostInput{Sender: u.ID, Body: body, ClientID: clientID, ReplyTo: replyTo, Unread: map[string]int{ReaderAdmin: 1}})
		if err != nil {
			return nil, err
		}
		if c.AdminStatus == AdminReplied || c.AdminStatus == AdminAwaitingReply {
			pending := AdminPending
			u := AdminUpdate{AdminStatus: &pending, At: s.now()}
			if err := s.repo.UpdateAdminState(ctx, c.ID, u); err != nil {
				return nil, err
			}
			u.ApplyTo(c)
		}
		s.emitter.Emit(realtime.AdminRoom, realtime.EventNewMessage, map[string]interface{}{"conversationId": c.ID, "message": m})
		s.PushAdminUnread(ctx)
		return m, nil
	}
	recipient := c.Other(u.ID)
	m, err := s.Post(ctx, c, PostInput{
		Sender:   u.ID,
		Body:     body,
		ClientID: clientID,
		ReplyTo:  replyTo,
		Unread:   map[string]int{readerOf(c, recipient): 1},
	})
	if err != nil {
		return nil, err
	}
	s.PushMessage(ctx, c, m, recipient, displayName(u))
	return m, nil
}

// List returns u's conversations, newest activity first.
func (s *Service) List(ctx context.Context, u *models.User, page, limit int) ([]*Conversation, models.Pagination, error) {
	page, limit = models.NormalizePage(page, limit, DefaultPageSize, MaxPageSize)
	f := userFilter(u)
	f.Page, f.Limit = page, limit
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

func userFilter(u *models.User) ConversationFilter {
	f := ConversationFilter{NotArchivedBy: u.ID}
	if u.IsVA() {
		no := false
		f.VA = u.ID
		f.Intercepted = &no
	} else {
		f.Business = u.ID
	}
	return f
}

// Thread is a conversation with one page of its messages.
type Thread struct {
	Conversation *Conversation     `json:"conversation"`
	Messages     []*Message        `json:"messages"`
	Pagination   models.Pagination `json:"pagination"`
}

// Get returns a conversation with its messages, oldest first.
func (s *Service) Get(ctx context.Context, u *models.User, id string, page, limit int) (*Thread, error) {
	c, err := s.load(ctx, u, id)
	if err != nil {
		return nil, err
	}
	return s.Thread(ctx, c, page, limit)
}

// Thread loads one page of c's messages.
func (s *Service) Thread(ctx context.Context, c *Conversation, page, limit int) (*Thread, error) {
	page, limit = models.NormalizePage(page, limit, DefaultMessagePage, MaxMessagePage)
	msgs, err := s.repo.ListMessages(ctx, c.ID, page, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &Thread{Conversation: c, Messages: msgs, Pagination: models.NewPagination(page, limit, total)}, nil
}

// MarkRead marks the other party's messages read and clears u's unread counter.
func (s *Service) MarkRead(ctx context.Context, u *models.User, id string) (int64, error) {
	c, err := s.load(ctx, u, id)
	if err != nil {
		return 0, err
	}
	if !c.IsParticipant(u.ID) {
		return 0, ErrForbidden
	}
	now := s.now()
	n, err := s.repo.MarkMessagesRead(ctx, c.ID, u.ID, now)
	if err != nil {
		return 0, err
	}
	if err := s.repo.ResetUnread(ctx, c.ID, readerOf(c, u.ID)); err != nil {
		return 0, err
	}
	if !c.IsIntercepted {
		s.emitter.Emit(realtime.UserRoom(c.Other(u.ID)), realtime.EventConversationRead, map[string]interface{}{
			"conversationId": c.ID,
			"readBy":         u.ID,
			"readAt":         now,
		})
	}
	return n, nil
}

// SetBlocked blocks or unblocks the other participant for u.
func (s *Service) SetBlocked(ctx context.Context, u *models.User, id string, blocked bool) (*Conversation, error) {
	c, err := s.load(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if !c.IsParticipant(u.ID) {
		return nil, ErrForbidden
	}
	now := s.now()
	var at *time.Time
	if blocked {
		at = &now
	}
	reader := readerOf(c, u.ID)
	if err := s.repo.SetBlockedAt(ctx, c.ID, reader, at, now); err != nil {
		return nil, err
	}
	if reader == ReaderVA {
		c.VABlockedAt = at
	} else {
		c.BusinessBlockedAt = at
	}
	c.UpdatedAt = now
	return c, nil
}

// Archive hides the conversation from u's list.
func (s *Service) Archive(ctx context.Context, u *models.User, id string) (*Conversation, error) {
	c, err := s.load(ctx, u, id)
	if err != nil {
		return nil, err
	}
	for _, a := range c.ArchivedBy {
		if a == u.ID {
			return c, nil
		}
	}
	now := s.now()
	if err := s.repo.AddArchivedBy(ctx, c.ID, u.ID, now); err != nil {
		return nil, err
	}
	c.ArchivedBy = append(c.ArchivedBy, u.ID)
	c.UpdatedAt = now
	return c, nil
}

// UnreadCount sums u's unread counters.
func (s *Service) UnreadCount(ctx context.Context, u *models.User) (int64, error) {
	f := userFilter(u)
	f.NotArchivedBy = ""
	reader := ReaderBusiness
	if u.IsVA() {
		reader = ReaderVA
	}
	return s.repo.SumUnread(ctx, f, reader)
}

// Stats counts conversations and messages for the admin analytics.
func (s *Service) Stats(ctx context.Context, activeSince time.Time) (total, active, messages int64, err error) {
	if total, err = s.repo.CountConversations(ctx, ConversationFilter{}); err != nil {
		return
	}
	if active, err = s.repo.CountConversations(ctx, ConversationFilter{ActiveSince: activeSince}); err != nil {
		return
	}
	messages, err = s.repo.CountMessages(ctx, "")
	return
}
