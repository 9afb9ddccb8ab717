package announcements

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/realtime"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Input creates or patches an announcement. Nil fields are left unchanged on update.
type Input struct {
	Title          *string    `json:"title"`
	Content        *string    `json:"content"`
	TargetAudience *string    `json:"targetAudience"`
	Priority       *string    `json:"priority"`
	Category       *string    `json:"category"`
	IsActive       *bool      `json:"isActive"`
	PublishAt      *time.Time `json:"publishAt"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	Tags           *[]string  `json:"tags"`
}

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

func oneOf(s string, list []string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (in Input) apply(a *Announcement) error {
	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		a.Content = strings.TrimSpace(*in.Content)
	}
	if in.TargetAudience != nil {
		a.TargetAudience = *in.TargetAudience
	}
	if in.Priority != nil {
		a.Priority = *in.Priority
	}
	if in.Category != nil {
		a.Category = *in.Category
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	if in.PublishAt != nil {
		a.PublishAt = in.PublishAt.UTC()
	}
	if in.ExpiresAt != nil {
		exp := in.ExpiresAt.UTC()
		a.ExpiresAt = &exp
	}
	if in.Tags != nil {
		a.Tags = *in.Tags
	}
	switch {
	case a.Title == "":
		return models.Invalid("title", "title is required")
	case len([]rune(a.Title)) > MaxTitleLength:
		return models.Invalid("title", "title cannot exceed %d characters", MaxTitleLength)
	case a.Content == "":
		return models.Invalid("content", "content is required")
	case len([]rune(a.Content)) > MaxContentLength:
		return models.Invalid("content", "content cannot exceed %d characters", MaxContentLength)
	case !oneOf(a.TargetAudience, Audiences):
		return models.Invalid("targetAudience", "unknown audience %q", a.TargetAudience)
	case !oneOf(a.Priority, Priorities):
		return models.Invalid("priority", "unknown priority %q", a.Priority)
	case !oneOf(a.Category, Categories):
		return models.Invalid("category", "unknown category %q", a.Category)
	case a.ExpiresAt != nil && !a.ExpiresAt.After(a.PublishAt):
		return models.Invalid("expiresAt", "expiry must be after the publish date")
	}
	return nil
}

// Create stores an announcement and pushes it to its audience when it is already live.
func (s *Service) Create(ctx context.Context, adminID string, in Input) (*Announcement, error) {
	now := s.now()
	a := &Announcement{
		ID:             uuid.NewString(),
		TargetAudience: AudienceAll,
		Priority:       "normal",
		Category:       "general",
		IsActive:       true,
		CreatedBy:      adminID,
		PublishAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := in.apply(a); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.broadcast(a)
	return a, nil
}

func (s *Service) broadcast(a *Announcement) {
	now := s.now()
	rooms := []string{realtime.RoleRoom(models.RoleVA), realtime.RoleRoom(models.RoleBusiness)}
	switch a.TargetAudience {
	case AudienceVA:
		rooms = rooms[:1]
	case AudienceBusiness:
		rooms = rooms[1:]
	}
	for _, room := range rooms {
		if a.Visible(strings.TrimPrefix(room, "role:"), now) {
			s.emitter.Emit(room, realtime.EventAnnouncement, a)
		}
	}
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Announcement, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(a); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// AdminList pages through every announcement.
func (s *Service) AdminList(ctx context.Context, active *bool, page, limit int) ([]*Announcement, models.Pagination, error) {
	page, limit = models.NormalizePage(page, limit, DefaultPageSize, MaxPageSize)
	f := ListFilter{Active: active, Page: page, Limit: limit}
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	f.Page, f.Limit = 0, 0
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return list, models.NewPagination(page, limit, total), nil
}

func audienceOf(u *models.User) string {
	if u.Role == models.RoleVA || u.Role == models.RoleBusiness {
		return u.Role
	}
	return AudienceAll
}

// ForUser lists the announcements live for u, each flagged with whether u read it.
func (s *Service) ForUser(ctx context.Context, u *models.User, page, limit int) ([]WithRead, models.Pagination, error) {
	page, limit = models.NormalizePage(page, limit, DefaultPageSize, MaxPageSize)
	f := ListFilter{VisibleTo: audienceOf(u), At: s.now(), Page: page, Limit: limit}
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	f.Page, f.Limit = 0, 0
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	read, err := s.repo.ReadSet(ctx, u.ID, ids)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	out := make([]WithRead, 0, len(list))
	for _, a := range list {
		out = append(out, WithRead{Announcement: a, IsRead: read[a.ID]})
	}
	return out, models.NewPagination(page, limit, total), nil
}

// UnreadCount counts live announcements u has not read.
func (s *Service) UnreadCount(ctx context.Context, u *models.User) (int64, error) {
	list, err := s.repo.List(ctx, ListFilter{VisibleTo: audienceOf(u), At: s.now()})
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	read, err := s.repo.ReadSet(ctx, u.ID, ids)
	if err != nil {
		return 0, err
	}
	return int64(len(ids) - len(read)), nil
}

// MarkRead records a read receipt. Reading twice is a no-op.
func (s *Service) MarkRead(ctx context.Context, u *models.User, id string) error {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !a.Visible(audienceOf(u), s.now()) {
		return ErrNotFound
	}
	_, err = s.repo.MarkRead(ctx, &Read{ID: uuid.NewString(), Announcement: id, User: u.ID, ReadAt: s.now()})
	return err
}
