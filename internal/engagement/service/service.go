package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/cache"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement/repository"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/realtime"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotFound = errors.New("engagement not found")
)

const (
	DefaultPageSize   = 20
	MaxPageSize       = 100
	DefaultSummaryTTL = 5 * time.Minute
	recentLimit       = 10
	newWindowDays     = 30
)

// VANameFunc resolves the display name of a VA user; used to denormalise vaName.
type VANameFunc func(ctx context.Context, vaUserID string) (string, error)

// ContractInput is the contract part of a create request.
type ContractInput struct {
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	HoursPerWeek int        `json:"hoursPerWeek"`
	Rate         float64    `json:"rate"`
	Currency     string     `json:"currency"`
}

// CreateInput is a new engagement. ClientID is only read from admin requests.
type CreateInput struct {
	ClientID string        `json:"clientId"`
	VAID     string        `json:"vaId"`
	VAName   string        `json:"vaName"`
	Status   string        `json:"status"`
	Contract ContractInput `json:"contract"`
	Notes    string        `json:"notes"`
	Tags     []string      `json:"tags"`
}

// ContractPatch changes individual contract fields.
type ContractPatch struct {
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	HoursPerWeek *int       `json:"hoursPerWeek"`
	Rate         *float64   `json:"rate"`
	Currency     *string    `json:"currency"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Status   *string        `json:"status"`
	Contract *ContractPatch `json:"contract"`
	Notes    *string        `json:"notes"`
	Tags     *[]string      `json:"tags"`
}

// Service implements engagement business logic. Every mutation invalidates the
// owning business's cached summary and pushes the fresh one to its room.
type Service struct {
	repo       repository.Repository
	cache      cache.Cache
	emitter    realtime.Emitter
	vaName     VANameFunc
	summaryTTL time.Duration
	now        func() time.Time
}

// Option customises a Service.
type Option func(*Service)

func WithSummaryTTL(ttl time.Duration) Option { return func(s *Service) { s.summaryTTL = ttl } }
func WithVANames(fn VANameFunc) Option          { return func(s *Service) { s.vaName = fn } }
func WithClock(now func() time.Time) Option     { return func(s *Service) { s.now = now } }

func New(repo repository.Repository, c cache.Cache, emitter realtime.Emitter, opts ...Option) *Service {
	if emitter == nil {
		emitter = realtime.Nop{}
	}
	s := &Service{
		repo:       repo,
		cache:      c,
		emitter:    emitter,
		summaryTTL: DefaultSummaryTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository and cache.
func NewMemoryService(emitter realtime.Emitter, opts ...Option) *Service {
	return New(repository.NewMemoryRepo(), cache.NewMemory(DefaultSummaryTTL, time.Minute), emitter, opts...)
}

func summaryKey(clientID string) string { return "engagements:summary:" + clientID }

// Summary returns per-status counts for a business. cached reports whether the value came from the cache.
func (s *Service) Summary(ctx context.Context, clientID string) (engagement.Summary, bool, error) {
	var sum engagement.Summary
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, summaryKey(clientID), &sum)
		if err != nil {
			logger.Warnf("engagement summary cache read: %v", err)
		}
		if hit {
			return sum, true, nil
		}
	}
	sum, err := s.computeSummary(ctx, clientID)
	if err != nil {
		return sum, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, summaryKey(clientID), sum, s.summaryTTL); err != nil {
			logger.Warnf("engagement summary cache write: %v", err)
		}
	}
	return sum, false, nil
}

func (s *Service) computeSummary(ctx context.Context, clientID string) (engagement.Summary, error) {
	counts, err := s.repo.CountByStatus(ctx, engagement.Filter{ClientID: clientID})
	if err != nil {
		return engagement.Summary{}, fmt.Errorf("count engagements: %w", err)
	}
	return engagement.SummaryFromCounts(counts), nil
}

// invalidate drops the cached summary and pushes the recomputed one.
func (s *Service) invalidate(ctx context.Context, clientID string) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, summaryKey(clientID)); err != nil {
			logger.Warnf("engagement summary cache delete: %v", err)
		}
	}
	sum, err := s.computeSummary(ctx, clientID)
	if err != nil {
		logger.Warnf("engagement summary refresh: %v", err)
		return
	}
	s.emitter.Emit(realtime.BusinessRoom(clientID), realtime.EngagementSummaryEvent(clientID), map[string]interface{}{
		"businessId": clientID,
		"summary":    sum,
		"updatedAt":  s.now(),
	})
}

// List returns a page of engagements (with derived fields) and its pagination.
func (s *Service) List(ctx context.Context, f engagement.Filter) ([]engagement.View, models.Pagination, error) {
	if !engagement.ValidStatusFilter(f.Status) {
		return nil, models.Pagination{}, models.Invalid("status", "unknown status filter %q", f.Status)
	}
	f.Page, f.Limit = models.NormalizePage(f.Page, f.Limit, DefaultPageSize, MaxPageSize)
	var (
		list  []*engagement.Engagement
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.repo.List(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list engagements: %w", err)
	}
	now := s.now()
	views := make([]engagement.View, 0, len(list))
	for _, e := range list {
		views = append(views, e.View(now))
	}
	return views, models.NewPagination(f.Page, f.Limit, total), nil
}

// Get loads an engagement. A non-empty clientID scopes the lookup to that business.
func (s *Service) Get(ctx context.Context, clientID, id string) (*engagement.Engagement, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if clientID != "" && e.ClientID != clientID {
		return nil, ErrNotFound
	}
	return e, nil
}

// View returns the engagement with its derived contract fields.
func (s *Service) View(e *engagement.Engagement) engagement.View { return e.View(s.now()) }

func validateContract(c engagement.Contract) error {
	if c.StartDate.IsZero() {
		return models.Invalid("contract.startDate", "start date is required")
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return models.Invalid("contract.endDate", "end date must not be before the start date")
	}
	if c.HoursPerWeek != 0 && (c.HoursPerWeek < 1 || c.HoursPerWeek > engagement.MaxHoursPerWeek) {
		return models.Invalid("contract.hoursPerWeek", "must be between 1 and %d", engagement.MaxHoursPerWeek)
	}
	if c.Rate < 0 {
		return models.Invalid("contract.rate", "rate cannot be negative")
	}
	if !engagement.ValidCurrency(c.Currency) {
		return models.Invalid("contract.currency", "unsupported currency %q", c.Currency)
	}
	return nil
}

func validateNotes(notes string) error {
	if len([]rune(notes)) > engagement.MaxNotesLength {
		return models.Invalid("notes", "notes cannot exceed %d characters", engagement.MaxNotesLength)
	}
	return nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Create stores an engagement for clientID on behalf of actorID.
func (s *Service) Create(ctx context.Context, actorID, clientID string, in CreateInput) (*engagement.Engagement, error) {
	if clientID == "" {
		return nil, models.Invalid("clientId", "client is required")
	}
	if strings.TrimSpace(in.VAID) == "" {
		return nil, models.Invalid("vaId", "VA is required")
	}
	status := in.Status
	if status == "" {
		status = engagement.StatusConsidering
	}
	if !engagement.ValidStatus(status) {
		return nil, models.Invalid("status", "unknown status %q", status)
	}
	c := engagement.Contract{
		EndDate:      in.Contract.EndDate,
		HoursPerWeek: in.Contract.HoursPerWeek,
		Rate:         in.Contract.Rate,
		Currency:     strings.ToUpper(in.Contract.Currency),
	}
	if in.Contract.StartDate != nil {
		c.StartDate = in.Contract.StartDate.UTC()
	}
	if c.Currency == "" {
		c.Currency = engagement.DefaultCurrency
	}
	if err := validateContract(c); err != nil {
		return nil, err
	}
	if err := validateNotes(in.Notes); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.VAName)
	if s.vaName != nil {
		resolved, err := s.vaName(ctx, in.VAID)
		if err != nil {
			return nil, err
		}
		if resolved != "" {
			name = resolved
		}
	}
	now := s.now()
	e := &engagement.Engagement{
		ID:             uuid.NewString(),
		ClientID:       clientID,
		VAID:           in.VAID,
		VAName:         name,
		Status:         status,
		Contract:       c,
		Notes:          in.Notes,
		Tags:           cleanTags(in.Tags),
		LastActivityAt: now,
		CreatedBy:      actorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.invalidate(ctx, clientID)
	return e, nil
}

// Update applies p. A non-empty clientID restricts the update to that business's engagements.
func (s *Service) Update(ctx context.Context, actorID, clientID, id string, p Patch) (*engagement.Engagement, error) {
	e, err := s.Get(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != nil {
		if !engagement.ValidStatus(*p.Status) {
			return nil, models.Invalid("status", "unknown status %q", *p.Status)
		}
		e.Status = *p.Status
	}
	if cp := p.Contract; cp != nil {
		if cp.StartDate != nil {
			e.Contract.StartDate = cp.StartDate.UTC()
		}
		if cp.EndDate != nil {
			end := cp.EndDate.UTC()
			e.Contract.EndDate = &end
		}
		if cp.HoursPerWeek != nil {
			e.Contract.HoursPerWeek = *cp.HoursPerWeek
		}
		if cp.Rate != nil {
			e.Contract.Rate = *cp.Rate
		}
		if cp.Currency != nil {
			e.Contract.Currency = strings.ToUpper(*cp.Currency)
		}
		if err := validateContract(e.Contract); err != nil {
			return nil, err
		}
	}
	if p.Notes != nil {
		if err := validateNotes(*p.Notes); err != nil {
			return nil, err
		}
		e.Notes = *p.Notes
	}
	if p.Tags != nil {
		e.Tags = cleanTags(*p.Tags)
	}
	return s.save(ctx, actorID, e)
}

// UpdateStatus changes only the status.
func (s *Service) UpdateStatus(ctx context.Context, actorID, clientID, id, status string) (*engagement.Engagement, error) {
	return s.Update(ctx, actorID, clientID, id, Patch{Status: &status})
}

func (s *Service) save(ctx context.Context, actorID string, e *engagement.Engagement) (*engagement.Engagement, error) {
	now := s.now()
	e.UpdatedBy = actorID
	e.UpdatedAt = now
	e.LastActivityAt = now
	if err := s.repo.Update(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.invalidate(ctx, e.ClientID)
	return e, nil
}

// Delete removes an engagement, scoped to clientID when set.
func (s *Service) Delete(ctx context.Context, clientID, id string) error {
	e, err := s.Get(ctx, clientID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.invalidate(ctx, e.ClientID)
	return nil
}

// Analytics summarises all engagements for admins.
func (s *Service) Analytics(ctx context.Context) (*engagement.Analytics, error) {
	a := &engagement.Analytics{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a.ByStatus, err = s.repo.CountByStatus(gctx, engagement.Filter{})
		return err
	})
	g.Go(func() error {
		var err error
		a.NewLast30Days, err = s.repo.Count(gctx, engagement.Filter{CreatedFrom: s.now().AddDate(0, 0, -newWindowDays)})
		return err
	})
	g.Go(func() error {
		avg, err := s.repo.AverageHoursPerWeek(gctx)
		a.AverageHoursPerWeek = math.Round(avg*10) / 10
		return err
	})
	g.Go(func() error {
		var err error
		a.Recent, err = s.repo.List(gctx, engagement.Filter{Sort: engagement.SortRecent, Page: 1, Limit: recentLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("engagement analytics: %w", err)
	}
	for _, st := range engagement.Statuses {
		a.Total += a.ByStatus[st]
	}
	return a, nil
}
