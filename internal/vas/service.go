package vas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/disc"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/profile"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotFound  = errors.New("va not found")
	ErrForbidden = errors.New("not authorized to modify this profile")
)

const (
	DefaultPageSize      = 20
	MaxPageSize          = 100
	DefaultFeaturedLimit = 8
	MaxYearsOfExperience = 50
)

// Media kinds that can be attached to a profile.
const (
	MediaAvatar = "avatar"
	MediaCover  = "cover"
	MediaVideo  = "video"
)

// Service holds the VA profile business rules.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// CanView reports whether viewer may see va. Hidden profiles are visible to their owner and admins only.
func CanView(va *models.VA, viewerID string, admin bool) bool {
	if va == nil {
		return false
	}
	return va.Visible() || admin || (viewerID != "" && viewerID == va.User)
}

// List returns a page of profiles and the total match count. Both queries run concurrently.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*models.VA, int64, error) {
	var (
		list  []*models.VA
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.repo.List(gctx, f)
		return err
	})
	g.Go(func() error {
		cf := f
		cf.Page, cf.Limit = 0, 0
		var err error
		total, err = s.repo.Count(gctx, cf)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("list vas: %w", err)
	}
	return list, total, nil
}

// PublicList restricts f to searchable profiles.
func (s *Service) PublicList(ctx context.Context, f ListFilter) ([]*models.VA, int64, error) {
	f.SearchStatus = models.VisibleSearchStatuses
	return s.List(ctx, f)
}

// Candidates loads up to limit visible profiles for relevance search.
func (s *Service) Candidates(ctx context.Context, limit int) ([]*models.VA, error) {
	return s.repo.List(ctx, ListFilter{SearchStatus: models.VisibleSearchStatuses, Limit: limit, Page: 1})
}

// Featured returns visible featured profiles, newest feature first.
func (s *Service) Featured(ctx context.Context, limit int) ([]*models.VA, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	return s.repo.List(ctx, ListFilter{
		SearchStatus: models.VisibleSearchStatuses,
		FeaturedOnly: true,
		Sort:         "-featuredAt",
		Page:         1,
		Limit:        limit,
	})
}

func (s *Service) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.repo.Count(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*models.VA, error) {
	va, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if va == nil {
		return nil, ErrNotFound
	}
	return va, nil
}

// GetByIdentifier resolves a profile id or public profile key.
func (s *Service) GetByIdentifier(ctx context.Context, identifier string) (*models.VA, error) {
	va, err := s.repo.GetByID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if va == nil {
		if va, err = s.repo.GetByPublicKey(ctx, identifier); err != nil {
			return nil, err
		}
	}
	if va == nil {
		return nil, ErrNotFound
	}
	return va, nil
}

// GetByUser returns the profile owned by userID.
func (s *Service) GetByUser(ctx context.Context, userID string) (*models.VA, error) {
	va, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if va == nil {
		return nil, ErrNotFound
	}
	return va, nil
}

func validate(va *models.VA, checkBio bool) error {
	if strings.TrimSpace(va.Name) == "" {
		return models.Invalid("name", "name is required")
	}
	if checkBio && !profile.ValidateVABio(va.Bio) {
		return models.Invalid("bio", "bio must be at least %d characters", profile.MinVABioLength)
	}
	if !models.ValidSearchStatus(va.SearchStatus) {
		return models.Invalid("searchStatus", "unknown search status %q", va.SearchStatus)
	}
	if !models.ValidIndustry(va.Industry) {
		return models.Invalid("industry", "unknown industry %q", va.Industry)
	}
	if va.YearsOfExperience < 0 || va.YearsOfExperience > MaxYearsOfExperience {
		return models.Invalid("yearsOfExperience", "must be between 0 and %d", MaxYearsOfExperience)
	}
	for _, l := range va.Languages {
		if !oneOf(l.Proficiency, models.Proficiencies) {
			return models.Invalid("languages", "unknown proficiency %q", l.Proficiency)
		}
	}
	if va.Availability != "" && !oneOf(va.Availability, models.Availabilities) {
		return models.Invalid("availability", "unknown availability %q", va.Availability)
	}
	if va.PreferredMinRate < 0 || va.PreferredMaxRate < 0 {
		return models.Invalid("preferredMinHourlyRate", "rates cannot be negative")
	}
	if va.PreferredMinRate > 0 && va.PreferredMaxRate > 0 && va.PreferredMaxRate < va.PreferredMinRate {
		return models.Invalid("preferredMaxHourlyRate", "maximum rate is below the minimum")
	}
	return nil
}

func oneOf(s string, list []string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Create stores a new profile for userID. The bio must be at least MinVABioLength characters.
func (s *Service) Create(ctx context.Context, userID string, va *models.VA) (*models.VA, error) {
	existing, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicate
	}
	now := s.now()
	va.ID = uuid.NewString()
	va.User = userID
	va.PublicProfileKey = strings.ReplaceAll(uuid.NewString(), "-", "")
	va.Status = models.VAStatusApproved
	va.FeaturedAt = nil
	va.SearchScore, va.ResponseRate, va.ConversationsCount = 0, 0, 0
	va.DISC = nil
	if va.SearchStatus == "" {
		va.SearchStatus = models.SearchOpen
	}
	if va.Industry == "" {
		va.Industry = "other"
	}
	va.Name = strings.TrimSpace(va.Name)
	va.Bio = strings.TrimSpace(va.Bio)
	if err := validate(va, true); err != nil {
		return nil, err
	}
	va.CreatedAt, va.UpdatedAt, va.ProfileUpdatedAt = now, now, &now
	if err := s.repo.Create(ctx, va); err != nil {
		return nil, err
	}
	return va, nil
}

func (s *Service) owned(ctx context.Context, actorID string, admin bool, id string) (*models.VA, error) {
	va, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if va.User != actorID && !admin {
		return nil, ErrForbidden
	}
	return va, nil
}

func (s *Service) save(ctx context.Context, va *models.VA) (*models.VA, error) {
	now := s.now()
	va.UpdatedAt = now
	va.ProfileUpdatedAt = &now
	if err := s.repo.Update(ctx, va); err != nil {
		return nil, err
	}
	return va, nil
}

// Update applies a partial JSON document to the profile. Fields owned by the
// platform (ids, review status, featuring, scores, DISC) cannot be patched.
func (s *Service) Update(ctx context.Context, actorID string, admin bool, id string, patch []byte) (*models.VA, error) {
	va, err := s.owned(ctx, actorID, admin, id)
	if err != nil {
		return nil, err
	}
	next, err := detachedCopy(va)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(patch))
	if err := dec.Decode(next); err != nil {
		return nil, models.Invalid("body", "invalid JSON: %v", err)
	}
	next.ID, next.User, next.PublicProfileKey = va.ID, va.User, va.PublicProfileKey
	next.Status, next.FeaturedAt = va.Status, va.FeaturedAt
	next.SearchScore, next.ResponseRate, next.ConversationsCount = va.SearchScore, va.ResponseRate, va.ConversationsCount
	next.DISC, next.CreatedAt = va.DISC, va.CreatedAt
	if next.Industry == "" {
		next.Industry = "other"
	}
	if err := validate(next, next.Bio != va.Bio); err != nil {
		return nil, err
	}
	return s.save(ctx, next)
}

// detachedCopy deep-copies va so decoding a patch into the copy cannot write
// through pointers or slices shared with the stored profile.
func detachedCopy(va *models.VA) (*models.VA, error) {
	raw, err := json.Marshal(va)
	if err != nil {
		return nil, fmt.Errorf("copy va %s: %w", va.ID, err)
	}
	next := &models.VA{}
	if err := json.Unmarshal(raw, next); err != nil {
		return nil, fmt.Errorf("copy va %s: %w", va.ID, err)
	}
	return next, nil
}

// SetSpecialties replaces the specialty list.
func (s *Service) SetSpecialties(ctx context.Context, actorID string, admin bool, id string, specialties []string) (*models.VA, error) {
	va, err := s.owned(ctx, actorID, admin, id)
	if err != nil {
		return nil, err
	}
	clean := make([]string, 0, len(specialties))
	seen := map[string]bool{}
	for _, sp := range specialties {
		sp = strings.TrimSpace(sp)
		if sp == "" || seen[sp] {
			continue
		}
		seen[sp] = true
		clean = append(clean, sp)
	}
	va.Specialties = clean
	return s.save(ctx, va)
}

// SetMedia stores the public URL of an uploaded file.
func (s *Service) SetMedia(ctx context.Context, actorID string, admin bool, id, kind, url string) (*models.VA, error) {
	va, err := s.owned(ctx, actorID, admin, id)
	if err != nil {
		return nil, err
	}
	switch kind {
	case MediaAvatar:
		va.Avatar = url
	case MediaCover:
		va.CoverImage = url
	case MediaVideo:
		va.VideoIntroduction = url
	default:
		return nil, models.Invalid("kind", "unsupported media kind %q", kind)
	}
	return s.save(ctx, va)
}

// SubmitDISC scores the questionnaire and stores the result on the caller's profile.
func (s *Service) SubmitDISC(ctx context.Context, userID string, answers map[int]int) (*models.VA, *disc.Result, error) {
	va, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	res, err := disc.Score(answers)
	if err != nil {
		var ve *disc.ValidationError
		if errors.As(err, &ve) {
			return nil, nil, models.Invalid(ve.Field, "%s", ve.Message)
		}
		return nil, nil, err
	}
	res.CompletedAt = s.now()
	va.DISC = &models.DISCAssessment{
		Dominance:         res.Dominance,
		Influence:         res.Influence,
		Steadiness:        res.Steadiness,
		Conscientiousness: res.Conscientiousness,
		PrimaryType:       res.PrimaryType,
		Answered:          res.Answered,
		CompletedAt:       res.CompletedAt,
	}
	if _, err := s.save(ctx, va); err != nil {
		return nil, nil, err
	}
	return va, res, nil
}

// AdminPatch carries the fields only admins may change.
type AdminPatch struct {
	Status       *string  `json:"status"`
	SearchStatus *string  `json:"searchStatus"`
	Featured     *bool    `json:"featured"`
	SearchScore  *float64 `json:"searchScore"`
}

// AdminUpdate applies moderation changes: review status, visibility, featuring and ranking.
func (s *Service) AdminUpdate(ctx context.Context, id string, p AdminPatch) (*models.VA, error) {
	va, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != nil {
		switch *p.Status {
		case models.VAStatusPending, models.VAStatusApproved, models.VAStatusRejected:
			va.Status = *p.Status
		default:
			return nil, models.Invalid("status", "unknown status %q", *p.Status)
		}
	}
	if p.SearchStatus != nil {
		if !models.ValidSearchStatus(*p.SearchStatus) {
			return nil, models.Invalid("searchStatus", "unknown search status %q", *p.SearchStatus)
		}
		va.SearchStatus = *p.SearchStatus
	}
	if p.Featured != nil {
		if *p.Featured {
			now := s.now()
			va.FeaturedAt = &now
		} else {
			va.FeaturedAt = nil
		}
	}
	if p.SearchScore != nil {
		va.SearchScore = *p.SearchScore
	}
	va.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, va); err != nil {
		return nil, err
	}
	return va, nil
}

// RecordConversation bumps the conversation counter of the profile owned by userID.
func (s *Service) RecordConversation(ctx context.Context, userID string) error {
	va, err := s.repo.GetByUser(ctx, userID)
	if err != nil || va == nil {
		return err
	}
	va.ConversationsCount++
	return s.repo.Update(ctx, va)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
