package businesses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
)

var (
	ErrNotFound  = errors.New("business not found")
	ErrForbidden = errors.New("not authorized to modify this business")
)

// CompanySizes are the accepted companySize buckets.
var CompanySizes = []string{"1-10", "11-50", "51-200", "201-500", "501-1000", "1001-5000", "5001-10000", "10000+"}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func validate(b *models.Business, creating bool) error {
	if creating {
		if strings.TrimSpace(b.ContactName) == "" {
			return models.Invalid("contactName", "contact name is required")
		}
		if strings.TrimSpace(b.Company) == "" {
			return models.Invalid("company", "company is required")
		}
		if strings.TrimSpace(b.Bio) == "" {
			return models.Invalid("bio", "bio is required")
		}
	}
	if b.CompanySize != "" {
		ok := false
		for _, s := range CompanySizes {
			ok = ok || s == b.CompanySize
		}
		if !ok {
			return models.Invalid("companySize", "unknown company size %q", b.CompanySize)
		}
	}
	if b.EmployeeCount < 0 {
		return models.Invalid("employeeCount", "cannot be negative")
	}
	if b.Email != "" && !strings.Contains(b.Email, "@") {
		return models.Invalid("email", "invalid e-mail address")
	}
	return nil
}

// Create stores a new business profile for userID.
func (s *Service) Create(ctx context.Context, userID string, b *models.Business) (*models.Business, error) {
	existing, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicate
	}
	b.Company = strings.TrimSpace(b.Company)
	b.ContactName = strings.TrimSpace(b.ContactName)
	b.Bio = strings.TrimSpace(b.Bio)
	if err := validate(b, true); err != nil {
		return nil, err
	}
	now := s.now()
	b.ID = uuid.NewString()
	b.User = userID
	b.CreatedAt, b.UpdatedAt = now, now
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Business, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *Service) GetByUser(ctx context.Context, userID string) (*models.Business, error) {
	b, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *Service) apply(ctx context.Context, b *models.Business, patch []byte) (*models.Business, error) {
	before := *b
	if err := json.NewDecoder(bytes.NewReader(patch)).Decode(b); err != nil {
		return nil, models.Invalid("body", "invalid JSON: %v", err)
	}
	b.ID, b.User, b.CreatedAt = before.ID, before.User, before.CreatedAt
	if err := validate(b, false); err != nil {
		return nil, err
	}
	b.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// UpsertMine applies patch to the caller's profile, creating it first when missing.
func (s *Service) UpsertMine(ctx context.Context, userID string, patch []byte) (*models.Business, bool, error) {
	b, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if b != nil {
		b, err = s.apply(ctx, b, patch)
		return b, false, err
	}
	b = &models.Business{}
	if err := json.NewDecoder(bytes.NewReader(patch)).Decode(b); err != nil {
		return nil, false, models.Invalid("body", "invalid JSON: %v", err)
	}
	if err := validate(b, false); err != nil {
		return nil, false, err
	}
	now := s.now()
	b.ID, b.User, b.CreatedAt, b.UpdatedAt = uuid.NewString(), userID, now, now
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Update applies patch to the profile id; only the owner or an admin may do so.
func (s *Service) Update(ctx context.Context, actorID string, admin bool, id string, patch []byte) (*models.Business, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.User != actorID && !admin {
		return nil, ErrForbidden
	}
	return s.apply(ctx, b, patch)
}

// SetAvatar stores the uploaded logo/avatar URL on the caller's profile.
func (s *Service) SetAvatar(ctx context.Context, userID, url string) (*models.Business, error) {
	b, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	b.Avatar = url
	b.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a profile; only the owner or an admin may do so. The owner id is returned
// so callers can unlink the user account.
func (s *Service) Delete(ctx context.Context, actorID string, admin bool, id string) (string, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if b.User != actorID && !admin {
		return "", ErrForbidden
	}
	return b.User, s.repo.Delete(ctx, id)
}

// List returns a page of profiles and the total match count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*models.Business, int64, error) {
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	f.Page, f.Limit = 0, 0
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *Service) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.repo.Count(ctx, f)
}
