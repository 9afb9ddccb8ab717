package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSuspended          = errors.New("account suspended")
	ErrInvalidRole        = errors.New("role must be va or business")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrSelfChange         = errors.New("cannot change your own admin status")
	ErrAdminExists        = errors.New("an admin already exists")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
	now  func() time.Time
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Register creates a local account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password, name, role string) (*models.User, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
		Provider:     models.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials and records the sign-in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Suspended {
		return nil, ErrSuspended
	}
	now := s.now()
	if err := s.repo.RecordSignIn(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.SignInCount++
	u.LastSignInAt = &now
	return u, nil
}

// UpsertFromClaims links a Clerk session to a user: by Clerk id, then by e-mail, else a new account.
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, nil
	}
	email, _ := claims["email"].(string)
	email = NormalizeEmail(email)
	name, _ := claims["name"].(string)
	if name == "" {
		first, _ := claims["given_name"].(string)
		last, _ := claims["family_name"].(string)
		name = strings.TrimSpace(first + " " + last)
	}

	u, err := s.repo.GetByClerkID(ctx, sub)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	if email != "" {
		u, err = s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if u != nil {
			u.ClerkID = sub
			u.Provider = models.ProviderClerk
			u.IsVerified = true
			if err := s.repo.Update(ctx, u); err != nil {
				return nil, err
			}
			return u, nil
		}
	}
	now := s.now()
	u = &models.User{
		ID:         uuid.NewString(),
		Email:      email,
		Name:       name,
		Provider:   models.ProviderClerk,
		ClerkID:    sub,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ResolvePrincipal maps verified token claims to a stored user. The subject is
// either a local user id or a Clerk user id. Returns (nil, nil) when unknown.
func (s *Service) ResolvePrincipal(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, nil
	}
	u, err := s.repo.GetByID(ctx, sub)
	if err != nil || u != nil {
		return u, err
	}
	return s.repo.GetByClerkID(ctx, sub)
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

// AssignRole sets the role of a user that has none yet (Clerk onboarding).
func (s *Service) AssignRole(ctx context.Context, id, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role == role {
		return u, nil
	}
	if u.Role != "" {
		return nil, ErrInvalidRole
	}
	u.Role = role
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LinkProfile stores the VA or business profile id on the user.
func (s *Service) LinkProfile(ctx context.Context, id, role, profileID string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	switch role {
	case models.RoleVA:
		u.VAProfile = profileID
	case models.RoleBusiness:
		u.BusinessProfile = profileID
	default:
		return ErrInvalidRole
	}
	if u.Role == "" {
		u.Role = role
	}
	return s.repo.Update(ctx, u)
}

// ToggleSuspend flips the suspended flag.
func (s *Service) ToggleSuspend(ctx context.Context, actorID, id string) (*models.User, error) {
	if actorID == id {
		return nil, ErrSelfChange
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Suspended = !u.Suspended
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ToggleAdmin flips the admin flag. Admins cannot demote themselves.
func (s *Service) ToggleAdmin(ctx context.Context, actorID, id string) (*models.User, error) {
	if actorID == id {
		return nil, ErrSelfChange
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Admin = !u.Admin
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// HasAdmin reports whether at least one admin account exists.
func (s *Service) HasAdmin(ctx context.Context) (bool, error) {
	yes := true
	n, err := s.repo.Count(ctx, ListFilter{Admin: &yes})
	return n > 0, err
}

// ListAdmins returns every admin account.
func (s *Service) ListAdmins(ctx context.Context) ([]*models.User, error) {
	yes := true
	return s.repo.List(ctx, ListFilter{Admin: &yes})
}

// CreateFirstAdmin bootstraps the platform's first admin account.
func (s *Service) CreateFirstAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	has, err := s.HasAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, ErrAdminExists
	}
	return s.EnsureAdmin(ctx, email, password, name)
}

// EnsureAdmin promotes the account with the given e-mail, or creates it, and sets its password.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		u.Admin = true
		u.PasswordHash = hash
		if name != "" {
			u.Name = name
		}
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	}
	now := s.now()
	u = &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Admin:        true,
		Provider:     models.ProviderLocal,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns a page of users and the total matching count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*models.User, int64, error) {
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

// Count returns the number of users matching f.
func (s *Service) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.repo.Count(ctx, f)
}
