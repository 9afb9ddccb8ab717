package invitations

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
)

var (
	ErrAlreadyAdmin   = errors.New("user is already an admin")
	ErrPendingInvite  = errors.New("a pending invitation already exists for this email")
	ErrInvalidToken   = errors.New("invitation is invalid or has expired")
	ErrNotPending     = errors.New("invitation is no longer pending")
	ErrEmailRequired  = errors.New("a valid email is required")
	ErrPasswordLength = errors.New("password must be at least 6 characters")
)

// Accounts creates or promotes admin accounts.
type Accounts interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, error)
}

type Service struct {
	repo      Repository
	accounts  Accounts
	clientURL string
	ttl       time.Duration
	now       func() time.Time
}

func NewService(repo Repository, accounts Accounts, clientURL string) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		clientURL: strings.TrimRight(clientURL, "/"),
		ttl:       TTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetTTL changes how long new and resent invitations stay valid; non-positive values are ignored.
func (s *Service) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// HashToken is the stored form of an invitation token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// URL is the link the invitee opens in the admin app.
func (s *Service) URL(token string) string {
	return s.clientURL + "/admin/accept-invitation/" + token
}

// Created is a new invitation with its one-time token.
type Created struct {
	Invitation *Invitation `json:"invitation"`
	Token      string      `json:"-"`
	URL        string      `json:"inviteUrl"`
}

func (s *Service) issue(inv *Invitation) (*Created, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	inv.TokenHash = HashToken(token)
	inv.ExpiresAt = now.Add(s.ttl)
	inv.UpdatedAt = now
	return &Created{Invitation: inv, Token: token, URL: s.URL(token)}, nil
}

// Invite creates an invitation for email.
func (s *Service) Invite(ctx context.Context, adminID, email, message string) (*Created, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return nil, ErrEmailRequired
	}
	if len([]rune(message)) > MaxMessageLength {
		return nil, models.Invalid("message", "message cannot exceed %d characters", MaxMessageLength)
	}
	u, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u != nil && u.Admin {
		return nil, ErrAlreadyAdmin
	}
	pending, err := s.repo.FindPending(ctx, email)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		if pending.EffectiveStatus(s.now()) == StatusPending {
			return nil, ErrPendingInvite
		}
		pending.Status = StatusExpired
		if err := s.repo.Update(ctx, pending); err != nil {
			return nil, err
		}
	}
	inv := &Invitation{
		ID:        uuid.NewString(),
		Email:     email,
		InvitedBy: adminID,
		Message:   strings.TrimSpace(message),
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	created, err := s.issue(inv)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	return created, nil
}

// List returns invitations with expired pending ones reported as expired.
func (s *Service) List(ctx context.Context, status string) ([]*Invitation, error) {
	list, err := s.repo.List(ctx, "")
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := []*Invitation{}
	for _, inv := range list {
		inv.Status = inv.EffectiveStatus(now)
		if status == "" || inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*Invitation, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusPending {
		return nil, ErrNotPending
	}
	inv.Status = StatusCancelled
	inv.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Resend issues a fresh token and expiry for a pending or expired invitation.
func (s *Service) Resend(ctx context.Context, id string) (*Created, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusPending && inv.Status != StatusExpired {
		return nil, ErrNotPending
	}
	inv.Status = StatusPending
	created, err := s.issue(inv)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return created, nil
}

// Verify returns the live invitation behind token.
func (s *Service) Verify(ctx context.Context, token string) (*Invitation, error) {
	inv, err := s.repo.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.EffectiveStatus(s.now()) != StatusPending {
		return nil, ErrInvalidToken
	}
	return inv, nil
}

// Accept turns the invitee into an admin, creating the account when needed.
func (s *Service) Accept(ctx context.Context, token, name, password string) (*models.User, error) {
	inv, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(password) < 6 {
		return nil, ErrPasswordLength
	}
	u, err := s.accounts.EnsureAdmin(ctx, inv.Email, password, name)
	if err != nil {
		return nil, err
	}
	now := s.now()
	inv.Status = StatusAccepted
	inv.AcceptedAt = &now
	inv.AcceptedBy = u.ID
	inv.UpdatedAt = now
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return u, nil
}
