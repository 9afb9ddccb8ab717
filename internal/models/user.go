package models

import (
	"strings"
	"time"
)

// Roles a user can register with.
const (
	RoleVA       = "va"
	RoleBusiness = "business"
)

// Auth providers.
const (
	ProviderLocal = "local"
	ProviderClerk = "clerk"
)

// User is an account on the platform. VA and business profiles hang off it.
type User struct {
	ID              string     `bson:"_id,omitempty" json:"id"`
	Email           string     `bson:"email" json:"email"`
	Name            string     `bson:"name" json:"name"`
	PasswordHash    string     `bson:"password,omitempty" json:"-"`
	Role            string     `bson:"role" json:"role"`
	Admin           bool       `bson:"admin" json:"admin"`
	Suspended       bool       `bson:"suspended" json:"suspended"`
	Provider        string     `bson:"provider" json:"provider"`
	ClerkID         string     `bson:"clerkId,omitempty" json:"clerkId,omitempty"`
	VAProfile       string     `bson:"vaProfile,omitempty" json:"vaProfile,omitempty"`
	BusinessProfile string     `bson:"businessProfile,omitempty" json:"businessProfile,omitempty"`
	IsVerified      bool       `bson:"isVerified" json:"isVerified"`
	SignInCount     int        `bson:"signInCount" json:"signInCount"`
	LastSignInAt    *time.Time `bson:"lastSignInAt,omitempty" json:"lastSignInAt,omitempty"`
	CreatedAt       time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// IsVA reports whether the user registered as a virtual assistant.
func (u *User) IsVA() bool { return u != nil && u.Role == RoleVA }

// IsBusiness reports whether the user registered as a business.
func (u *User) IsBusiness() bool { return u != nil && u.Role == RoleBusiness }

// DisplayName falls back to the e-mail local part when no name is set.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return EmailLocalPart(u.Email)
}

// EmailLocalPart returns the part of an address before '@'.
func EmailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// ValidRole reports whether r is a registrable role.
func ValidRole(r string) bool { return r == RoleVA || r == RoleBusiness }
