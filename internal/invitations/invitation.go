// Package invitations lets admins invite new admins by e-mail link.
package invitations

import "time"

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

const (
	TTL              = 7 * 24 * time.Hour
	MaxMessageLength = 500
)

type Invitation struct {
	ID         string     `bson:"_id,omitempty" json:"id"`
	Email      string     `bson:"email" json:"email"`
	InvitedBy  string     `bson:"invitedBy" json:"invitedBy"`
	Message    string     `bson:"message,omitempty" json:"message,omitempty"`
	TokenHash  string     `bson:"tokenHash" json:"-"`
	Status     string     `bson:"status" json:"status"`
	ExpiresAt  time.Time  `bson:"expiresAt" json:"expiresAt"`
	AcceptedAt *time.Time `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	AcceptedBy string     `bson:"acceptedBy,omitempty" json:"acceptedBy,omitempty"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// EffectiveStatus reports expired for pending invitations past their expiry.
func (i *Invitation) EffectiveStatus(now time.Time) string {
	if i.Status == StatusPending && !now.Before(i.ExpiresAt) {
		return StatusExpired
	}
	return i.Status
}
