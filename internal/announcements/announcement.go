// Package announcements publishes admin announcements and tracks who read them.
package announcements

import "time"

const (
	AudienceVA       = "va"
	AudienceBusiness = "business"
	AudienceAll      = "all"
)

var (
	Audiences  = []string{AudienceVA, AudienceBusiness, AudienceAll}
	Priorities = []string{"low", "normal", "high", "urgent"}
	Categories = []string{"general", "update", "maintenance", "feature", "policy", "event"}
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 5000
)

type Announcement struct {
	ID             string     `bson:"_id,omitempty" json:"id"`
	Title          string     `bson:"title" json:"title"`
	Content        string     `bson:"content" json:"content"`
	TargetAudience string     `bson:"targetAudience" json:"targetAudience"`
	Priority       string     `bson:"priority" json:"priority"`
	Category       string     `bson:"category" json:"category"`
	IsActive       bool       `bson:"isActive" json:"isActive"`
	CreatedBy      string     `bson:"createdBy" json:"createdBy"`
	PublishAt      time.Time  `bson:"publishAt" json:"publishAt"`
	ExpiresAt      *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	Tags           []string   `bson:"tags,omitempty" json:"tags"`
	TotalReads     int64      `bson:"totalReads" json:"totalReads"`
	CreatedAt      time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Visible reports whether a is live at now for audience.
func (a *Announcement) Visible(audience string, now time.Time) bool {
	if !a.IsActive || a.PublishAt.After(now) {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return a.TargetAudience == AudienceAll || a.TargetAudience == audience
}

// Read records that a user has read an announcement.
type Read struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Announcement string    `bson:"announcement" json:"announcement"`
	User         string    `bson:"user" json:"user"`
	ReadAt       time.Time `bson:"readAt" json:"readAt"`
}

// WithRead is an announcement annotated for one user.
type WithRead struct {
	*Announcement
	IsRead bool `json:"isRead"`
}
