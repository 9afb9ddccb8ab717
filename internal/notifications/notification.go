// Package notifications stores in-app notifications and pushes them to the recipient.
package notifications

import "time"

// Notification types.
const (
	TypeNewMessage              = "new_message"
	TypeNewConversation         = "new_conversation"
	TypeProfileView             = "profile_view"
	TypeProfileReminder         = "profile_reminder"
	TypeVAAdded                 = "va_added"
	TypeBusinessAdded           = "business_added"
	TypeAdminNotification       = "admin_notification"
	TypeSystemAnnouncement      = "system_announcement"
	TypeReferralJoined          = "referral_joined"
	TypeCelebrationPackage      = "celebration_package"
	TypeHiringInvoice           = "hiring_invoice"
	TypeInterceptedConversation = "intercepted_conversation"
)

var defaultTitles = map[string]string{
	TypeNewMessage:              "New message",
	TypeNewConversation:         "New conversation",
	TypeProfileView:             "Someone viewed your profile",
	TypeProfileReminder:         "Complete your profile",
	TypeVAAdded:                 "New VA joined",
	TypeBusinessAdded:           "New business joined",
	TypeAdminNotification:       "Message from the Linkage team",
	TypeSystemAnnouncement:      "New announcement",
	TypeReferralJoined:          "Your referral joined",
	TypeCelebrationPackage:      "Celebration package",
	TypeHiringInvoice:           "Hiring invoice",
	TypeInterceptedConversation: "New business inquiry",
}

// ValidType reports whether t is a known notification type.
func ValidType(t string) bool {
	_, ok := defaultTitles[t]
	return ok
}

// DefaultTitle is the title used when a notification is created without one.
func DefaultTitle(t string) string { return defaultTitles[t] }

type Notification struct {
	ID           string                 `bson:"_id,omitempty" json:"id"`
	Recipient    string                 `bson:"recipient" json:"recipient"`
	Type         string                 `bson:"type" json:"type"`
	Title        string                 `bson:"title" json:"title"`
	Message      string                 `bson:"message,omitempty" json:"message,omitempty"`
	Params       map[string]interface{} `bson:"params,omitempty" json:"params,omitempty"`
	ActionURL    string                 `bson:"actionUrl,omitempty" json:"actionUrl,omitempty"`
	Conversation string                 `bson:"conversation,omitempty" json:"conversation,omitempty"`
	ReadAt       *time.Time             `bson:"readAt,omitempty" json:"readAt"`
	Archived     bool                   `bson:"archived" json:"archived"`
	CreatedAt    time.Time              `bson:"createdAt" json:"createdAt"`
}

// Input describes a notification to create.
type Input struct {
	Recipient    string
	Type         string
	Title        string
	Message      string
	Params       map[string]interface{}
	ActionURL    string
	Conversation string
}
