// Package messaging implements conversations between VAs and businesses,
// including conversations intercepted for admin review.
package messaging

import (
	"html"
	"strings"
	"time"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Admin moderation states of an intercepted conversation.
const (
	AdminPending       = "pending"
	AdminForwarded     = "forwarded"
	AdminReplied       = "replied"
	AdminAwaitingReply = "awaiting_reply"
	AdminResolved      = "resolved"
	AdminSpam          = "spam"
)

var AdminStatuses = []string{AdminPending, AdminForwarded, AdminReplied, AdminAwaitingReply, AdminResolved, AdminSpam}

func ValidAdminStatus(s string) bool {
	for _, v := range AdminStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Sender models.
const (
	SenderUser  = "User"
	SenderAdmin = "Admin"
)

// Message types.
const (
	TypeText         = "text"
	TypeSystem       = "system"
	TypeAdminForward = "admin_forward"
)

// Delivery states.
const (
	DeliverySending   = "sending"
	DeliverySent      = "sent"
	DeliveryDelivered = "delivered"
	DeliveryRead      = "read"
	DeliveryFailed    = "failed"
)

const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationFlagged  = "flagged"
	ModerationRemoved  = "removed"
)

const MaxBodyLength = 5000

type AdminAction struct {
	Action      string    `bson:"action" json:"action"`
	PerformedBy string    `bson:"performedBy" json:"performedBy"`
	PerformedAt time.Time `bson:"performedAt" json:"performedAt"`
	Details     string    `bson:"details,omitempty" json:"details,omitempty"`
}

// AdminUpdate is a partial write of the moderation fields. Nil fields are left
// as stored; counters and the last message are never part of it.
type AdminUpdate struct {
	Status                *string
	AdminStatus           *string
	AdminNotes            *string
	ForwardedConversation *string
	Action                *AdminAction
	At                    time.Time
}

// ApplyTo mirrors the update onto an in-memory conversation.
func (u AdminUpdate) ApplyTo(c *Conversation) {
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.AdminStatus != nil {
		c.AdminStatus = *u.AdminStatus
	}
	if u.AdminNotes != nil {
		c.AdminNotes = *u.AdminNotes
	}
	if u.ForwardedConversation != nil {
		c.ForwardedConversation = *u.ForwardedConversation
	}
	if u.Action != nil {
		c.AdminActions = append(c.AdminActions, *u.Action)
	}
	c.UpdatedAt = u.At
}

type UnreadCount struct {
	VA       int `bson:"va" json:"va"`
	Business int `bson:"business" json:"business"`
	Admin    int `bson:"admin" json:"admin"`
}

type LastMessage struct {
	Body      string    `bson:"body" json:"body"`
	Sender    string    `bson:"sender" json:"sender"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Conversation is between a VA user and a business user. An intercepted
// conversation is only visible to the business and admins.
type Conversation struct {
	ID                    string        `bson:"_id,omitempty" json:"id"`
	VA                    string        `bson:"va" json:"va"`
	Business              string        `bson:"business" json:"business"`
	Participants          []string      `bson:"participants" json:"participants"`
	Status                string        `bson:"status" json:"status"`
	IsIntercepted         bool          `bson:"isIntercepted" json:"isIntercepted"`
	OriginalSender        string        `bson:"originalSender,omitempty" json:"originalSender,omitempty"`
	InterceptedAt         *time.Time    `bson:"interceptedAt,omitempty" json:"interceptedAt,omitempty"`
	AdminStatus           string        `bson:"adminStatus,omitempty" json:"adminStatus,omitempty"`
	AdminNotes            string        `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`
	AdminActions          []AdminAction `bson:"adminActions,omitempty" json:"adminActions,omitempty"`
	VABlockedAt           *time.Time    `bson:"vaBlockedAt,omitempty" json:"vaBlockedAt,omitempty"`
	BusinessBlockedAt     *time.Time    `bson:"businessBlockedAt,omitempty" json:"businessBlockedAt,omitempty"`
	InboundEmailToken     string        `bson:"inboundEmailToken" json:"-"`
	UnreadCount           UnreadCount   `bson:"unreadCount" json:"unreadCount"`
	LastMessage           *LastMessage  `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastMessageAt         time.Time     `bson:"lastMessageAt" json:"lastMessageAt"`
	MessagesCount         int           `bson:"messagesCount" json:"messagesCount"`
	ForwardedConversation string        `bson:"forwardedConversation,omitempty" json:"forwardedConversation,omitempty"`
	ArchivedBy            []string      `bson:"archivedBy,omitempty" json:"archivedBy,omitempty"`
	CreatedAt             time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// IsParticipant reports whether userID is the VA or the business of c.
func (c *Conversation) IsParticipant(userID string) bool {
	return userID != "" && (c.VA == userID || c.Business == userID)
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.VA == userID {
		return c.Business
	}
	return c.VA
}

// BlockedFor reports whether the other participant has blocked userID.
func (c *Conversation) BlockedFor(userID string) bool {
	if c.VA == userID {
		return c.BusinessBlockedAt != nil
	}
	return c.VABlockedAt != nil
}

type Attachment struct {
	URL      string `bson:"url" json:"url"`
	Name     string `bson:"name,omitempty" json:"name,omitempty"`
	MimeType string `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	Size     int64  `bson:"size,omitempty" json:"size,omitempty"`
}

type Message struct {
	ID               string       `bson:"_id,omitempty" json:"id"`
	Conversation     string       `bson:"conversation" json:"conversation"`
	Sender           string       `bson:"sender" json:"sender"`
	SenderModel      string       `bson:"senderModel" json:"senderModel"`
	Body             string       `bson:"body" json:"body"`
	BodyHTML         string       `bson:"bodyHtml" json:"bodyHtml"`
	Attachments      []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
	ReadAt           *time.Time   `bson:"readAt,omitempty" json:"readAt,omitempty"`
	Status           string       `bson:"status" json:"status"`
	MessageType      string       `bson:"messageType" json:"messageType"`
	ReplyTo          string       `bson:"replyTo,omitempty" json:"replyTo,omitempty"`
	EditedAt         *time.Time   `bson:"editedAt,omitempty" json:"editedAt,omitempty"`
	DeletedAt        *time.Time   `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	ModerationStatus string       `bson:"moderationStatus" json:"moderationStatus"`
	ClientID         string       `bson:"-" json:"clientId,omitempty"`
	CreatedAt        time.Time    `bson:"createdAt" json:"createdAt"`
}

// RenderHTML escapes body and turns newlines into <br>.
func RenderHTML(body string) string {
	s := html.EscapeString(body)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}

func preview(body string) string {
	const max = 100
	r := []rune(body)
	if len(r) > max {
		return string(r[:max])
	}
	return body
}
