// Package realtime pushes server events to websocket clients grouped in rooms.
package realtime

import "github.com/linkage-va-hub/linkage/backend/go-services/internal/models"

// Events pushed to clients.
const (
	EventNewMessage         = "new_message"
	EventNewConversation    = "new_conversation"
	EventNotification       = "notification:new"
	EventAdminUnreadUpdate  = "admin_unread_update"
	EventAnnouncement       = "announcement:new"
	EventConversationRead   = "conversation:read"
	EventEngagementSummary  = "engagements:summary:update"
	EventJoinedConversation = "joined_conversation"
	EventError              = "error"
	EventPong               = "pong"
)

// AdminRoom receives moderation events.
const AdminRoom = "admin-notifications"

// Emitter delivers an event to every connection in a room.
type Emitter interface {
	Emit(room, event string, payload interface{})
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(room, event string, payload interface{}) {}

func UserRoom(userID string) string     { return userID }
func RoleRoom(role string) string       { return "role:" + role }
func BusinessRoom(userID string) string { return "business:" + userID }
func ConversationRoom(id string) string { return "conversation:" + id }

// EngagementSummaryEvent is the per-business summary invalidation event.
func EngagementSummaryEvent(businessID string) string {
	return EventEngagementSummary + ":" + businessID
}

// RoomsFor lists the rooms a connection of u joins on connect.
func RoomsFor(u *models.User) []string {
	rooms := []string{UserRoom(u.ID)}
	if u.Role != "" {
		rooms = append(rooms, RoleRoom(u.Role))
	}
	if u.Role == models.RoleBusiness {
		rooms = append(rooms, BusinessRoom(u.ID))
	}
	if u.Admin {
		rooms = append(rooms, AdminRoom)
	}
	return rooms
}
