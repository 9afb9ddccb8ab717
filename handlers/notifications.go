package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/notifications"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

type NotificationHandler struct {
	svc *notifications.Service
}

func NewNotificationHandler(s *notifications.Service) *NotificationHandler {
	return &NotificationHandler{svc: s}
}

func (h *NotificationHandler) Register(rg *gin.RouterGroup) {
	n := rg.Group("/notifications")
	n.GET("", h.List)
	n.GET("/unread-count", h.UnreadCount)
	n.PUT("/read", h.MarkRead)
	n.PUT("/read-all", h.MarkAllRead)
	n.PUT("/:id/archive", h.Archive)
	n.DELETE("/:id", h.Delete)
}

func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := false
	if v := queryBool(c, "unreadOnly"); v != nil {
		unreadOnly = *v
	}
	out, unread, err := h.svc.List(c.Request.Context(), middleware.CurrentUser(c).ID, unreadOnly, queryInt(c, "limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*notifications.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "unreadCount": unread})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), middleware.CurrentUser(c).ID, req.IDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *NotificationHandler) Archive(c *gin.Context) {
	if err := h.svc.Archive(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification archived"})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
