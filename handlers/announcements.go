package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/announcements"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// AnnouncementHandler serves announcements to users and their management to admins.
type AnnouncementHandler struct {
	svc *announcements.Service
}

func NewAnnouncementHandler(s *announcements.Service) *AnnouncementHandler {
	return &AnnouncementHandler{svc: s}
}

func (h *AnnouncementHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/announcements")
	a.GET("", h.ForUser)
	a.GET("/unread-count", h.UnreadCount)
	a.POST("/:id/read", h.MarkRead)
}

func (h *AnnouncementHandler) RegisterAdmin(admin *gin.RouterGroup) {
	a := admin.Group("/announcements")
	a.GET("", h.AdminList)
	a.POST("", h.Create)
	a.PUT("/:id", h.Update)
	a.DELETE("/:id", h.Delete)
}

func (h *AnnouncementHandler) ForUser(c *gin.Context) {
	page, limit := pageQuery(c)
	out, p, err := h.svc.ForUser(c.Request.Context(), middleware.CurrentUser(c), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []announcements.WithRead{}
	}
	list(c, out, p)
}

func (h *AnnouncementHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": n})
}

func (h *AnnouncementHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

func (h *AnnouncementHandler) AdminList(c *gin.Context) {
	page, limit := pageQuery(c)
	out, p, err := h.svc.AdminList(c.Request.Context(), queryBool(c, "active"), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*announcements.Announcement{}
	}
	list(c, out, p)
}

func (h *AnnouncementHandler) Create(c *gin.Context) {
	var in announcements.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c).ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": a})
}

func (h *AnnouncementHandler) Update(c *gin.Context) {
	var in announcements.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

func (h *AnnouncementHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "announcement deleted"})
}
