package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/businesses"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/intercept"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/messaging"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/profile"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// InterceptHandler serves the admin moderation queue for business-initiated conversations.
type InterceptHandler struct {
	svc   *intercept.Service
	msgs  *messaging.Service
	users *users.Service
	biz   *businesses.Service
}

func NewInterceptHandler(svc *intercept.Service, msgs *messaging.Service, u *users.Service, b *businesses.Service) *InterceptHandler {
	return &InterceptHandler{svc: svc, msgs: msgs, users: u, biz: b}
}

// Register mounts /intercept on a group already restricted to admins.
func (h *InterceptHandler) Register(admin *gin.RouterGroup) {
	g := admin.Group("/intercept")
	g.GET("/conversations", h.List)
	g.GET("/conversations/:id", h.Get)
	g.POST("/forward/:id", h.Forward)
	g.POST("/reply/:id", h.Reply)
	g.PUT("/notes/:id", h.Notes)
	g.PUT("/status/:id", h.Status)
	g.POST("/batch", h.Batch)
	g.GET("/stats", h.Stats)
	g.GET("/check-messaging-eligibility/:businessId", h.Eligibility)
	g.GET("/profile-completion-requirements", h.Requirements)
}

func (h *InterceptHandler) List(c *gin.Context) {
	page, limit := pageQuery(c)
	out, p, err := h.svc.List(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*messaging.Conversation{}
	}
	list(c, out, p)
}

func (h *InterceptHandler) Get(c *gin.Context) {
	page, limit := pageQuery(c)
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if t.Messages == nil {
		t.Messages = []*messaging.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"data": t})
}

func (h *InterceptHandler) Forward(c *gin.Context) {
	var req struct {
		Message        string `json:"message"`
		Note           string `json:"note"`
		IncludeHistory bool   `json:"includeHistory"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	note := req.Message
	if note == "" {
		note = req.Note
	}
	res, err := h.svc.Forward(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), note, req.IncludeHistory)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *InterceptHandler) Reply(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "message is required")
		return
	}
	m, err := h.svc.Reply(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": m})
}

func (h *InterceptHandler) Notes(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	conv, err := h.svc.SetNotes(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conv})
}

func (h *InterceptHandler) Status(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	conv, err := h.svc.SetStatus(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conv})
}

func (h *InterceptHandler) Batch(c *gin.Context) {
	var req struct {
		IDs    []string `json:"conversationIds"`
		Alt    []string `json:"ids"`
		Action string   `json:"action"`
		Status string   `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ids := req.IDs
	if len(ids) == 0 {
		ids = req.Alt
	}
	res, err := h.svc.Batch(c.Request.Context(), middleware.CurrentUser(c).ID, ids, req.Action, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *InterceptHandler) Stats(c *gin.Context) {
	s, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s})
}

// Eligibility checks the messaging gate for a business, given its user id or profile id.
func (h *InterceptHandler) Eligibility(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("businessId")
	u, err := h.users.Get(ctx, id)
	if errors.Is(err, users.ErrNotFound) {
		b, berr := h.biz.Get(ctx, id)
		if berr != nil {
			fail(c, berr)
			return
		}
		u, err = h.users.Get(ctx, b.User)
	}
	if err != nil {
		fail(c, err)
		return
	}
	if u.Role != models.RoleBusiness {
		badRequest(c, "user is not a business")
		return
	}
	ok, comp, threshold, err := h.msgs.Eligibility(ctx, u)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canMessage": ok, "completion": comp, "threshold": threshold})
}

func (h *InterceptHandler) Requirements(c *gin.Context) {
	c.JSON(http.StatusOK, profile.Requirements())
}
