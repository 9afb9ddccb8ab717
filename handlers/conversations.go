package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/messaging"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// ConversationHandler serves the VA/business inbox.
type ConversationHandler struct {
	msgs *messaging.Service
}

func NewConversationHandler(m *messaging.Service) *ConversationHandler {
	return &ConversationHandler{msgs: m}
}

func (h *ConversationHandler) Register(rg *gin.RouterGroup) {
	c := rg.Group("/conversations", middleware.RequireRole(models.RoleVA, models.RoleBusiness))
	c.POST("/start", h.Start)
	c.GET("", h.List)
	c.GET("/unread/count", h.UnreadCount)
	c.GET("/eligibility", h.Eligibility)
	c.GET("/:id", h.Get)
	c.POST("/:id/messages", h.Send)
	c.PUT("/:id/read", h.MarkRead)
	c.PUT("/:id/block", h.block(true))
	c.PUT("/:id/unblock", h.block(false))
	c.PUT("/:id/archive", h.Archive)
}

type sendRequest struct {
	Message  string `json:"message"`
	Body     string `json:"body"`
	ClientID string `json:"clientId"`
	ReplyTo  string `json:"replyTo"`
}

func (r sendRequest) text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Body
}

// Start opens a conversation with a VA or business and posts the first message.
func (h *ConversationHandler) Start(c *gin.Context) {
	var req struct {
		sendRequest
		VAID        string `json:"vaId"`
		BusinessID  string `json:"businessId"`
		RecipientID string `json:"recipientId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	recipient := req.RecipientID
	if recipient == "" {
		recipient = req.VAID
	}
	if recipient == "" {
		recipient = req.BusinessID
	}
	if recipient == "" {
		badRequest(c, "vaId or businessId is required")
		return
	}
	res, err := h.msgs.Start(c.Request.Context(), middleware.CurrentUser(c), recipient, req.text(), req.ClientID)
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if res.IsNew {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": res, "isNew": res.IsNew, "intercepted": res.Conversation.IsIntercepted})
}

func (h *ConversationHandler) List(c *gin.Context) {
	page, limit := pageQuery(c)
	out, p, err := h.msgs.List(c.Request.Context(), middleware.CurrentUser(c), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*messaging.Conversation{}
	}
	list(c, out, p)
}

// Get returns the conversation with one page of messages, oldest first.
func (h *ConversationHandler) Get(c *gin.Context) {
	page, limit := pageQuery(c)
	t, err := h.msgs.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if t.Messages == nil {
		t.Messages = []*messaging.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"data": t})
}

func (h *ConversationHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.msgs.Send(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req.text(), req.ClientID, req.ReplyTo)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": m})
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
	n, err := h.msgs.MarkRead(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markedRead": n})
}

func (h *ConversationHandler) block(blocked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		conv, err := h.msgs.SetBlocked(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), blocked)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": conv})
	}
}

func (h *ConversationHandler) Archive(c *gin.Context) {
	conv, err := h.msgs.Archive(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conv})
}

func (h *ConversationHandler) UnreadCount(c *gin.Context) {
	n, err := h.msgs.UnreadCount(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": n})
}

// Eligibility reports whether the caller passes the profile-completion gate.
func (h *ConversationHandler) Eligibility(c *gin.Context) {
	ok, comp, threshold, err := h.msgs.Eligibility(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	body := gin.H{"canMessage": ok}
	if comp != nil {
		body["completion"] = comp
		body["threshold"] = threshold
	}
	c.JSON(http.StatusOK, body)
}
