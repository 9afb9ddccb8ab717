package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/invitations"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// TokenIssuer logs a user in. *AuthHandler implements it.
type TokenIssuer interface {
	Issue(c *gin.Context, u *models.User) (gin.H, error)
}

// InvitationHandler serves admin invitations and their public acceptance.
type InvitationHandler struct {
	svc    *invitations.Service
	issuer TokenIssuer
}

func NewInvitationHandler(s *invitations.Service, issuer TokenIssuer) *InvitationHandler {
	return &InvitationHandler{svc: s, issuer: issuer}
}

func (h *InvitationHandler) RegisterAdmin(admin *gin.RouterGroup) {
	g := admin.Group("/invitations")
	g.POST("", h.Invite)
	g.GET("", h.List)
	g.DELETE("/:id", h.Cancel)
	g.POST("/:id/resend", h.Resend)
}

func (h *InvitationHandler) RegisterPublic(public *gin.RouterGroup) {
	g := public.Group("/invitations")
	g.GET("/verify/:token", h.Verify)
	g.POST("/accept/:token", h.Accept)
}

func (h *InvitationHandler) Invite(c *gin.Context) {
	var req struct {
		Email   string `json:"email" binding:"required"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email is required")
		return
	}
	created, err := h.svc.Invite(c.Request.Context(), middleware.CurrentUser(c).ID, req.Email, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Infow("admin invitation created", "email", created.Invitation.Email, "by", middleware.CurrentUser(c).ID)
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (h *InvitationHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*invitations.Invitation{}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *InvitationHandler) Cancel(c *gin.Context) {
	inv, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (h *InvitationHandler) Resend(c *gin.Context) {
	created, err := h.svc.Resend(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": created})
}

func (h *InvitationHandler) Verify(c *gin.Context) {
	inv, err := h.svc.Verify(c.Request.Context(), c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "email": inv.Email, "expiresAt": inv.ExpiresAt, "message": inv.Message})
}

// Accept creates or promotes the invited account and logs it in.
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "password is required")
		return
	}
	u, err := h.svc.Accept(c.Request.Context(), c.Param("token"), req.Name, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	body, err := h.issuer.Issue(c, u)
	if err != nil {
		logger.Errorf("issue tokens for invited admin %s: %v", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusOK, body)
}
