package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/businesses"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// BusinessHandler serves business profiles.
type BusinessHandler struct {
	biz   *businesses.Service
	store Uploader
	users ProfileLinker
}

func NewBusinessHandler(b *businesses.Service, store Uploader, users ProfileLinker) *BusinessHandler {
	return &BusinessHandler{biz: b, store: store, users: users}
}

func (h *BusinessHandler) Register(rg *gin.RouterGroup) {
	owner := middleware.RequireRole(models.RoleBusiness)
	b := rg.Group("/businesses")
	b.GET("/me", owner, h.Mine)
	b.PUT("/me", owner, h.UpsertMine)
	b.POST("", owner, h.Create)
	b.POST("/me/upload", owner, h.UploadAvatar)
	b.GET("/:id", h.Get)
	b.PUT("/:id", h.Update)
	b.DELETE("/:id", h.Delete)
}

func (h *BusinessHandler) link(c *gin.Context, userID, profileID string) {
	if h.users == nil {
		return
	}
	if err := h.users.LinkProfile(c.Request.Context(), userID, models.RoleBusiness, profileID); err != nil {
		logger.Errorf("link business profile %q to user %s: %v", profileID, userID, err)
	}
}

func (h *BusinessHandler) Mine(c *gin.Context) {
	b, err := h.biz.GetByUser(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

// UpsertMine patches the caller's profile and creates it on first save.
func (h *BusinessHandler) UpsertMine(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		badRequest(c, "request body is required")
		return
	}
	u := middleware.CurrentUser(c)
	b, created, err := h.biz.UpsertMine(c.Request.Context(), u.ID, body)
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		h.link(c, u.ID, b.ID)
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": b})
}

func (h *BusinessHandler) Create(c *gin.Context) {
	var b models.Business
	if err := c.ShouldBindJSON(&b); err != nil {
		badRequest(c, err.Error())
		return
	}
	u := middleware.CurrentUser(c)
	created, err := h.biz.Create(c.Request.Context(), u.ID, &b)
	if err != nil {
		fail(c, err)
		return
	}
	h.link(c, u.ID, created.ID)
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// Get returns a profile. Invisible profiles are shown to their owner and admins only.
func (h *BusinessHandler) Get(c *gin.Context) {
	b, err := h.biz.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	u := middleware.CurrentUser(c)
	if b.Invisible && b.User != u.ID && !u.Admin {
		fail(c, businesses.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (h *BusinessHandler) Update(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		badRequest(c, "request body is required")
		return
	}
	u := middleware.CurrentUser(c)
	b, err := h.biz.Update(c.Request.Context(), u.ID, u.Admin, c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (h *BusinessHandler) Delete(c *gin.Context) {
	u := middleware.CurrentUser(c)
	owner, err := h.biz.Delete(c.Request.Context(), u.ID, u.Admin, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.link(c, owner, "")
	c.JSON(http.StatusOK, gin.H{"message": "business profile deleted"})
}

// UploadAvatar stores a company logo and sets it as the profile avatar.
func (h *BusinessHandler) UploadAvatar(c *gin.Context) {
	u := middleware.CurrentUser(c)
	b, err := h.biz.GetByUser(c.Request.Context(), u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	obj := receiveUpload(c, h.store, "logo", b.ID)
	if obj == nil {
		return
	}
	b, err = h.biz.SetAvatar(c.Request.Context(), u.ID, obj.URL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": obj.URL, "key": obj.Key, "data": b})
}
