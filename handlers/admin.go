package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/admin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/businesses"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/vas"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

const (
	adminPageSize    = 20
	adminMaxPageSize = 100
)

// SessionRevoker ends every session of a user. *sessions.Service implements it.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// AdminHandler serves platform management: statistics, users and profile moderation.
type AdminHandler struct {
	stats    *admin.Service
	users    *users.Service
	vas      *vas.Service
	biz      *businesses.Service
	sessions SessionRevoker
}

func NewAdminHandler(stats *admin.Service, u *users.Service, v *vas.Service, b *businesses.Service, s SessionRevoker) *AdminHandler {
	return &AdminHandler{stats: stats, users: u, vas: v, biz: b, sessions: s}
}

// Register mounts the routes on a group already restricted to admins.
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/stats", h.Stats)
	rg.GET("/dashboard", h.Dashboard)
	rg.GET("/analytics", h.Analytics)

	rg.GET("/users", h.Users)
	rg.PUT("/users/:id/suspend", h.ToggleSuspend)
	rg.PUT("/users/:id/admin", h.ToggleAdmin)

	rg.GET("/vas", h.VAs)
	rg.PUT("/vas/:id", h.UpdateVA)
	rg.DELETE("/vas/:id", h.DeleteVA)

	rg.GET("/businesses", h.Businesses)
	rg.GET("/businesses/:id", h.Business)
	rg.PUT("/businesses/:id", h.UpdateBusiness)
	rg.DELETE("/businesses/:id", h.DeleteBusiness)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	s, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s})
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	d, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": d})
}

func (h *AdminHandler) Analytics(c *gin.Context) {
	a, err := h.stats.Analytics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

func adminPage(c *gin.Context) (int, int) {
	return models.NormalizePage(queryInt(c, "page", 1), queryInt(c, "limit", 0), adminPageSize, adminMaxPageSize)
}

func (h *AdminHandler) Users(c *gin.Context) {
	page, limit := adminPage(c)
	f := users.ListFilter{
		Role:      c.Query("role"),
		Search:    strings.TrimSpace(c.Query("search")),
		Suspended: queryBool(c, "suspended"),
		Admin:     queryBool(c, "admin"),
		Page:      page,
		Limit:     limit,
	}
	out, total, err := h.users.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*models.User{}
	}
	list(c, out, models.NewPagination(page, limit, total))
}

// ToggleSuspend flips the suspended flag. Suspending also ends the user's refresh sessions.
func (h *AdminHandler) ToggleSuspend(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	u, err := h.users.ToggleSuspend(c.Request.Context(), actor.ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if u.Suspended && h.sessions != nil {
		if err := h.sessions.RevokeUser(c.Request.Context(), u.ID); err != nil {
			logger.Warnf("revoke sessions of suspended user %s: %v", u.ID, err)
		}
	}
	logger.Infow("user suspension toggled", "admin", actor.ID, "user", u.ID, "suspended", u.Suspended)
	c.JSON(http.StatusOK, gin.H{"data": u})
}

func (h *AdminHandler) ToggleAdmin(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	u, err := h.users.ToggleAdmin(c.Request.Context(), actor.ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	logger.Infow("admin flag toggled", "admin", actor.ID, "user", u.ID, "isAdmin", u.Admin)
	c.JSON(http.StatusOK, gin.H{"data": u})
}

// VAs lists every profile, hidden ones included.
func (h *AdminHandler) VAs(c *gin.Context) {
	page, limit := adminPage(c)
	f := vas.ListFilter{
		Search:       strings.TrimSpace(c.Query("search")),
		Status:       c.Query("status"),
		SearchStatus: splitCSV(c.Query("searchStatus")),
		FeaturedOnly: c.Query("featured") == "true",
		Sort:         c.DefaultQuery("sort", "-createdAt"),
		Page:         page,
		Limit:        limit,
	}
	out, total, err := h.vas.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*models.VA{}
	}
	list(c, out, models.NewPagination(page, limit, total))
}

// UpdateVA applies moderation fields; profile fields go through the owner update.
func (h *AdminHandler) UpdateVA(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		badRequest(c, "request body is required")
		return
	}
	var p vas.AdminPatch
	if err := bindBytes(body, &p); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	id := c.Param("id")
	va, err := h.vas.AdminUpdate(ctx, id, p)
	if err != nil {
		fail(c, err)
		return
	}
	if patch := stripKeys(body, "status", "searchStatus", "featured", "searchScore"); patch != nil {
		if va, err = h.vas.Update(ctx, actor.ID, true, id, patch); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": va})
}

func (h *AdminHandler) DeleteVA(c *gin.Context) {
	ctx := c.Request.Context()
	va, err := h.vas.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.vas.Delete(ctx, va.ID); err != nil {
		fail(c, err)
		return
	}
	if err := h.users.LinkProfile(ctx, va.User, models.RoleVA, ""); err != nil {
		logger.Warnf("unlink va profile %s: %v", va.ID, err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "va profile deleted"})
}

func (h *AdminHandler) Businesses(c *gin.Context) {
	page, limit := adminPage(c)
	f := businesses.ListFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Industry: c.Query("industry"),
		Page:     page,
		Limit:    limit,
	}
	out, total, err := h.biz.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*models.Business{}
	}
	list(c, out, models.NewPagination(page, limit, total))
}

func (h *AdminHandler) Business(c *gin.Context) {
	b, err := h.biz.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (h *AdminHandler) UpdateBusiness(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		badRequest(c, "request body is required")
		return
	}
	b, err := h.biz.Update(c.Request.Context(), middleware.CurrentUser(c).ID, true, c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (h *AdminHandler) DeleteBusiness(c *gin.Context) {
	ctx := c.Request.Context()
	owner, err := h.biz.Delete(ctx, middleware.CurrentUser(c).ID, true, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.users.LinkProfile(ctx, owner, models.RoleBusiness, ""); err != nil {
		logger.Warnf("unlink business profile of %s: %v", owner, err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "business profile deleted"})
}
