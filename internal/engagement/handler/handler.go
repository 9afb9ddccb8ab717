package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement/service"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

type handler struct {
	svc *service.Service
}

// RegisterEngagementRoutes mounts the business routes on business (already
// restricted to business users) and the admin routes on admin.
func RegisterEngagementRoutes(business, admin *gin.RouterGroup, svc *service.Service) {
	h := &handler{svc: svc}
	if business != nil {
		g := business.Group("/engagements")
		g.GET("/summary", h.summary)
		g.GET("", h.list(false))
		g.GET("/:id", h.get)
		g.POST("", h.create(false))
		g.PUT("/:id", h.update(false))
		g.PATCH("/:id/status", h.status(false))
		g.DELETE("/:id", h.remove(false))
	}
	if admin != nil {
		g := admin.Group("/engagements")
		g.GET("/analytics", h.analytics)
		g.GET("", h.list(true))
		g.POST("", h.create(true))
		g.PUT("/:id", h.update(true))
		g.PATCH("/:id/status", h.status(true))
		g.DELETE("/:id", h.remove(true))
	}
}

func fail(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "details": verr})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "engagement not found"})
	default:
		logger.Errorf("engagement handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// scope is the business whose engagements the caller may touch; empty for admins.
func scope(c *gin.Context, admin bool) string {
	if admin {
		return ""
	}
	return middleware.CurrentUser(c).ID
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func (h *handler) summary(c *gin.Context) {
	u := middleware.CurrentUser(c)
	sum, cached, err := h.svc.Summary(c.Request.Context(), u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sum, "cached": cached})
}

func (h *handler) list(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := engagement.Filter{
			ClientID: scope(c, admin),
			Status:   c.Query("status"),
			Search:   c.Query("search"),
			Sort:     c.DefaultQuery("sort", engagement.SortRecent),
		}
		f.Page, _ = strconv.Atoi(c.Query("page"))
		f.Limit, _ = strconv.Atoi(c.Query("limit"))
		if admin {
			f.ClientID = c.Query("businessId")
			f.VAID = c.Query("vaId")
			for key, dst := range map[string]*time.Time{"startDate": &f.CreatedFrom, "endDate": &f.CreatedTo} {
				if v := c.Query(key); v != "" {
					t, err := parseDate(v)
					if err != nil {
						fail(c, models.Invalid(key, "invalid date %q", v))
						return
					}
					*dst = t
				}
			}
		}
		views, page, err := h.svc.List(c.Request.Context(), f)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": views, "pagination": page})
	}
}

func (h *handler) get(c *gin.Context) {
	e, err := h.svc.Get(c.Request.Context(), scope(c, false), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.svc.View(e)})
}

func (h *handler) create(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in service.CreateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u := middleware.CurrentUser(c)
		clientID := u.ID
		if admin {
			clientID = in.ClientID
		}
		e, err := h.svc.Create(c.Request.Context(), u.ID, clientID, in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": h.svc.View(e)})
	}
}

func (h *handler) update(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p service.Patch
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		e, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c).ID, scope(c, admin), c.Param("id"), p)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": h.svc.View(e)})
	}
}

func (h *handler) status(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		e, err := h.svc.UpdateStatus(c.Request.Context(), middleware.CurrentUser(c).ID, scope(c, admin), c.Param("id"), req.Status)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": h.svc.View(e)})
	}
}

func (h *handler) remove(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.svc.Delete(c.Request.Context(), scope(c, admin), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *handler) analytics(c *gin.Context) {
	a, err := h.svc.Analytics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}
