package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/settings"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// ConfigHandler exposes the runtime settings store.
type ConfigHandler struct {
	svc *settings.Service
}

func NewConfigHandler(s *settings.Service) *ConfigHandler {
	return &ConfigHandler{svc: s}
}

func (h *ConfigHandler) RegisterAdmin(admin *gin.RouterGroup) {
	admin.GET("/config", h.Editable)
	admin.PUT("/config", h.Update)
}

func (h *ConfigHandler) RegisterPublic(public *gin.RouterGroup) {
	public.GET("/config/public", h.Public)
}

func (h *ConfigHandler) Editable(c *gin.Context) {
	out, err := h.svc.Editable(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": out})
}

func (h *ConfigHandler) Update(c *gin.Context) {
	var req struct {
		Configs map[string]interface{} `json:"configs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	actor := middleware.CurrentUser(c)
	updated, err := h.svc.Update(c.Request.Context(), actor.ID, req.Configs)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Infow("settings updated", "admin", actor.ID, "keys", updated)
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *ConfigHandler) Public(c *gin.Context) {
	out, err := h.svc.Public(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": out})
}
