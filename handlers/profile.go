package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/businesses"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/profile"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/settings"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/vas"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// ProfileHandler reports how complete the caller's profile is.
type ProfileHandler struct {
	vas      *vas.Service
	biz      *businesses.Service
	settings IntSettings
}

func NewProfileHandler(v *vas.Service, b *businesses.Service, st IntSettings) *ProfileHandler {
	return &ProfileHandler{vas: v, biz: b, settings: st}
}

func (h *ProfileHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/profile/completion", h.Completion)
	rg.GET("/profile/completion/requirements", h.Requirements)
}

func (h *ProfileHandler) threshold(c *gin.Context) int {
	if h.settings == nil {
		return profile.GateThreshold
	}
	return h.settings.Int(c.Request.Context(), settings.KeyProfileGateThreshold, profile.GateThreshold)
}

// Completion scores the caller's VA or business profile. A missing profile scores zero.
func (h *ProfileHandler) Completion(c *gin.Context) {
	u := middleware.CurrentUser(c)
	ctx := c.Request.Context()
	switch {
	case u.IsVA():
		va, err := h.vas.GetByUser(ctx, u.ID)
		if err != nil && !errors.Is(err, vas.ErrNotFound) {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": u.Role, "completion": profile.VA(va, u.Email), "hasProfile": va != nil})
	case u.IsBusiness():
		b, err := h.biz.GetByUser(ctx, u.ID)
		if err != nil && !errors.Is(err, businesses.ErrNotFound) {
			fail(c, err)
			return
		}
		threshold := h.threshold(c)
		comp := profile.Business(b)
		c.JSON(http.StatusOK, gin.H{
			"role":       u.Role,
			"completion": comp,
			"hasProfile": b != nil,
			"threshold":  threshold,
			"canMessage": profile.CanMessageAt(comp, threshold),
		})
	default:
		badRequest(c, "account has no profile role")
	}
}

func (h *ProfileHandler) Requirements(c *gin.Context) {
	reqs := profile.Requirements()
	reqs["threshold"] = h.threshold(c)
	c.JSON(http.StatusOK, reqs)
}
