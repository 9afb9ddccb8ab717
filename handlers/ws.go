package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/realtime"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// WSHandler upgrades authenticated clients onto the realtime hub.
type WSHandler struct {
	hub      *realtime.Hub
	verifier middleware.Verifier
	resolver middleware.PrincipalResolver
	upgrader websocket.Upgrader
}

// NewWSHandler accepts connections whose Origin is in origins; "*" allows any.
func NewWSHandler(hub *realtime.Hub, ver middleware.Verifier, res middleware.PrincipalResolver, origins []string) *WSHandler {
	h := &WSHandler{hub: hub, verifier: ver, resolver: res}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range origins {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
	return h
}

func (h *WSHandler) Register(r gin.IRoutes) {
	r.GET("/ws", h.Serve)
}

// Serve authenticates with ?token= or a bearer header before upgrading.
func (h *WSHandler) Serve(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		raw, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	ctx := c.Request.Context()
	claims, err := middleware.VerifyClaims(ctx, h.verifier, raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	u, err := h.resolver.ResolvePrincipal(ctx, claims)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	if u.Suspended {
		c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("websocket upgrade for %s: %v", u.ID, err)
		return
	}
	// Serve blocks until the socket closes.
	h.hub.Serve(context.WithoutCancel(ctx), conn, u.ID, u.Role, realtime.RoomsFor(u))
}
