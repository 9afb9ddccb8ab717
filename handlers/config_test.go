package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/cache"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/settings"
	"github.com/stretchr/testify/require"
)

func TestConfig_EditablePublicAndUpdate(t *testing.T) {
	svc := settings.NewService(settings.NewMemoryRepository(), cache.NewMemory(time.Minute, time.Minute))
	_, err := svc.Seed(context.Background())
	require.NoError(t, err)

	h := NewConfigHandler(svc)
	g := gin.New()
	h.RegisterPublic(g.Group("/api"))
	h.RegisterAdmin(g.Group("/api/admin", asUser(&models.User{ID: "adm", Admin: true})))

	var pub struct{ Configs map[string]interface{} }
	decode(t, do(g, http.MethodGet, "/api/config/public", ""), &pub)
	require.Contains(t, pub.Configs, settings.KeyProfileGateThreshold)
	require.NotContains(t, pub.Configs, settings.KeySearchCandidateLimit)

	var editable struct{ Configs map[string]settings.Entry }
	decode(t, do(g, http.MethodGet, "/api/admin/config", ""), &editable)
	require.Equal(t, "messaging", editable.Configs[settings.KeyProfileGateThreshold].Category)

	w := do(g, http.MethodPut, "/api/admin/config", `{"configs":{"profile_gate_threshold":60,"maintenance_mode":true}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var upd struct{ Updated []string }
	decode(t, w, &upd)
	require.ElementsMatch(t, []string{settings.KeyProfileGateThreshold, settings.KeyMaintenanceMode}, upd.Updated)
	require.Equal(t, 60, svc.Int(context.Background(), settings.KeyProfileGateThreshold, 80))

	require.Equal(t, http.StatusBadRequest, do(g, http.MethodPut, "/api/admin/config", `{"configs":{"profile_gate_threshold":"high"}}`).Code)
	require.Equal(t, http.StatusBadRequest, do(g, http.MethodPut, "/api/admin/config", `{"configs":{}}`).Code)
	require.Equal(t, http.StatusBadRequest, do(g, http.MethodPut, "/api/admin/config", `{"configs":{"no_such_key":1}}`).Code)
}
