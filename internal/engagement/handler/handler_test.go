package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement/service"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
	"github.com/stretchr/testify/require"
)

func asUser(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserKey, u)
		c.Next()
	}
}

func newRouter(svc *service.Service, u *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	api := g.Group("/api", asUser(u))
	RegisterEngagementRoutes(api.Group("", middleware.RequireRole(models.RoleBusiness)), api.Group("/admin", middleware.RequireAdmin()), svc)
	return g
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	g.ServeHTTP(w, req)
	return w
}

const createBody = `{"vaId":"va-1","vaName":"Maria","contract":{"startDate":"2024-05-01T00:00:00Z","hoursPerWeek":20,"rate":12}}`

func TestEngagementHandler_BusinessCRUD(t *testing.T) {
	svc := service.NewMemoryService(nil)
	g := newRouter(svc, &models.User{ID: "biz-1", Role: models.RoleBusiness})

	w := do(g, http.MethodPost, "/api/engagements", createBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data struct {
			ID             string `json:"id"`
			ClientID       string `json:"clientId"`
			Status         string `json:"status"`
			ContractStatus string `json:"contractStatus"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID
	require.NotEmpty(t, id)
	require.Equal(t, "biz-1", created.Data.ClientID)
	require.Equal(t, "considering", created.Data.Status)

	w = do(g, http.MethodGet, "/api/engagements/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sum struct {
		Data   map[string]int `json:"data"`
		Cached bool           `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	require.Equal(t, 1, sum.Data["total"])
	require.False(t, sum.Cached)

	w = do(g, http.MethodGet, "/api/engagements/summary", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	require.True(t, sum.Cached)

	w = do(g, http.MethodPatch, "/api/engagements/"+id+"/status", `{"status":"active"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(g, http.MethodGet, "/api/engagements?status=active", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination models.Pagination        `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.Equal(t, int64(1), list.Pagination.Total)

	w = do(g, http.MethodPut, "/api/engagements/"+id, `{"contract":{"hoursPerWeek":200}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodDelete, "/api/engagements/"+id, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(g, http.MethodGet, "/api/engagements/"+id, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEngagementHandler_OtherBusinessGets404(t *testing.T) {
	svc := service.NewMemoryService(nil)
	owner := newRouter(svc, &models.User{ID: "biz-1", Role: models.RoleBusiness})
	other := newRouter(svc, &models.User{ID: "biz-2", Role: models.RoleBusiness})

	w := do(owner, http.MethodPost, "/api/engagements", createBody)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	require.Equal(t, http.StatusNotFound, do(other, http.MethodGet, "/api/engagements/"+created.Data.ID, "").Code)
	require.Equal(t, http.StatusNotFound, do(other, http.MethodDelete, "/api/engagements/"+created.Data.ID, "").Code)
}

func TestEngagementHandler_RoleGuards(t *testing.T) {
	svc := service.NewMemoryService(nil)
	va := newRouter(svc, &models.User{ID: "va-1", Role: models.RoleVA})
	require.Equal(t, http.StatusForbidden, do(va, http.MethodGet, "/api/engagements", "").Code)
	require.Equal(t, http.StatusForbidden, do(va, http.MethodGet, "/api/admin/engagements", "").Code)
}

func TestEngagementHandler_Admin(t *testing.T) {
	svc := service.NewMemoryService(nil)
	g := newRouter(svc, &models.User{ID: "admin-1", Admin: true})

	w := do(g, http.MethodPost, "/api/admin/engagements", `{"clientId":"biz-9","vaId":"va-1","contract":{"startDate":"2024-05-01T00:00:00Z"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(g, http.MethodGet, "/api/admin/engagements?businessId=biz-9", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"clientId":"biz-9"`)

	w = do(g, http.MethodGet, "/api/admin/engagements?startDate=not-a-date", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodGet, "/api/admin/engagements/analytics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total":1`)
}
