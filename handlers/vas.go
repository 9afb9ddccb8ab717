package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/disc"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/search"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/settings"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/vas"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// ProfileLinker records a freshly created profile on its owner.
type ProfileLinker interface {
	LinkProfile(ctx context.Context, id, role, profileID string) error
}

// IntSettings reads integer runtime settings. *settings.Service implements it.
type IntSettings interface {
	Int(ctx context.Context, key string, def int) int
}

// VAHandler serves VA profiles, relevance search and the DISC questionnaire.
type VAHandler struct {
	vas      *vas.Service
	searcher *search.Searcher
	store    Uploader
	users    ProfileLinker
	settings IntSettings

	candidateLimit int
}

const defaultCandidateLimit = 500

func NewVAHandler(v *vas.Service, s *search.Searcher, store Uploader, users ProfileLinker, st IntSettings) *VAHandler {
	return &VAHandler{vas: v, searcher: s, store: store, users: users, settings: st, candidateLimit: defaultCandidateLimit}
}

// SetCandidateLimit sets the search candidate cap used when the runtime setting is absent.
func (h *VAHandler) SetCandidateLimit(n int) {
	if n > 0 {
		h.candidateLimit = n
	}
}

// Register mounts the public read routes on public and profile management on authed.
func (h *VAHandler) Register(public, authed *gin.RouterGroup) {
	public.GET("/vas", h.List)
	public.GET("/vas/search", h.Search)
	public.GET("/vas/featured", h.Featured)
	public.GET("/vas/:identifier", h.Get)
	public.GET("/disc/questions", h.Questions)

	va := middleware.RequireRole(models.RoleVA)
	authed.GET("/vas/me", va, h.Mine)
	authed.POST("/vas", va, h.Create)
	authed.POST("/vas/me/disc", va, h.SubmitDISC)
	authed.PUT("/vas/:identifier", h.Update)
	authed.PUT("/vas/:identifier/specialties", h.SetSpecialties)
	authed.POST("/vas/:identifier/upload", h.Upload)
}

func (h *VAHandler) intSetting(ctx context.Context, key string, def int) int {
	if h.settings == nil {
		return def
	}
	return h.settings.Int(ctx, key, def)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryFloat(c *gin.Context, name string) float64 {
	v, _ := strconv.ParseFloat(c.Query(name), 64)
	return v
}

// List returns visible profiles with filters and pagination.
func (h *VAHandler) List(c *gin.Context) {
	page, limit := models.NormalizePage(queryInt(c, "page", 1), queryInt(c, "limit", 0), vas.DefaultPageSize, vas.MaxPageSize)
	f := vas.ListFilter{
		Search:      strings.TrimSpace(c.Query("search")),
		Specialties: splitCSV(c.Query("specialties")),
		RoleTypes:   splitCSV(c.Query("roleType")),
		RoleLevels:  splitCSV(c.Query("roleLevel")),
		MinRate:     queryFloat(c, "minRate"),
		MaxRate:     queryFloat(c, "maxRate"),
		Sort:        vas.NormalizeSort(c.Query("sort")),
		Page:        page,
		Limit:       limit,
	}
	out, total, err := h.vas.PublicList(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*models.VA{}
	}
	list(c, out, models.NewPagination(page, limit, total))
}

// Search ranks visible profiles against a free-text query.
func (h *VAHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	ctx := c.Request.Context()
	limit := h.intSetting(ctx, settings.KeySearchCandidateLimit, h.candidateLimit)
	candidates, err := h.vas.Candidates(ctx, limit)
	if err != nil {
		fail(c, err)
		return
	}
	results, mode := h.searcher.Search(ctx, q, candidates)
	total := len(results)
	if max := queryInt(c, "limit", 0); max > 0 && len(results) > max {
		results = results[:max]
	}
	if results == nil {
		results = []search.Result{}
	}
	logger.Debugf("va search q=%q mode=%s candidates=%d", q, mode, len(candidates))
	// total counts every ranked candidate, count the returned slice.
	c.JSON(http.StatusOK, gin.H{"data": results, "mode": mode, "total": total, "count": len(results)})
}

// Featured returns featured profiles, newest first.
func (h *VAHandler) Featured(c *gin.Context) {
	limit := h.intSetting(c.Request.Context(), settings.KeyFeaturedVALimit, vas.DefaultFeaturedLimit)
	out, err := h.vas.Featured(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		out = []*models.VA{}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// Get resolves a profile by id or public profile key. Hidden profiles look missing to others.
func (h *VAHandler) Get(c *gin.Context) {
	va, err := h.vas.GetByIdentifier(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		fail(c, err)
		return
	}
	viewer, admin := "", false
	if u := middleware.CurrentUser(c); u != nil {
		viewer, admin = u.ID, u.Admin
	}
	if !vas.CanView(va, viewer, admin) {
		fail(c, vas.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": va})
}

// Mine returns the caller's own profile.
func (h *VAHandler) Mine(c *gin.Context) {
	va, err := h.vas.GetByUser(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": va})
}

// Create stores the caller's profile and links it to the account.
func (h *VAHandler) Create(c *gin.Context) {
	var va models.VA
	if err := c.ShouldBindJSON(&va); err != nil {
		badRequest(c, err.Error())
		return
	}
	u := middleware.CurrentUser(c)
	created, err := h.vas.Create(c.Request.Context(), u.ID, &va)
	if err != nil {
		fail(c, err)
		return
	}
	if h.users != nil {
		if err := h.users.LinkProfile(c.Request.Context(), u.ID, models.RoleVA, created.ID); err != nil {
			logger.Errorf("link va profile %s to user %s: %v", created.ID, u.ID, err)
		}
	}
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// Update applies a partial update; owners and admins only.
func (h *VAHandler) Update(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		badRequest(c, "request body is required")
		return
	}
	u := middleware.CurrentUser(c)
	va, err := h.vas.Update(c.Request.Context(), u.ID, u.Admin, c.Param("identifier"), body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": va})
}

func (h *VAHandler) SetSpecialties(c *gin.Context) {
	var req struct {
		Specialties []string `json:"specialties"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u := middleware.CurrentUser(c)
	va, err := h.vas.SetSpecialties(c.Request.Context(), u.ID, u.Admin, c.Param("identifier"), req.Specialties)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": va})
}

// Upload stores an avatar, cover image or video introduction and records its URL.
func (h *VAHandler) Upload(c *gin.Context) {
	u := middleware.CurrentUser(c)
	ctx := c.Request.Context()
	va, err := h.vas.Get(ctx, c.Param("identifier"))
	if err != nil {
		fail(c, err)
		return
	}
	if va.User != u.ID && !u.Admin {
		fail(c, vas.ErrForbidden)
		return
	}
	kind := c.DefaultQuery("kind", vas.MediaAvatar)
	switch kind {
	case vas.MediaAvatar, vas.MediaCover, vas.MediaVideo:
	default:
		badRequest(c, "kind must be avatar, cover or video")
		return
	}
	obj := receiveUpload(c, h.store, kind, va.ID)
	if obj == nil {
		return
	}
	updated, err := h.vas.SetMedia(ctx, u.ID, u.Admin, va.ID, kind, obj.URL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": obj.URL, "key": obj.Key, "data": updated})
}

// Questions returns the DISC questionnaire.
func (h *VAHandler) Questions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": disc.Questions, "scale": gin.H{"min": disc.MinAnswer, "max": disc.MaxAnswer}})
}

// SubmitDISC scores answers keyed by question id and stores the result on the caller's profile.
func (h *VAHandler) SubmitDISC(c *gin.Context) {
	var req struct {
		Answers map[string]int `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	answers := make(map[int]int, len(req.Answers))
	for k, v := range req.Answers {
		id, err := strconv.Atoi(k)
		if err != nil {
			badRequest(c, "answer keys must be question ids")
			return
		}
		answers[id] = v
	}
	_, res, err := h.vas.SubmitDISC(c.Request.Context(), middleware.CurrentUser(c).ID, answers)
	if err != nil {
		fail(c, err)
		return
	}
	desc, _ := disc.Describe(res.PrimaryType)
	c.JSON(http.StatusOK, gin.H{"data": res, "description": desc})
}
