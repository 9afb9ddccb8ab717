package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/announcements"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/businesses"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/intercept"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/invitations"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/messaging"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/notifications"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/sessions"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/settings"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/storage"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/vas"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
)

// errorStatus maps domain sentinel errors to HTTP status codes.
var errorStatus = []struct {
	err    error
	status int
}{
	{users.ErrWeakPassword, http.StatusBadRequest},
	{users.ErrInvalidEmail, http.StatusBadRequest},
	{users.ErrInvalidRole, http.StatusBadRequest},
	{users.ErrSelfChange, http.StatusBadRequest},
	{invitations.ErrEmailRequired, http.StatusBadRequest},
	{invitations.ErrPasswordLength, http.StatusBadRequest},
	{invitations.ErrInvalidToken, http.StatusBadRequest},
	{invitations.ErrNotPending, http.StatusBadRequest},
	{storage.ErrUnknownKind, http.StatusBadRequest},
	{storage.ErrUnsupportedType, http.StatusBadRequest},
	{storage.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{messaging.ErrInvalidPeer, http.StatusBadRequest},
	{intercept.ErrNotIntercepted, http.StatusBadRequest},

	{users.ErrInvalidCredentials, http.StatusUnauthorized},
	{sessions.ErrInvalidRefresh, http.StatusUnauthorized},

	{users.ErrSuspended, http.StatusForbidden},
	{users.ErrAdminExists, http.StatusForbidden},
	{vas.ErrForbidden, http.StatusForbidden},
	{businesses.ErrForbidden, http.StatusForbidden},
	{messaging.ErrForbidden, http.StatusForbidden},
	{messaging.ErrBlocked, http.StatusForbidden},
	{settings.ErrNotEditable, http.StatusForbidden},

	{users.ErrNotFound, http.StatusNotFound},
	{vas.ErrNotFound, http.StatusNotFound},
	{businesses.ErrNotFound, http.StatusNotFound},
	{messaging.ErrNotFound, http.StatusNotFound},
	{messaging.ErrUserNotFound, http.StatusNotFound},
	{notifications.ErrNotFound, http.StatusNotFound},
	{announcements.ErrNotFound, http.StatusNotFound},
	{invitations.ErrNotFound, http.StatusNotFound},

	{users.ErrDuplicateEmail, http.StatusConflict},
	{vas.ErrDuplicate, http.StatusConflict},
	{businesses.ErrDuplicate, http.StatusConflict},
	{messaging.ErrDuplicate, http.StatusConflict},
	{invitations.ErrAlreadyAdmin, http.StatusConflict},
	{invitations.ErrPendingInvite, http.StatusConflict},
}

// statusFor returns the HTTP status for err, 500 when it is not a known domain error.
func statusFor(err error) int {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// fail writes the error response for err. Unexpected errors are logged and hidden.
func fail(c *gin.Context, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "details": []*models.ValidationError{ve}})
		return
	}
	var ge *messaging.GateError
	if errors.As(err, &ge) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":           ge.Error(),
			"completion":      ge.Completion,
			"threshold":       ge.Threshold,
			"requiresProfile": true,
		})
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// queryInt parses an integer query parameter, def when absent or malformed.
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// queryBool parses an optional boolean query parameter.
func queryBool(c *gin.Context, name string) *bool {
	v, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return nil
	}
	return &v
}

func pageQuery(c *gin.Context) (int, int) {
	return queryInt(c, "page", 1), queryInt(c, "limit", 0)
}

func list(c *gin.Context, data interface{}, p models.Pagination) {
	c.JSON(http.StatusOK, gin.H{"data": data, "pagination": p})
}

func bindBytes(b []byte, v interface{}) error { return json.Unmarshal(b, v) }

// stripKeys drops keys from a JSON object and returns the rest, or nil when nothing is left.
func stripKeys(body []byte, keys ...string) []byte {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil
	}
	for _, k := range keys {
		delete(m, k)
	}
	if len(m) == 0 {
		return nil
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return out
}
