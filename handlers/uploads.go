package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/storage"
)

// Uploader stores profile media. *storage.MinIOStorage implements it.
type Uploader interface {
	Put(ctx context.Context, kind storage.Kind, owner, filename string, reader io.Reader, size int64, contentType string) (*storage.Object, error)
}

// receiveUpload validates the multipart "file" field against kindName and stores it.
// It writes the error response itself and returns nil on failure.
func receiveUpload(c *gin.Context, store Uploader, kindName, owner string) *storage.Object {
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage is not configured"})
		return nil
	}
	kind, err := storage.LookupKind(kindName)
	if err != nil {
		fail(c, err)
		return nil
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return nil
	}
	if err := kind.Validate(fh.Filename, fh.Size); err != nil {
		fail(c, err)
		return nil
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return nil
	}
	defer f.Close()
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj, err := store.Put(c.Request.Context(), kind, owner, fh.Filename, f, fh.Size, contentType)
	if err != nil {
		fail(c, err)
		return nil
	}
	return obj
}
