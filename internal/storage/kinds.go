package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnknownKind     = errors.New("unknown upload kind")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

const mb = 1 << 20

// Kind describes one class of profile media.
type Kind struct {
	Name       string
	Folder     string
	MaxSize    int64
	Extensions []string
}

var (
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	videoExtensions = []string{".mp4", ".avi", ".mov", ".wmv", ".flv", ".mkv", ".webm"}
)

// Kinds accepted by the upload endpoints, keyed by the ?kind= query value.
var Kinds = map[string]Kind{
	"avatar": {Name: "avatar", Folder: "avatars", MaxSize: 5 * mb, Extensions: imageExtensions},
	"cover":  {Name: "cover", Folder: "covers", MaxSize: 5 * mb, Extensions: imageExtensions},
	"video":  {Name: "video", Folder: "introductions", MaxSize: 500 * mb, Extensions: videoExtensions},
	"logo":   {Name: "logo", Folder: "business-logos", MaxSize: 5 * mb, Extensions: imageExtensions},
}

// LookupKind returns the Kind registered under name.
func LookupKind(name string) (Kind, error) {
	k, ok := Kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// Validate checks the size and extension of an upload.
func (k Kind) Validate(filename string, size int64) error {
	if size > k.MaxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, k.MaxSize)
	}
	ext := strings.ToLower(path.Ext(filename))
	for _, e := range k.Extensions {
		if e == ext {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
}

// ObjectKey builds a unique key "<folder>/<owner>/<uuid><ext>".
func (k Kind) ObjectKey(owner, filename string) string {
	return path.Join(k.Folder, owner, uuid.NewString()+strings.ToLower(path.Ext(filename)))
}
