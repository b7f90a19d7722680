// Package imagestore uploads and deletes user supplied images. The hosted
// store is ImageKit; a local disk store serves development setups.
package imagestore

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"bolify/internal/config"
	"bolify/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

// Folders images are uploaded into.
const (
	UserFolder = "bolify/users"
	BlogFolder = "bolify/blogs"
)

// Object name prefixes.
const (
	ProfilePrefix = "profile"
	BlogPrefix    = "blog"
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes int64 = 5 << 20

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Upload is a stored image.
type Upload struct {
	URL string `json:"url"`
	// FileID is the store's identifier, used for deletion.
	FileID string `json:"fileId"`
}

// Store uploads and deletes images.
type Store interface {
	Upload(ctx context.Context, data []byte, name, folder string) (*Upload, error)
	Delete(ctx context.Context, fileID string) error
}

// New returns the store selected by IMAGE_STORE.
func New(cfg *config.Config) (Store, error) {
	switch cfg.ImageStore {
	case config.ImageStoreImageKit:
		return NewImageKit(cfg.ImageKitPublicKey, cfg.ImageKitPrivateKey, cfg.ImageKitURLEndpoint), nil
	case config.ImageStoreLocal:
		return NewLocal(cfg.ImageUploadDir, cfg.MediaBaseURL)
	default:
		return nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
	}
}

// ValidateImage checks the size limit and that the content, not the client
// supplied type, is an allowed image format.
func ValidateImage(data []byte, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if int64(len(data)) > maxBytes {
		return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxBytes>>20))
	}
	if len(data) == 0 || !allowedMIME[mimetype.Detect(data).String()] {
		return models.NewValidationError("Only image files are allowed (jpg, jpeg, png, webp).")
	}
	return nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName builds "<prefix>_<unix millis>_<original name>".
func ObjectName(prefix, original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "_")
	if base == "" || base == "." {
		base = "image"
	}
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), base)
}
