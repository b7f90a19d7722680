// Package service implements the application rules between the HTTP handlers
// and the repositories. Services take Input structs, validate them and map
// repository sentinels to models.AppError values.
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"bolify/internal/imagestore"
	"bolify/internal/middleware"
	"bolify/internal/models"
	"bolify/internal/repository"
)

// Pagination defaults for blog listings.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ImageUpload is an image file received with a request.
type ImageUpload struct {
	Name string
	Data []byte
}

// normalizePage applies the listing defaults. Non-positive values fall back
// to the default and limit is capped at MaxLimit.
func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

func notFound(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewNotFoundError(resource)
	}
	return err
}

// uploadImage validates img and stores it under "<prefix>_<millis>_<name>".
func uploadImage(ctx context.Context, store imagestore.Store, img *ImageUpload, maxBytes int64, prefix, folder string, now time.Time) (*imagestore.Upload, error) {
	if err := imagestore.ValidateImage(img.Data, maxBytes); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, models.NewUploadFailureError(errors.New("image store not configured"))
	}
	up, err := store.Upload(ctx, img.Data, imagestore.ObjectName(prefix, img.Name, now), folder)
	if err != nil {
		return nil, models.NewUploadFailureError(err)
	}
	return up, nil
}

// discardUpload removes an image whose owning record was never stored.
// Failures are logged only.
func discardUpload(ctx context.Context, store imagestore.Store, up *imagestore.Upload) {
	if err := store.Delete(ctx, up.FileID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete orphaned upload",
			"file_id", up.FileID, "error", err)
	}
}
