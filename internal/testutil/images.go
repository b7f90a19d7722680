package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"bolify/internal/imagestore"
)

// ImageStore is an in-memory imagestore.Store that records calls.
type ImageStore struct {
	mu        sync.Mutex
	Uploads   []StoredImage
	Deleted   []string
	UploadErr error
	DeleteErr error
}

// StoredImage is one recorded upload.
type StoredImage struct {
	Name   string
	Folder string
	Size   int
}

var _ imagestore.Store = (*ImageStore)(nil)

func (s *ImageStore) Upload(_ context.Context, data []byte, name, folder string) (*imagestore.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UploadErr != nil {
		return nil, s.UploadErr
	}
	s.Uploads = append(s.Uploads, StoredImage{Name: name, Folder: folder, Size: len(data)})
	return &imagestore.Upload{
		URL:    fmt.Sprintf("https://images.test/%s/%s", folder, name),
		FileID: fmt.Sprintf("file_%d", len(s.Uploads)),
	}, nil
}

func (s *ImageStore) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.Deleted = append(s.Deleted, fileID)
	return nil
}

// TinyPNG returns a valid PNG of the given size.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
