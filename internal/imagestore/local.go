package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"os"
	"path"
	"path/filepath"
	"strings"

	"bolify/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	MasterMaxSize = 2048
	JPEGQuality   = 82
	WebPQuality   = 70
)

// Local re-encodes uploads to a WebP master plus a JPEG fallback on disk.
// The server exposes dir under baseURL.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates a disk store rooted at dir.
func NewLocal(dir, baseURL string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("image upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the directory files are written to.
func (l *Local) Dir() string { return l.dir }

// Upload decodes, downsizes and stores the image. The file id is the object
// path relative to the store root, without extension.
func (l *Local) Upload(_ context.Context, data []byte, name, folder string) (*Upload, error) {
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)

	encodedJPG, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, err
	}
	encodedWebP, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	fileID := path.Join(folder, stem)
	base, err := l.resolve(fileID)
	if err != nil {
		return nil, err
	}

	written := []string{base + ".jpg", base + ".webp"}
	if err := writeBytesToFile(written[0], encodedJPG); err != nil {
		return nil, err
	}
	if err := writeBytesToFile(written[1], encodedWebP); err != nil {
		cleanupImageFiles(written)
		return nil, err
	}

	return &Upload{URL: l.baseURL + "/" + fileID + ".webp", FileID: fileID}, nil
}

// Delete removes both encodings of fileID. Missing files are not an error.
func (l *Local) Delete(_ context.Context, fileID string) error {
	base, err := l.resolve(fileID)
	if err != nil {
		return err
	}
	for _, p := range []string{base + ".jpg", base + ".webp"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// resolve maps a file id to an absolute path stem inside the store root.
func (l *Local) resolve(fileID string) (string, error) {
	clean := path.Clean("/" + fileID)
	if clean == "/" || strings.Contains(fileID, "..") {
		return "", fmt.Errorf("invalid file id %q", fileID)
	}
	return filepath.Join(l.dir, filepath.FromSlash(clean)), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

func cleanupImageFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
