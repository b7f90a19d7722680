package imagestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bolify/internal/config"
	"bolify/internal/models"

	"github.com/imagekit-developer/imagekit-go/api"
	"github.com/imagekit-developer/imagekit-go/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, G: 40, B: 90, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateImage(t *testing.T) {
	valid := pngBytes(t, 4, 4)

	assert.NoError(t, ValidateImage(valid, DefaultMaxBytes))

	err := ValidateImage([]byte("%PDF-1.4 not an image"), DefaultMaxBytes)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Only image files are allowed (jpg, jpeg, png, webp).", appErr.Message)

	err = ValidateImage(make([]byte, DefaultMaxBytes+1), DefaultMaxBytes)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "File too large (max 5MB)", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus())
}

func TestObjectName(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "profile_1700000000123_me.png", ObjectName(ProfilePrefix, "me.png", at))
	assert.Equal(t, "blog_1700000000123_cover_photo.jpg", ObjectName(BlogPrefix, "../../cover photo.jpg", at))
	assert.Equal(t, "blog_1700000000123_image", ObjectName(BlogPrefix, "", at))
}

func TestNew_SelectsStore(t *testing.T) {
	s, err := New(&config.Config{ImageStore: config.ImageStoreImageKit, ImageKitPrivateKey: "private_x", ImageKitURLEndpoint: "https://ik.imagekit.io/demo"})
	require.NoError(t, err)
	assert.IsType(t, &ImageKit{}, s)

	s, err = New(&config.Config{ImageStore: config.ImageStoreLocal, ImageUploadDir: t.TempDir(), MediaBaseURL: "/media"})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, s)

	_, err = New(&config.Config{ImageStore: "s3"})
	assert.Error(t, err)
}

type fakeUploader struct {
	file  interface{}
	param uploader.UploadParam
	resp  *uploader.UploadResponse
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, file interface{}, param uploader.UploadParam) (*uploader.UploadResponse, error) {
	f.file, f.param = file, param
	return f.resp, f.err
}

type fakeMedia struct {
	deleted []string
	err     error
}

func (f *fakeMedia) DeleteFile(_ context.Context, fileID string) (*api.Response, error) {
	f.deleted = append(f.deleted, fileID)
	return &api.Response{}, f.err
}

func newFakeImageKit(up *fakeUploader, media *fakeMedia) *ImageKit {
	ik := NewImageKit("public_key", "private_key", "https://ik.imagekit.io/demo/")
	ik.uploader = up
	ik.media = media
	return ik
}

func TestImageKit_Upload(t *testing.T) {
	up := &fakeUploader{resp: &uploader.UploadResponse{Data: uploader.UploadResult{
		FileId:   "file_123",
		Url:      "https://ik.imagekit.io/demo/bolify/users/profile_1_me.png",
		FilePath: "/bolify/users/profile_1_me.png",
	}}}
	ik := newFakeImageKit(up, &fakeMedia{})

	data := pngBytes(t, 2, 2)
	got, err := ik.Upload(context.Background(), data, "profile_1_me.png", UserFolder)
	require.NoError(t, err)
	assert.Equal(t, "file_123", got.FileID)
	assert.Equal(t, "https://ik.imagekit.io/demo/bolify/users/profile_1_me.png", got.URL)

	assert.Equal(t, "profile_1_me.png", up.param.FileName)
	assert.Equal(t, UserFolder, up.param.Folder)
	require.NotNil(t, up.param.UseUniqueFileName)
	assert.False(t, *up.param.UseUniqueFileName)

	uri, ok := up.file.(string)
	require.True(t, ok)
	payload, found := strings.CutPrefix(uri, "data:image/png;base64,")
	require.True(t, found, uri)
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestImageKit_UploadFallsBackToFilePath(t *testing.T) {
	up := &fakeUploader{resp: &uploader.UploadResponse{Data: uploader.UploadResult{
		FileId:   "file_9",
		FilePath: "/bolify/blogs/blog_1_a.png",
	}}}
	ik := newFakeImageKit(up, &fakeMedia{})

	got, err := ik.Upload(context.Background(), pngBytes(t, 2, 2), "blog_1_a.png", BlogFolder)
	require.NoError(t, err)
	assert.Equal(t, "https://ik.imagekit.io/demo/bolify/blogs/blog_1_a.png", got.URL)
}

func TestImageKit_Errors(t *testing.T) {
	boom := errors.New("account cannot be authenticated")
	ik := newFakeImageKit(&fakeUploader{err: boom}, &fakeMedia{err: boom})

	_, err := ik.Upload(context.Background(), []byte("x"), "a.png", BlogFolder)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	err = ik.Delete(context.Background(), "file_1")
	assert.ErrorIs(t, err, boom)

	ik = newFakeImageKit(&fakeUploader{resp: &uploader.UploadResponse{}}, &fakeMedia{})
	_, err = ik.Upload(context.Background(), []byte("x"), "a.png", BlogFolder)
	assert.Error(t, err)
}

func TestImageKit_Delete(t *testing.T) {
	media := &fakeMedia{}
	ik := newFakeImageKit(&fakeUploader{}, media)

	require.NoError(t, ik.Delete(context.Background(), "file_123"))
	assert.Equal(t, []string{"file_123"}, media.deleted)
}

func TestLocal_UploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "/media/")
	require.NoError(t, err)

	up, err := store.Upload(context.Background(), pngBytes(t, 3000, 1500), "blog_1_cover.png", BlogFolder)
	require.NoError(t, err)
	assert.Equal(t, "bolify/blogs/blog_1_cover", up.FileID)
	assert.Equal(t, "/media/bolify/blogs/blog_1_cover.webp", up.URL)

	jpgPath := filepath.Join(dir, "bolify", "blogs", "blog_1_cover.jpg")
	f, err := os.Open(jpgPath)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(f)
	_ = f.Close()
	require.NoError(t, err)
	assert.Equal(t, MasterMaxSize, cfg.Width)
	assert.Equal(t, MasterMaxSize/2, cfg.Height)

	require.NoError(t, store.Delete(context.Background(), up.FileID))
	_, err = os.Stat(jpgPath)
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(context.Background(), up.FileID))
}

func TestLocal_RejectsTraversal(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	assert.Error(t, store.Delete(context.Background(), "../../etc/passwd"))
	_, err = store.Upload(context.Background(), []byte("not an image"), "x.png", BlogFolder)
	assert.Error(t, err)
}
