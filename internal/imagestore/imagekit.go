package imagestore

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"bolify/internal/observability"

	"github.com/gabriel-vasile/mimetype"
	"github.com/imagekit-developer/imagekit-go"
	"github.com/imagekit-developer/imagekit-go/api"
	"github.com/imagekit-developer/imagekit-go/api/uploader"
)

type imageKitUploader interface {
	Upload(ctx context.Context, file interface{}, param uploader.UploadParam) (*uploader.UploadResponse, error)
}

type imageKitMedia interface {
	DeleteFile(ctx context.Context, fileID string) (*api.Response, error)
}

// ImageKit stores images through the ImageKit upload and media APIs.
type ImageKit struct {
	urlEndpoint string
	uploader    imageKitUploader
	media       imageKitMedia
}

// NewImageKit creates an ImageKit store from account keys.
func NewImageKit(publicKey, privateKey, urlEndpoint string) *ImageKit {
	ik := imagekit.NewFromParams(imagekit.NewParams{
		PublicKey:   publicKey,
		PrivateKey:  privateKey,
		UrlEndpoint: urlEndpoint,
	})
	return &ImageKit{
		urlEndpoint: strings.TrimRight(urlEndpoint, "/"),
		uploader:    ik.Uploader,
		media:       ik.Media,
	}
}

// Upload stores data as name inside folder.
func (k *ImageKit) Upload(ctx context.Context, data []byte, name, folder string) (_ *Upload, err error) {
	span, ctx := observability.NewSpan(ctx, "imagekit.Upload")
	defer func() {
		span.SetError(err)
		span.End()
		if err != nil {
			observability.ImageStoreFailures.WithLabelValues("upload").Inc()
		}
	}()

	unique := false
	resp, err := k.uploader.Upload(ctx, dataURI(data), uploader.UploadParam{
		FileName:          name,
		Folder:            folder,
		UseUniqueFileName: &unique,
	})
	if err != nil {
		return nil, fmt.Errorf("imagekit upload: %w", err)
	}

	out := &Upload{URL: resp.Data.Url, FileID: resp.Data.FileId}
	if out.URL == "" && k.urlEndpoint != "" {
		out.URL = k.urlEndpoint + resp.Data.FilePath
	}
	if out.FileID == "" {
		return nil, fmt.Errorf("imagekit upload: no file id for %s", name)
	}
	return out, nil
}

// Delete removes the file with the given id.
func (k *ImageKit) Delete(ctx context.Context, fileID string) (err error) {
	span, ctx := observability.NewSpan(ctx, "imagekit.Delete")
	defer func() {
		span.SetError(err)
		span.End()
		if err != nil {
			observability.ImageStoreFailures.WithLabelValues("delete").Inc()
		}
	}()

	if _, err := k.media.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("imagekit delete: %w", err)
	}
	return nil
}

// dataURI encodes the upload the way the SDK accepts inline file content.
func dataURI(data []byte) string {
	return "data:" + mimetype.Detect(data).String() + ";base64," + base64.StdEncoding.EncodeToString(data)
}
