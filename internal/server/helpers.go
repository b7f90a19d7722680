package server

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"bolify/internal/middleware"
	"bolify/internal/models"
	"bolify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// respondWithError renders err in the error envelope and logs server faults.
func respondWithError(c *fiber.Ctx, err error) error {
	appErr := models.AsAppError(err)
	if appErr.HTTPStatus() >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"code", appErr.Code,
			"error", err,
		)
	}
	return models.RespondWithError(c, appErr)
}

// parsePage extracts page and limit query parameters. Out-of-range values are
// normalized by the service.
func parsePage(c *fiber.Ctx) (page, limit int) {
	return c.QueryInt("page", service.DefaultPage), c.QueryInt("limit", service.DefaultLimit)
}

// isMultipart reports whether the request body is a multipart form.
func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// readUpload returns the file sent in field, or nil when none was sent.
func (s *Server) readUpload(c *fiber.Ctx, field string) (*service.ImageUpload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if err != nil || fh == nil {
		// Missing file part.
		return nil, nil
	}
	if fh.Size > s.config.MaxUploadBytes() {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.config.MaxUploadBytes()>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, models.NewUploadFailureError(err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, models.NewUploadFailureError(err)
	}
	return &service.ImageUpload{Name: fh.Filename, Data: buf.Bytes()}, nil
}

// splitTags accepts tags as repeated form values or a comma separated list.
func splitTags(values []string) []string {
	tags := []string{}
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// formValues returns all values for key in a multipart or urlencoded body.
func formValues(c *fiber.Ctx, key string) []string {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		return form.Value[key]
	}
	var out []string
	for _, v := range c.Request().PostArgs().PeekMulti(key) {
		out = append(out, string(v))
	}
	return out
}

// parseBody decodes the request body into out. An empty body leaves out
// untouched so field checks report what is missing.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}
