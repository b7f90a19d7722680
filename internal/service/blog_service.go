package service

import (
	"context"
	"strings"
	"time"

	"bolify/internal/imagestore"
	"bolify/internal/middleware"
	"bolify/internal/models"
	"bolify/internal/observability"
	"bolify/internal/repository"
	"bolify/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// BlogSettings are the configured defaults the blog service applies.
type BlogSettings struct {
	DefaultCoverURL string
	MaxUploadBytes  int64
}

type BlogService struct {
	blogs    repository.BlogRepository
	users    repository.UserRepository
	images   imagestore.Store
	settings BlogSettings
	now      func() time.Time
}

type CreateBlogInput struct {
	AuthorID   string       `json:"createdBy" form:"-" validate:"required,objectid"`
	Title      string       `json:"title" form:"title" validate:"required,notblank,min=5,max=120"`
	Body       string       `json:"body" form:"body" validate:"required,min=40"`
	Status     string       `json:"status" form:"status" validate:"omitempty,oneof=draft published"`
	Tags       []string     `json:"tags" form:"tags" validate:"omitempty,dive,notblank"`
	CoverImage *ImageUpload `json:"-" form:"-"`
}

type ListBlogsInput struct {
	Page     int
	Limit    int
	AuthorID string
	Query    string
}

type DeleteBlogInput struct {
	BlogID   string
	CallerID string
}

func NewBlogService(
	blogs repository.BlogRepository,
	users repository.UserRepository,
	images imagestore.Store,
	settings BlogSettings,
) *BlogService {
	return &BlogService{
		blogs:    blogs,
		users:    users,
		images:   images,
		settings: settings,
		now:      time.Now,
	}
}

// ValidateBlogID rejects ids that are not 24-character hex object ids.
func ValidateBlogID(id string) error {
	if !models.IsValidID(id) {
		return models.NewValidationError("Invalid Blog ID format")
	}
	return nil
}

func (s *BlogService) Create(ctx context.Context, in CreateBlogInput) (_ *models.Blog, err error) {
	span, ctx := observability.NewSpan(ctx, "BlogService.Create")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || strings.TrimSpace(in.Body) == "" {
		return nil, models.NewValidationError("Title and body are required.")
	}
	if in.AuthorID == "" {
		return nil, models.NewUnauthenticatedError()
	}
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	for i, tag := range in.Tags {
		in.Tags[i] = strings.TrimSpace(tag)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	blog := &models.Blog{
		Title:      in.Title,
		Body:       in.Body,
		CreatedBy:  in.AuthorID,
		CoverImage: s.settings.DefaultCoverURL,
		Status:     models.BlogStatusPublished,
		Tags:       in.Tags,
	}
	if in.Status != "" {
		blog.Status = models.BlogStatus(in.Status)
	}
	if blog.Tags == nil {
		blog.Tags = []string{}
	}

	if in.CoverImage != nil {
		var up *imagestore.Upload
		up, err = uploadImage(ctx, s.images, in.CoverImage, s.settings.MaxUploadBytes,
			imagestore.BlogPrefix, imagestore.BlogFolder, s.now())
		if err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				discardUpload(ctx, s.images, up)
			}
		}()
		blog.CoverImage = up.URL
		blog.CoverImageFileID = up.FileID
	}

	if err := s.blogs.Create(ctx, blog); err != nil {
		return nil, err
	}
	blog.LikedBy = []string{}
	blog.Comments = []models.Comment{}

	span.AddAttributes(attribute.String("blog.id", blog.ID))
	return blog, nil
}

// Get returns the blog with its author expanded, including the author's email.
func (s *BlogService) Get(ctx context.Context, id string) (*models.Blog, error) {
	if err := ValidateBlogID(id); err != nil {
		return nil, err
	}
	blog, err := s.blogs.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Blog")
	}
	if author, err := s.users.GetByID(ctx, blog.CreatedBy); err == nil {
		blog.Author = author.AuthorView(true)
	}
	return blog, nil
}

func (s *BlogService) List(ctx context.Context, in ListBlogsInput) (_ *models.BlogPage, err error) {
	span, ctx := observability.NewSpan(ctx, "BlogService.List")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	page, limit := normalizePage(in.Page, in.Limit)
	filter := repository.BlogFilter{AuthorID: in.AuthorID, Query: in.Query}

	blogs, total, err := s.blogs.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if err := s.attachAuthors(ctx, blogs); err != nil {
		return nil, err
	}

	return &models.BlogPage{
		Blogs:      blogs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ListByAuthor lists the caller's own blogs.
func (s *BlogService) ListByAuthor(ctx context.Context, authorID string, page, limit int) (*models.BlogPage, error) {
	if authorID == "" {
		return nil, models.NewUnauthenticatedError()
	}
	return s.List(ctx, ListBlogsInput{Page: page, Limit: limit, AuthorID: authorID})
}

func (s *BlogService) Search(ctx context.Context, query string, page, limit int) (*models.BlogPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.List(ctx, ListBlogsInput{Page: page, Limit: limit, Query: query})
}

func (s *BlogService) attachAuthors(ctx context.Context, blogs []*models.Blog) error {
	if len(blogs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(blogs))
	ids := make([]string, 0, len(blogs))
	for _, b := range blogs {
		if !seen[b.CreatedBy] {
			seen[b.CreatedBy] = true
			ids = append(ids, b.CreatedBy)
		}
	}
	authors, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, b := range blogs {
		if u := authors[b.CreatedBy]; u != nil {
			b.Author = u.AuthorView(false)
		}
	}
	return nil
}

// Delete removes a blog owned by the caller. A failure to delete the cover
// image is logged and does not fail the request.
func (s *BlogService) Delete(ctx context.Context, in DeleteBlogInput) (err error) {
	span, ctx := observability.NewSpan(ctx, "BlogService.Delete", attribute.String("blog.id", in.BlogID))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if err := ValidateBlogID(in.BlogID); err != nil {
		return err
	}
	blog, err := s.blogs.GetByID(ctx, in.BlogID)
	if err != nil {
		return notFound(err, "Blog")
	}
	if in.CallerID == "" || blog.CreatedBy != in.CallerID {
		return models.NewForbiddenError("Unauthorized: You cannot delete this blog")
	}

	if err := s.blogs.Delete(ctx, in.BlogID); err != nil {
		return notFound(err, "Blog")
	}

	if blog.CoverImageFileID != "" && s.images != nil {
		if err := s.images.Delete(ctx, blog.CoverImageFileID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete blog cover image",
				"blog_id", blog.ID, "file_id", blog.CoverImageFileID, "error", err)
		}
	}
	return nil
}
