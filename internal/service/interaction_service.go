package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"bolify/internal/models"
	"bolify/internal/observability"
	"bolify/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MaxCommentLength is the longest accepted comment, in characters.
const MaxCommentLength = 1000

// InteractionService records views, likes and comments. Each operation is a
// single atomic repository call on one blog.
type InteractionService struct {
	blogs repository.BlogRepository
	users repository.UserRepository
}

type AddCommentInput struct {
	BlogID string
	UserID string
	Text   string
}

func NewInteractionService(blogs repository.BlogRepository, users repository.UserRepository) *InteractionService {
	return &InteractionService{blogs: blogs, users: users}
}

// ViewerKey identifies a viewer: the user id when authenticated, otherwise
// the client address.
func ViewerKey(userID, clientIP string) string {
	if userID != "" {
		return userID
	}
	return "anon:" + clientIP
}

// RecordView counts viewerKey once per blog. recorded is false on repeat views.
func (s *InteractionService) RecordView(ctx context.Context, blogID, viewerKey string) (blog *models.Blog, recorded bool, err error) {
	span, ctx := observability.NewSpan(ctx, "InteractionService.RecordView", attribute.String("blog.id", blogID))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if err := ValidateBlogID(blogID); err != nil {
		return nil, false, err
	}
	blog, recorded, err = s.blogs.RecordView(ctx, blogID, viewerKey)
	if err != nil {
		return nil, false, notFound(err, "Blog")
	}

	outcome := "duplicate"
	if recorded {
		outcome = "recorded"
	}
	observability.ViewsRecorded.WithLabelValues(outcome).Inc()
	return blog, recorded, nil
}

// ToggleLike adds or removes userID from the blog's likers.
func (s *InteractionService) ToggleLike(ctx context.Context, blogID, userID string) (blog *models.Blog, liked bool, err error) {
	span, ctx := observability.NewSpan(ctx, "InteractionService.ToggleLike", attribute.String("blog.id", blogID))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if userID == "" {
		return nil, false, models.NewUnauthenticatedError()
	}
	if err := ValidateBlogID(blogID); err != nil {
		return nil, false, err
	}
	blog, liked, err = s.blogs.ToggleLike(ctx, blogID, userID)
	if err != nil {
		return nil, false, notFound(err, "Blog")
	}

	state := "unliked"
	if liked {
		state = "liked"
	}
	observability.LikesToggled.WithLabelValues(state).Inc()
	return blog, liked, nil
}

// AddComment appends a comment and returns it with its author expanded.
func (s *InteractionService) AddComment(ctx context.Context, in AddCommentInput) (_ *models.Comment, err error) {
	span, ctx := observability.NewSpan(ctx, "InteractionService.AddComment", attribute.String("blog.id", in.BlogID))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if in.UserID == "" {
		return nil, models.NewUnauthenticatedError()
	}
	if err := ValidateBlogID(in.BlogID); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, models.NewValidationError("Comment cannot exceed 1000 characters")
	}

	comment := &models.Comment{UserID: in.UserID, Text: text}
	if err := s.blogs.AddComment(ctx, in.BlogID, comment); err != nil {
		return nil, notFound(err, "Blog")
	}
	observability.CommentsAdded.Inc()

	if author, err := s.users.GetByID(ctx, in.UserID); err == nil {
		comment.Author = author.AuthorView(false)
	}
	return comment, nil
}
