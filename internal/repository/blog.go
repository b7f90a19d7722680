package repository

import (
	"context"
	"errors"
	"strings"

	"bolify/internal/models"
	"bolify/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlogFilter narrows a blog listing.
type BlogFilter struct {
	// AuthorID restricts the listing to one author's posts.
	AuthorID string
	// Query matches title or body text.
	Query string
}

// BlogRepository defines persistence operations for blogs and their
// interactions. Each interaction mutation is atomic on a single blog.
type BlogRepository interface {
	Create(ctx context.Context, blog *models.Blog) error
	// GetByID returns the blog with its comments and liker set.
	GetByID(ctx context.Context, id string) (*models.Blog, error)
	// List returns one page ordered by creation time, newest first, and the
	// total number of matching blogs. Comments are not loaded.
	List(ctx context.Context, filter BlogFilter, limit, offset int) ([]*models.Blog, int64, error)
	Delete(ctx context.Context, id string) error
	// RecordView adds viewerKey to the viewer set. recorded is false when the
	// viewer had already been counted.
	RecordView(ctx context.Context, id, viewerKey string) (blog *models.Blog, recorded bool, err error)
	// ToggleLike flips userID's membership in the liker set and keeps the
	// like count equal to the set size.
	ToggleLike(ctx context.Context, id, userID string) (blog *models.Blog, liked bool, err error)
	// AddComment appends comment to the blog.
	AddComment(ctx context.Context, id string, comment *models.Comment) error
}

type blogRepository struct {
	db *gorm.DB
}

// NewBlogRepository returns a GORM-backed BlogRepository.
func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db}
}

func (r *blogRepository) span(ctx context.Context, method string) (context.Context, func(error)) {
	return observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), method, "blogs")
}

func (r *blogRepository) Create(ctx context.Context, blog *models.Blog) (err error) {
	ctx, finish := r.span(ctx, "Create")
	defer func() { finish(err) }()

	return translateGormError(r.db.WithContext(ctx).Omit(clause.Associations).Create(blog).Error)
}

func (r *blogRepository) GetByID(ctx context.Context, id string) (_ *models.Blog, err error) {
	ctx, finish := r.span(ctx, "GetByID")
	defer func() { finish(err) }()

	return loadBlog(r.db.WithContext(ctx), id)
}

// loadBlog reads a blog with comments in insertion order and its liker set.
func loadBlog(tx *gorm.DB, id string) (*models.Blog, error) {
	var blog models.Blog
	err := tx.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).First(&blog, "id = ?", id).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	if err := attachLikers(tx, []*models.Blog{&blog}); err != nil {
		return nil, err
	}
	return &blog, nil
}

func attachLikers(tx *gorm.DB, blogs []*models.Blog) error {
	if len(blogs) == 0 {
		return nil
	}
	ids := make([]string, len(blogs))
	byID := make(map[string]*models.Blog, len(blogs))
	for i, b := range blogs {
		ids[i] = b.ID
		b.LikedBy = []string{}
		byID[b.ID] = b
	}

	var likes []models.BlogLike
	if err := tx.Where("blog_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
		return err
	}
	for _, l := range likes {
		if b := byID[l.BlogID]; b != nil {
			b.LikedBy = append(b.LikedBy, l.UserID)
		}
	}
	return nil
}

func applyBlogFilter(db *gorm.DB, f BlogFilter) *gorm.DB {
	if f.AuthorID != "" {
		db = db.Where("created_by = ?", f.AuthorID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(body) LIKE ?", pattern, pattern)
	}
	return db
}

func (r *blogRepository) List(ctx context.Context, f BlogFilter, limit, offset int) (_ []*models.Blog, _ int64, err error) {
	ctx, finish := r.span(ctx, "List")
	defer func() { finish(err) }()

	db := r.db.WithContext(ctx)

	var total int64
	if err := applyBlogFilter(db.Model(&models.Blog{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	blogs := []*models.Blog{}
	if int64(offset) >= total {
		return blogs, total, nil
	}
	if err := applyBlogFilter(db, f).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&blogs).Error; err != nil {
		return nil, 0, err
	}
	if err := attachLikers(db, blogs); err != nil {
		return nil, 0, err
	}
	return blogs, total, nil
}

func (r *blogRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, finish := r.span(ctx, "Delete")
	defer func() { finish(err) }()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Blog{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		for _, child := range []interface{}{&models.Comment{}, &models.BlogLike{}, &models.BlogView{}} {
			if err := tx.Where("blog_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// lockBlog checks the blog exists and, on Postgres, holds its row lock until
// the transaction ends so concurrent interactions on one blog serialize.
func lockBlog(tx *gorm.DB, id string) error {
	q := tx.Select("id")
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var blog models.Blog
	return translateGormError(q.First(&blog, "id = ?", id).Error)
}

func (r *blogRepository) RecordView(ctx context.Context, id, viewerKey string) (blog *models.Blog, recorded bool, err error) {
	ctx, finish := r.span(ctx, "RecordView")
	defer func() { finish(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBlog(tx, id); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.BlogView{BlogID: id, ViewerKey: viewerKey})
		if res.Error != nil {
			return res.Error
		}
		recorded = res.RowsAffected == 1
		if recorded {
			if err := syncCounter(tx, id, "view_count", "blog_views"); err != nil {
				return err
			}
		}
		blog, err = loadBlog(tx, id)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return blog, recorded, nil
}

func (r *blogRepository) ToggleLike(ctx context.Context, id, userID string) (blog *models.Blog, liked bool, err error) {
	ctx, finish := r.span(ctx, "ToggleLike")
	defer func() { finish(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBlog(tx, id); err != nil {
			return err
		}
		res := tx.Where("blog_id = ? AND user_id = ?", id, userID).Delete(&models.BlogLike{})
		if res.Error != nil {
			return res.Error
		}
		liked = res.RowsAffected == 0
		if liked {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.BlogLike{BlogID: id, UserID: userID}).Error; err != nil {
				return err
			}
		}
		if err := syncCounter(tx, id, "like_count", "blog_likes"); err != nil {
			return err
		}
		blog, err = loadBlog(tx, id)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return blog, liked, nil
}

// syncCounter sets a blog counter column to the size of its membership table,
// so the counter can neither drift from the set nor go negative.
func syncCounter(tx *gorm.DB, id, column, table string) error {
	return tx.Model(&models.Blog{}).
		Where("id = ?", id).
		UpdateColumn(column, tx.Table(table).Select("COUNT(*)").Where("blog_id = ?", id)).Error
}

func (r *blogRepository) AddComment(ctx context.Context, id string, comment *models.Comment) (err error) {
	ctx, finish := r.span(ctx, "AddComment")
	defer func() { finish(err) }()

	if comment == nil {
		return errors.New("nil comment")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBlog(tx, id); err != nil {
			return err
		}
		comment.BlogID = id
		return tx.Create(comment).Error
	})
}
