package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"bolify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlog(authorID, title string) *models.Blog {
	return &models.Blog{
		Title:     title,
		Body:      strings.Repeat("body text ", 5),
		CreatedBy: authorID,
		Status:    models.BlogStatusPublished,
		Tags:      []string{"go"},
	}
}

func seedBlogs(t *testing.T, repo BlogRepository, authorID string, n int) []*models.Blog {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	blogs := make([]*models.Blog, n)
	for i := range blogs {
		b := newBlog(authorID, fmt.Sprintf("Blog number %d", i))
		b.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(context.Background(), b))
		blogs[i] = b
	}
	return blogs
}

func TestBlogRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewBlogRepository(setupSQLite(t))

	blog := newBlog(models.NewID(), "Hello, world")
	require.NoError(t, repo.Create(ctx, blog))
	require.True(t, models.IsValidID(blog.ID))

	got, err := repo.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", got.Title)
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.Empty(t, got.LikedBy)
	assert.Empty(t, got.Comments)
	assert.Zero(t, got.Views)

	_, err = repo.GetByID(ctx, models.NewID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlogRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewBlogRepository(setupSQLite(t))
	alice, bob := models.NewID(), models.NewID()
	seedBlogs(t, repo, alice, 5)
	seedBlogs(t, repo, bob, 2)

	t.Run("newest first with total", func(t *testing.T) {
		blogs, total, err := repo.List(ctx, BlogFilter{}, 3, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(7), total)
		require.Len(t, blogs, 3)
		for i := 1; i < len(blogs); i++ {
			assert.False(t, blogs[i].CreatedAt.After(blogs[i-1].CreatedAt))
		}
	})

	t.Run("by author", func(t *testing.T) {
		blogs, total, err := repo.List(ctx, BlogFilter{AuthorID: alice}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, blogs, 5)
		assert.Equal(t, "Blog number 4", blogs[0].Title)
	})

	t.Run("page beyond range", func(t *testing.T) {
		blogs, total, err := repo.List(ctx, BlogFilter{}, 10, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(7), total)
		assert.Empty(t, blogs)
	})

	t.Run("search", func(t *testing.T) {
		special := newBlog(bob, "Concurrency patterns")
		require.NoError(t, repo.Create(ctx, special))

		blogs, total, err := repo.List(ctx, BlogFilter{Query: "concurrency"}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, blogs, 1)
		assert.Equal(t, special.ID, blogs[0].ID)
	})
}

func TestBlogRepository_List_EqualTimestampsPageStably(t *testing.T) {
	ctx := context.Background()
	repo := NewBlogRepository(setupSQLite(t))
	author := models.NewID()

	at := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	var want []string
	for i := 0; i < 5; i++ {
		b := newBlog(author, fmt.Sprintf("Same second %d", i))
		b.CreatedAt = at
		require.NoError(t, repo.Create(ctx, b))
		want = append(want, b.ID)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(want)))

	var got []string
	for offset := 0; offset < len(want); offset += 2 {
		page, total, err := repo.List(ctx, BlogFilter{}, 2, offset)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, b := range page {
			got = append(got, b.ID)
		}
	}
	assert.Equal(t, want, got)
}

func TestBlogRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := setupSQLite(t)
	repo := NewBlogRepository(db)
	blog := seedBlogs(t, repo, models.NewID(), 1)[0]
	user := models.NewID()

	_, _, err := repo.ToggleLike(ctx, blog.ID, user)
	require.NoError(t, err)
	require.NoError(t, repo.AddComment(ctx, blog.ID, &models.Comment{UserID: user, Text: "nice"}))

	require.NoError(t, repo.Delete(ctx, blog.ID))

	_, err = repo.GetByID(ctx, blog.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var likes, comments int64
	require.NoError(t, db.Model(&models.BlogLike{}).Where("blog_id = ?", blog.ID).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Comment{}).Where("blog_id = ?", blog.ID).Count(&comments).Error)
	assert.Zero(t, likes)
	assert.Zero(t, comments)

	assert.ErrorIs(t, repo.Delete(ctx, blog.ID), ErrNotFound)
}

func TestBlogRepository_RecordView(t *testing.T) {
	ctx := context.Background()
	repo := NewBlogRepository(setupSQLite(t))
	blog := seedBlogs(t, repo, models.NewID(), 1)[0]

	got, recorded, err := repo.RecordView(ctx, blog.ID, "anon:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, recorded)
	assert.Equal(t, int64(1), got.Views)

	for i := 0; i < 3; i++ {
		got, recorded, err = repo.RecordView(ctx, blog.ID, "anon:10.0.0.1")
		require.NoError(t, err)
		assert.False(t, recorded)
		assert.Equal(t, int64(1), got.Views)
	}

	got, recorded, err = repo.RecordView(ctx, blog.ID, models.NewID())
	require.NoError(t, err)
	assert.True(t, recorded)
	assert.Equal(t, int64(2), got.Views)

	_, _, err = repo.RecordView(ctx, models.NewID(), "anon:10.0.0.1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlogRepository_ToggleLike(t *testing.T) {
	ctx := context.Background()
	repo := NewBlogRepository(setupSQLite(t))
	blog := seedBlogs(t, repo, models.NewID(), 1)[0]
	alice, bob := models.NewID(), models.NewID()

	got, liked, err := repo.ToggleLike(ctx, blog.ID, alice)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), got.Likes)
	assert.Equal(t, []string{alice}, got.LikedBy)

	got, liked, err = repo.ToggleLike(ctx, blog.ID, bob)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(2), got.Likes)

	got, liked, err = repo.ToggleLike(ctx, blog.ID, alice)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(1), got.Likes)
	assert.Equal(t, []string{bob}, got.LikedBy)

	_, _, err = repo.ToggleLike(ctx, models.NewID(), alice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlogRepository_ToggleLike_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewBlogRepository(setupSQLite(t))
	blog := seedBlogs(t, repo, models.NewID(), 1)[0]

	users := []string{models.NewID(), models.NewID(), models.NewID()}
	const togglesPerUser = 7

	var wg sync.WaitGroup
	for _, u := range users {
		for i := 0; i < togglesPerUser; i++ {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				_, _, err := repo.ToggleLike(ctx, blog.ID, userID)
				assert.NoError(t, err)
			}(u)
		}
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	// An odd number of toggles per user leaves everyone liking the blog.
	assert.Equal(t, int64(len(users)), got.Likes)
	assert.Len(t, got.LikedBy, len(users))
}

func TestBlogRepository_AddComment(t *testing.T) {
	ctx := context.Background()
	repo := NewBlogRepository(setupSQLite(t))
	blog := seedBlogs(t, repo, models.NewID(), 1)[0]
	user := models.NewID()

	first := &models.Comment{UserID: user, Text: "first", CreatedAt: time.Now().Add(-time.Second)}
	second := &models.Comment{UserID: user, Text: "second", CreatedAt: time.Now()}
	require.NoError(t, repo.AddComment(ctx, blog.ID, first))
	require.NoError(t, repo.AddComment(ctx, blog.ID, second))
	assert.True(t, models.IsValidID(first.ID))

	got, err := repo.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "first", got.Comments[0].Text)
	assert.Equal(t, "second", got.Comments[1].Text)

	err = repo.AddComment(ctx, models.NewID(), &models.Comment{UserID: user, Text: "orphan"})
	assert.ErrorIs(t, err, ErrNotFound)
}
