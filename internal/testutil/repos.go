// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bolify/internal/models"
	"bolify/internal/repository"
)

// UserRepo is an in-memory repository.UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
	// Err, when set, is returned by every call.
	Err error
	// CreateErr, when set, is returned by Create only.
	CreateErr error
}

// NewUserRepo creates an empty in-memory user repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*models.User)}
}

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if r.CreateErr != nil {
		return r.CreateErr
	}

	user.Email = models.NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
		if user.GoogleID != nil && u.GoogleID != nil && *u.GoogleID == *user.GoogleID {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = models.NewID()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *UserRepo) get(id string, withHash bool) (*models.User, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	if !withHash {
		clone.PasswordHash = ""
	}
	return &clone, nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id, false)
}

func (r *UserRepo) GetByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, err := r.get(id, false); err == nil {
			out[id] = u
		}
	}
	return out, nil
}

func (r *UserRepo) byEmail(email string, withHash bool) (*models.User, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	email = models.NormalizeEmail(email)
	for id, u := range r.users {
		if u.Email == email {
			return r.get(id, withHash)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail(email, false)
}

func (r *UserRepo) GetByEmailWithPassword(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail(email, true)
}

func (r *UserRepo) ListByRole(_ context.Context, role models.Role) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []*models.User
	for id, u := range r.users {
		if u.Role == role {
			c, _ := r.get(id, false)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepo) SetRole(_ context.Context, id string, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	return nil
}

func (r *UserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	return int64(len(r.users)), nil
}

// BlogRepo is an in-memory repository.BlogRepository. Every mutation holds
// the repository lock, so interactions on a blog are atomic.
type BlogRepo struct {
	mu    sync.Mutex
	blogs map[string]*models.Blog
	seq   time.Duration
	// Err, when set, is returned by every call.
	Err error
	// CreateErr, when set, is returned by Create only.
	CreateErr error
}

// NewBlogRepo creates an empty in-memory blog repository.
func NewBlogRepo() *BlogRepo {
	return &BlogRepo{blogs: make(map[string]*models.Blog)}
}

var _ repository.BlogRepository = (*BlogRepo)(nil)

func cloneBlog(b *models.Blog, withComments bool) *models.Blog {
	c := *b
	c.Tags = append([]string{}, b.Tags...)
	c.LikedBy = append([]string{}, b.LikedBy...)
	c.ViewedBy = nil
	c.Comments = nil
	if withComments {
		c.Comments = append([]models.Comment{}, b.Comments...)
	}
	return &c
}

func (r *BlogRepo) Create(_ context.Context, blog *models.Blog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if blog.ID == "" {
		blog.ID = models.NewID()
	}
	if blog.CreatedAt.IsZero() {
		// Strictly increasing so ordering is deterministic within a test.
		r.seq++
		blog.CreatedAt = time.Now().UTC().Add(r.seq)
	}
	blog.UpdatedAt = blog.CreatedAt
	stored := cloneBlog(blog, true)
	stored.ViewedBy = []string{}
	r.blogs[blog.ID] = stored
	return nil
}

func (r *BlogRepo) GetByID(_ context.Context, id string) (*models.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	b, ok := r.blogs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBlog(b, true), nil
}

func (r *BlogRepo) List(_ context.Context, f repository.BlogFilter, limit, offset int) ([]*models.Blog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	var matched []*models.Blog
	for _, b := range r.blogs {
		if f.AuthorID != "" && b.CreatedBy != f.AuthorID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(b.Title), q) && !strings.Contains(strings.ToLower(b.Body), q) {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	out := []*models.Blog{}
	for i := offset; i < len(matched) && i < offset+limit; i++ {
		out = append(out, cloneBlog(matched[i], false))
	}
	return out, total, nil
}

func (r *BlogRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.blogs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.blogs, id)
	return nil
}

func (r *BlogRepo) RecordView(_ context.Context, id, viewerKey string) (*models.Blog, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, false, r.Err
	}
	b, ok := r.blogs[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	for _, v := range b.ViewedBy {
		if v == viewerKey {
			return cloneBlog(b, true), false, nil
		}
	}
	b.ViewedBy = append(b.ViewedBy, viewerKey)
	b.Views = int64(len(b.ViewedBy))
	return cloneBlog(b, true), true, nil
}

func (r *BlogRepo) ToggleLike(_ context.Context, id, userID string) (*models.Blog, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, false, r.Err
	}
	b, ok := r.blogs[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}

	liked := true
	kept := b.LikedBy[:0:0]
	for _, u := range b.LikedBy {
		if u == userID {
			liked = false
			continue
		}
		kept = append(kept, u)
	}
	if liked {
		kept = append(kept, userID)
	}
	b.LikedBy = kept
	b.Likes = int64(len(kept))
	return cloneBlog(b, true), liked, nil
}

func (r *BlogRepo) AddComment(_ context.Context, id string, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	b, ok := r.blogs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	comment.BlogID = id
	b.Comments = append(b.Comments, *comment)
	return nil
}

// ViewerCount returns the size of a blog's viewer set.
func (r *BlogRepo) ViewerCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.blogs[id]; ok {
		return len(b.ViewedBy)
	}
	return 0
}
