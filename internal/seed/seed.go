package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bolify/internal/auth"
	"bolify/internal/middleware"
	"bolify/internal/models"
	"bolify/internal/repository"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// Options configures a seed run.
type Options struct {
	NumUsers int
	NumBlogs int
	// MaxDays bounds how far back generated posts are dated.
	MaxDays int
	// RandomSeed makes runs reproducible when non-zero.
	RandomSeed int64
	// Fixtures are created first. Nil uses the bundled fixtures.
	Fixtures *Fixtures
}

// Summary reports what a run created.
type Summary struct {
	Users    int
	Blogs    int
	Views    int
	Likes    int
	Comments int
}

// Seeder populates the stores with fixtures and generated demo data.
type Seeder struct {
	users repository.UserRepository
	blogs repository.BlogRepository
}

func NewSeeder(users repository.UserRepository, blogs repository.BlogRepository) *Seeder {
	return &Seeder{users: users, blogs: blogs}
}

// Run creates fixtures, then NumUsers accounts and NumBlogs posts spread
// across all accounts, then interactions. Fixture accounts that already
// exist are reused so the run can be repeated.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	fixtures := opts.Fixtures
	if fixtures == nil {
		var err error
		if fixtures, err = DefaultFixtures(); err != nil {
			return nil, err
		}
	}

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	f := NewFactory(s.users, s.blogs, hash, opts)
	summary := &Summary{}

	byEmail := make(map[string]*models.User, len(fixtures.Users))
	for _, fu := range fixtures.Users {
		user, created, err := s.ensureFixtureUser(ctx, f, fu)
		if err != nil {
			return nil, fmt.Errorf("fixture user %s: %w", fu.Email, err)
		}
		if created {
			summary.Users++
		}
		byEmail[user.Email] = user
	}

	all := make([]*models.User, 0, len(byEmail)+opts.NumUsers)
	for _, u := range byEmail {
		all = append(all, u)
	}
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(ctx)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		all = append(all, user)
		summary.Users++
	}
	middleware.Logger.InfoContext(ctx, "users created", slog.Int("count", summary.Users))

	var blogs []*models.Blog
	for _, fb := range fixtures.Blogs {
		author := byEmail[models.NormalizeEmail(fb.Author)]
		blog, err := f.CreateBlog(ctx, author, func(b *models.Blog) {
			b.Title = fb.Title
			b.Body = fb.Body
			b.Tags = append([]string{}, fb.Tags...)
			if fb.Status != "" {
				b.Status = models.BlogStatus(fb.Status)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("fixture blog %q: %w", fb.Title, err)
		}
		blogs = append(blogs, blog)
	}
	if len(all) > 0 {
		for i := 0; i < opts.NumBlogs; i++ {
			blog, err := f.CreateBlog(ctx, all[f.rng.Intn(len(all))])
			if err != nil {
				return nil, fmt.Errorf("create blog: %w", err)
			}
			blogs = append(blogs, blog)
		}
	}
	summary.Blogs = len(blogs)
	middleware.Logger.InfoContext(ctx, "blogs created", slog.Int("count", summary.Blogs))

	for _, blog := range blogs {
		views, likes, comments, err := f.Engage(ctx, blog, all)
		if err != nil {
			return nil, fmt.Errorf("engage blog %s: %w", blog.ID, err)
		}
		summary.Views += views
		summary.Likes += likes
		summary.Comments += comments
	}
	middleware.Logger.InfoContext(ctx, "engagement recorded",
		slog.Int("views", summary.Views), slog.Int("likes", summary.Likes), slog.Int("comments", summary.Comments))

	return summary, nil
}

func (s *Seeder) ensureFixtureUser(ctx context.Context, f *Factory, fu UserFixture) (*models.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, fu.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	role := models.Role(fu.Role)
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, false, fmt.Errorf("unknown role %q", fu.Role)
	}
	user, err := f.CreateUser(ctx, func(u *models.User) {
		u.FullName = fu.FullName
		u.Email = models.NormalizeEmail(fu.Email)
		u.Role = role
		if fu.MobileNumber != "" {
			u.MobileNumber = fu.MobileNumber
		}
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
