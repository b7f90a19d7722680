// Package seed provides helpers to create demo data for the application
// stores. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"bolify/internal/models"
	"bolify/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	users        repository.UserRepository
	blogs        repository.BlogRepository
	opts         Options
	passwordHash string
	rng          *rand.Rand
	faker        *gofakeit.Faker
}

// NewFactory creates a Factory. Every generated account shares passwordHash.
func NewFactory(users repository.UserRepository, blogs repository.BlogRepository, passwordHash string, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		users:        users,
		blogs:        blogs,
		opts:         opts,
		passwordHash: passwordHash,
		// #nosec G404: acceptable for seeding
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(seed),
	}
}

// BuildUser constructs a local account without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	name := f.faker.Name()
	user, err := models.NewUser(models.Profile{
		FullName:     name,
		Email:        fmt.Sprintf("%s.%d@%s", strings.ToLower(f.faker.Username()), f.faker.Number(100, 9999), "example.com"),
		MobileNumber: f.faker.Numerify("##########"),
		ProfileImage: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}, models.LocalAccount{PasswordHash: f.passwordHash})
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildBlog constructs a published post by author with a creation time spread
// over the last MaxDays days.
func (f *Factory) BuildBlog(author *models.User, overrides ...func(*models.Blog)) *models.Blog {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	age := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute

	tags := make([]string, 1+f.rng.Intn(3))
	for i := range tags {
		tags[i] = strings.ToLower(f.faker.HackerNoun())
	}

	blog := &models.Blog{
		Title:      strings.TrimSuffix(f.faker.Sentence(5), "."),
		Body:       f.faker.Paragraph(2, 4, 12, "\n\n"),
		CreatedBy:  author.ID,
		CoverImage: fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", f.faker.UUID()),
		Status:     models.BlogStatusPublished,
		Tags:       tags,
		CreatedAt:  time.Now().UTC().Add(-age),
	}
	for _, override := range overrides {
		override(blog)
	}
	return blog
}

// CreateBlog builds and persists a blog.
func (f *Factory) CreateBlog(ctx context.Context, author *models.User, overrides ...func(*models.Blog)) (*models.Blog, error) {
	blog := f.BuildBlog(author, overrides...)
	if err := f.blogs.Create(ctx, blog); err != nil {
		return nil, err
	}
	return blog, nil
}

// Engage has a random subset of readers view, like and comment on blog
// through the same atomic operations the API uses.
func (f *Factory) Engage(ctx context.Context, blog *models.Blog, readers []*models.User) (views, likes, comments int, err error) {
	for _, reader := range readers {
		if reader.ID == blog.CreatedBy || f.rng.Float64() > 0.6 {
			continue
		}
		if _, recorded, err := f.blogs.RecordView(ctx, blog.ID, reader.ID); err != nil {
			return views, likes, comments, err
		} else if recorded {
			views++
		}
		if f.rng.Float64() < 0.4 {
			if _, _, err := f.blogs.ToggleLike(ctx, blog.ID, reader.ID); err != nil {
				return views, likes, comments, err
			}
			likes++
		}
		if f.rng.Float64() < 0.2 {
			comment := &models.Comment{UserID: reader.ID, Text: f.faker.Sentence(10)}
			if err := f.blogs.AddComment(ctx, blog.ID, comment); err != nil {
				return views, likes, comments, err
			}
			comments++
		}
	}
	return views, likes, comments, nil
}
