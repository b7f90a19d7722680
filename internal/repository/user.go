// Package repository implements the data access layer for the application.
// Every repository has a GORM implementation for the relational drivers and
// a MongoDB implementation for the document store; both honor the same
// contract and return ErrNotFound / ErrDuplicate.
package repository

import (
	"context"

	"bolify/internal/models"
	"bolify/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDs returns the users that exist, keyed by id.
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByEmailWithPassword also loads the password hash.
	GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
	SetRole(ctx context.Context, id string, role models.Role) error
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a GORM-backed UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) span(ctx context.Context, method string) (context.Context, func(error)) {
	return observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), method, "users")
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, finish := r.span(ctx, "Create")
	defer func() { finish(err) }()

	user.Email = models.NormalizeEmail(user.Email)
	return translateGormError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (_ *models.User, err error) {
	ctx, finish := r.span(ctx, "GetByID")
	defer func() { finish(err) }()

	var user models.User
	if err := r.db.WithContext(ctx).Omit("password_hash").First(&user, "id = ?", id).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) (_ map[string]*models.User, err error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, finish := r.span(ctx, "GetByIDs")
	defer func() { finish(err) }()

	var users []*models.User
	if err := r.db.WithContext(ctx).Omit("password_hash").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (_ *models.User, err error) {
	ctx, finish := r.span(ctx, "GetByEmail")
	defer func() { finish(err) }()

	var user models.User
	if err := r.db.WithContext(ctx).Omit("password_hash").
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmailWithPassword(ctx context.Context, email string) (_ *models.User, err error) {
	ctx, finish := r.span(ctx, "GetByEmailWithPassword")
	defer func() { finish(err) }()

	var user models.User
	if err := r.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &user, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role) (_ []*models.User, err error) {
	ctx, finish := r.span(ctx, "ListByRole")
	defer func() { finish(err) }()

	var users []*models.User
	err = r.db.WithContext(ctx).Omit("password_hash").
		Where("role = ?", role).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) SetRole(ctx context.Context, id string, role models.Role) (err error) {
	ctx, finish := r.span(ctx, "SetRole")
	defer func() { finish(err) }()

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (n int64, err error) {
	ctx, finish := r.span(ctx, "Count")
	defer func() { finish(err) }()

	err = r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}
