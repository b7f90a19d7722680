package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bolify/internal/auth"
	"bolify/internal/imagestore"
	"bolify/internal/middleware"
	"bolify/internal/models"
	"bolify/internal/observability"
	"bolify/internal/repository"
	"bolify/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// TokenIssuer signs credentials for authenticated users.
type TokenIssuer interface {
	Issue(user *models.User) (string, *auth.Claims, error)
}

// TokenRevoker blacklists a credential until it expires.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// UserSettings are the configured defaults the user service applies.
type UserSettings struct {
	DefaultAvatarURL string
	AllowAdminSignup bool
	MaxUploadBytes   int64
}

type UserService struct {
	users      repository.UserRepository
	images     imagestore.Store
	tokens     TokenIssuer
	identities auth.IdentityVerifier
	revoker    TokenRevoker
	settings   UserSettings
	now        func() time.Time
}

type SignupInput struct {
	FullName     string       `json:"fullName" form:"fullName" validate:"required,notblank,min=3,max=100"`
	Email        string       `json:"email" form:"email" validate:"required,email,max=255"`
	MobileNumber string       `json:"mobileNumber" form:"mobileNumber" validate:"required,mobile"`
	Password     string       `json:"password" form:"password" validate:"required,min=6,bcryptlen"`
	Role         string       `json:"role" form:"role" validate:"omitempty,oneof=user admin"`
	ProfileImage *ImageUpload `json:"-" form:"-"`
}

type SignupResult struct {
	UserID       string
	ProfileImage string
}

type LoginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Session is an issued credential and the user it belongs to.
type Session struct {
	Token  string
	Claims *auth.Claims
	User   *models.User
}

func NewUserService(
	users repository.UserRepository,
	images imagestore.Store,
	tokens TokenIssuer,
	identities auth.IdentityVerifier,
	revoker TokenRevoker,
	settings UserSettings,
) *UserService {
	return &UserService{
		users:      users,
		images:     images,
		tokens:     tokens,
		identities: identities,
		revoker:    revoker,
		settings:   settings,
		now:        time.Now,
	}
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (_ *SignupResult, err error) {
	span, ctx := observability.NewSpan(ctx, "UserService.Signup")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = models.NormalizeEmail(in.Email)
	in.MobileNumber = strings.TrimSpace(in.MobileNumber)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	if in.FullName == "" || in.Email == "" || in.MobileNumber == "" || in.Password == "" {
		return nil, models.NewValidationError("Please fill in all fields.")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	role := models.Role(in.Role)
	if role == models.RoleAdmin && !s.settings.AllowAdminSignup {
		middleware.Logger.WarnContext(ctx, "admin role requested at signup, downgraded", "email", in.Email)
		role = models.RoleUser
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, models.NewDuplicateEmailError()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	profileImage := s.settings.DefaultAvatarURL
	if in.ProfileImage != nil {
		var up *imagestore.Upload
		up, err = uploadImage(ctx, s.images, in.ProfileImage, s.settings.MaxUploadBytes,
			imagestore.ProfilePrefix, imagestore.UserFolder, s.now())
		if err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				discardUpload(ctx, s.images, up)
			}
		}()
		profileImage = up.URL
	}

	user, err := models.NewUser(models.Profile{
		FullName:     in.FullName,
		Email:        in.Email,
		MobileNumber: in.MobileNumber,
		ProfileImage: profileImage,
		Role:         role,
	}, models.LocalAccount{PasswordHash: hash})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	// The unique index closes the window between the pre-check and the insert.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewDuplicateEmailError()
		}
		return nil, err
	}

	span.AddAttributes(attribute.String("user.id", user.ID))
	return &SignupResult{UserID: user.ID, ProfileImage: profileImage}, nil
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (_ *Session, err error) {
	span, ctx := observability.NewSpan(ctx, "UserService.Login")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, models.NewValidationError("All fields are required.")
	}

	user, err := s.users.GetByEmailWithPassword(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewInvalidCredentialsError()
	}
	if err != nil {
		return nil, err
	}

	account, err := user.Account()
	if err != nil {
		return nil, models.NewInvalidCredentialsError()
	}
	local, ok := account.(models.LocalAccount)
	if !ok {
		return nil, models.NewInvalidCredentialsError()
	}
	match, err := auth.ComparePassword(local.PasswordHash, in.Password)
	if err != nil || !match {
		return nil, models.NewInvalidCredentialsError()
	}

	user.PasswordHash = ""
	return s.issue(user)
}

// GoogleLogin signs in with a Google ID token, creating the account on first
// use. An existing account with the same email is reused.
func (s *UserService) GoogleLogin(ctx context.Context, token string) (_ *Session, err error) {
	span, ctx := observability.NewSpan(ctx, "UserService.GoogleLogin")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if strings.TrimSpace(token) == "" {
		return nil, models.NewValidationError("Invalid token")
	}
	if s.identities == nil {
		return nil, models.NewFederatedAuthError(errors.New("federated login not configured"))
	}

	identity, err := s.identities.Verify(ctx, token)
	if err != nil {
		return nil, models.NewFederatedAuthError(err)
	}

	user, err := s.users.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		return s.issue(user)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	user, err = s.newGoogleUser(identity)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		// A concurrent first login created the account.
		if user, err = s.users.GetByEmail(ctx, identity.Email); err != nil {
			return nil, err
		}
	}
	return s.issue(user)
}

func (s *UserService) newGoogleUser(identity *auth.GoogleIdentity) (*models.User, error) {
	name := strings.TrimSpace(identity.Name)
	if len(name) < 3 {
		name, _, _ = strings.Cut(identity.Email, "@")
	}
	picture := identity.Picture
	if picture == "" {
		picture = s.settings.DefaultAvatarURL
	}
	user, err := models.NewUser(models.Profile{
		FullName:     name,
		Email:        identity.Email,
		ProfileImage: picture,
		Role:         models.RoleUser,
	}, models.FederatedAccount{Provider: models.ProviderGoogle, Subject: identity.Subject})
	if err != nil {
		return nil, models.NewFederatedAuthError(err)
	}
	return user, nil
}

func (s *UserService) issue(user *models.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Session{Token: token, Claims: claims, User: user}, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return user, nil
}

// Logout revokes the credential. Revocation failures are logged; the cookie is
// cleared regardless.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) {
	if claims == nil || s.revoker == nil {
		return
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke token on logout", "error", err)
	}
}

func (s *UserService) SetRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	if !models.IsValidID(userID) {
		return nil, models.NewValidationError("Invalid User ID format")
	}
	if !role.Valid() {
		return nil, models.NewValidationError("role must be one of: user, admin")
	}
	if err := s.users.SetRole(ctx, userID, role); err != nil {
		return nil, notFound(err, "User")
	}
	return s.Me(ctx, userID)
}

func (s *UserService) ListAdmins(ctx context.Context) ([]*models.User, error) {
	return s.users.ListByRole(ctx, models.RoleAdmin)
}
