package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"bolify/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

const testSecret = "test-secret-at-least-32-characters-long"

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	user := &models.User{ID: models.NewID(), Role: models.RoleAdmin}

	token, issued, err := svc.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.Issue(&models.User{ID: models.NewID(), Role: models.RoleUser})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(token)
	assertAppErrorCode(t, err, models.CodeSessionExpired)
}

func TestTokenService_WrongSecret(t *testing.T) {
	token, _, err := NewTokenService("another-secret-that-is-long-enough!!", time.Hour).
		Issue(&models.User{ID: models.NewID(), Role: models.RoleUser})
	require.NoError(t, err)

	_, err = NewTokenService(testSecret, time.Hour).Verify(token)
	assertAppErrorCode(t, err, models.CodeInvalidCredential)
}

func TestTokenService_Malformed(t *testing.T) {
	_, err := NewTokenService(testSecret, time.Hour).Verify("not.a.token")
	assertAppErrorCode(t, err, models.CodeInvalidCredential)
}

func TestTokenService_RejectsMissingSubject(t *testing.T) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "user",
		"iss":  tokenIssuer,
		"aud":  tokenAudience,
		"exp":  now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenService(testSecret, time.Hour).Verify(signed)
	assertAppErrorCode(t, err, models.CodeInvalidCredential)
}

func TestTokenService_RejectsForeignAudience(t *testing.T) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  models.NewID(),
		"role": "user",
		"iss":  tokenIssuer,
		"aud":  "someone-else",
		"exp":  now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenService(testSecret, time.Hour).Verify(signed)
	assertAppErrorCode(t, err, models.CodeInvalidCredential)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	ok, err := ComparePassword(hash, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ComparePassword("garbage", "secret1")
	assert.Error(t, err)
}

func TestGoogleVerifier(t *testing.T) {
	payload := &idtoken.Payload{
		Issuer:  "https://accounts.google.com",
		Subject: "google-sub",
		Claims: map[string]interface{}{
			"email":          "ada@example.com",
			"email_verified": true,
			"name":           "Ada",
			"picture":        "https://lh3.googleusercontent.com/a",
		},
	}

	var gotAudience string
	v := &GoogleVerifier{clientID: "client-123", validate: func(_ context.Context, _ string, aud string) (*idtoken.Payload, error) {
		gotAudience = aud
		return payload, nil
	}}

	id, err := v.Verify(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "client-123", gotAudience)
	assert.Equal(t, &GoogleIdentity{
		Subject:       "google-sub",
		Email:         "ada@example.com",
		EmailVerified: true,
		Name:          "Ada",
		Picture:       "https://lh3.googleusercontent.com/a",
	}, id)
}

func TestGoogleVerifier_Failures(t *testing.T) {
	t.Run("validation error", func(t *testing.T) {
		v := &GoogleVerifier{clientID: "c", validate: func(context.Context, string, string) (*idtoken.Payload, error) {
			return nil, errors.New("bad signature")
		}}
		_, err := v.Verify(context.Background(), "token")
		assert.Error(t, err)
	})

	t.Run("missing client id", func(t *testing.T) {
		_, err := NewGoogleVerifier("").Verify(context.Background(), "token")
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := identityFromPayload(&idtoken.Payload{Issuer: "evil", Subject: "s", Claims: map[string]interface{}{"email": "a@b.co", "email_verified": true}})
		assert.Error(t, err)
	})

	t.Run("unverified email", func(t *testing.T) {
		_, err := identityFromPayload(&idtoken.Payload{Issuer: "accounts.google.com", Subject: "s", Claims: map[string]interface{}{"email": "a@b.co"}})
		assert.Error(t, err)
	})
}
