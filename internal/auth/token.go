// Package auth issues and verifies credentials and hashes local passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"bolify/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "bolify-api"
	tokenAudience = "bolify-client"
)

// Claims is the identity carried by a verified credential.
type Claims struct {
	UserID    string
	Role      models.Role
	ID        string
	ExpiresAt time.Time
}

// TokenService signs and verifies HS256 credentials with a fixed lifetime.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service for the given secret and lifetime.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued credentials.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed credential for the user.
func (s *TokenService) Issue(user *models.User) (string, *Claims, error) {
	if len(s.secret) == 0 {
		return "", nil, errors.New("JWT secret not configured")
	}

	now := s.now()
	claims := &Claims{
		UserID:    user.ID,
		Role:      user.Role,
		ID:        uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  claims.UserID,
		"role": string(claims.Role),
		"iss":  tokenIssuer,
		"aud":  tokenAudience,
		"exp":  claims.ExpiresAt.Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  claims.ID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature, expiry, issuer and audience of a credential.
// Expired credentials fail with SessionExpired; anything else that does not
// verify fails with InvalidCredential.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.NewSessionExpiredError()
		}
		return nil, models.NewInvalidCredentialError(err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, models.NewInvalidCredentialError(errors.New("invalid token claims"))
	}

	sub, _ := mapClaims["sub"].(string)
	if !models.IsValidID(sub) {
		return nil, models.NewInvalidCredentialError(errors.New("invalid subject claim"))
	}

	role := models.Role(fmt.Sprint(mapClaims["role"]))
	if !role.Valid() {
		return nil, models.NewInvalidCredentialError(errors.New("invalid role claim"))
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, models.NewInvalidCredentialError(errors.New("invalid exp claim"))
	}

	jti, _ := mapClaims["jti"].(string)

	return &Claims{
		UserID:    sub,
		Role:      role,
		ID:        jti,
		ExpiresAt: exp.Time,
	}, nil
}
