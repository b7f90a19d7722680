// Package middleware provides authentication, logging, metrics, rate limiting
// and tracing middleware for the application.
package middleware

import (
	"context"
	"strings"

	"bolify/internal/auth"
	"bolify/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AuthCookieName is the cookie carrying the session credential.
const AuthCookieName = "authToken"

// Fiber locals set by the authentication middleware.
const (
	LocalUserID = "userID"
	LocalRole   = "role"
	LocalClaims = "claims"
)

// TokenVerifier verifies a raw credential.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RevocationChecker reports whether a credential id was revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// ExtractToken returns the credential from the auth cookie, falling back to a
// Bearer Authorization header.
func ExtractToken(c *fiber.Ctx) string {
	if token := c.Cookies(AuthCookieName); token != "" {
		return token
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func authenticate(c *fiber.Ctx, tokens TokenVerifier, revoked RevocationChecker) (*auth.Claims, error) {
	tokenString := ExtractToken(c)
	if tokenString == "" {
		return nil, models.NewUnauthenticatedError()
	}

	claims, err := tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	if revoked != nil && claims.ID != "" {
		isRevoked, err := revoked.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			// Redis outages must not lock every user out.
			Logger.WarnContext(c.UserContext(), "token revocation check failed", "error", err)
		} else if isRevoked {
			return nil, models.NewInvalidCredentialError(nil)
		}
	}
	return claims, nil
}

func attachIdentity(c *fiber.Ctx, claims *auth.Claims) {
	c.Locals(LocalUserID, claims.UserID)
	c.Locals(LocalRole, claims.Role)
	c.Locals(LocalClaims, claims)
	// Sync to UserContext for logging and downstream services
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
}

// AuthRequired rejects requests without a valid, unrevoked credential and
// attaches the caller's identity otherwise.
func AuthRequired(tokens TokenVerifier, revoked RevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := authenticate(c, tokens, revoked)
		if err != nil {
			appErr := models.AsAppError(err)
			AuthFailures.WithLabelValues(appErr.Code).Inc()
			return models.RespondWithError(c, appErr)
		}
		attachIdentity(c, claims)
		return c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid credential is
// present and never rejects the request.
func OptionalAuth(tokens TokenVerifier, revoked RevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, err := authenticate(c, tokens, revoked); err == nil {
			attachIdentity(c, claims)
		}
		return c.Next()
	}
}

// AdminRequired rejects callers whose credential does not carry the admin
// role. It must run after AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(LocalRole).(models.Role); role != models.RoleAdmin {
			return models.RespondWithError(c, models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// UserID returns the authenticated caller's id, or "" when anonymous.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// CurrentClaims returns the verified claims of the caller, or nil.
func CurrentClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(LocalClaims).(*auth.Claims)
	return claims
}
