package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the verified content of a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IdentityVerifier verifies an identity-provider token.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*GoogleIdentity, error)
}

type payloadValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleVerifier checks Google ID tokens against Google's signing keys and the
// configured client id.
type GoogleVerifier struct {
	clientID string
	validate payloadValidator
}

// NewGoogleVerifier creates a verifier for tokens issued to clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify validates the token and extracts the identity claims.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, errors.New("GOOGLE_CLIENT_ID is not configured")
	}

	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("validate id token: %w", err)
	}
	return identityFromPayload(payload)
}

func identityFromPayload(p *idtoken.Payload) (*GoogleIdentity, error) {
	if p.Issuer != "https://accounts.google.com" && p.Issuer != "accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer %q", p.Issuer)
	}

	id := &GoogleIdentity{Subject: p.Subject}
	id.Email, _ = p.Claims["email"].(string)
	id.EmailVerified, _ = p.Claims["email_verified"].(bool)
	id.Name, _ = p.Claims["name"].(string)
	id.Picture, _ = p.Claims["picture"].(string)

	if id.Subject == "" || id.Email == "" {
		return nil, errors.New("missing email/sub")
	}
	if !id.EmailVerified {
		return nil, errors.New("email not verified")
	}
	return id, nil
}
