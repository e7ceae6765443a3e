package service

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleScopes are the grants the booking assistant asks for: calendar
// access plus enough profile to resolve a stable user id.
var GoogleScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// GoogleRevokeURL is the provider's token-revocation endpoint.
const GoogleRevokeURL = "https://oauth2.googleapis.com/revoke"

// Identity is what the provider knows about the authenticated account.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// IdentityResolver turns a freshly exchanged token into the account identity
// behind it. Tests substitute a stub.
type IdentityResolver interface {
	Resolve(ctx context.Context, ts oauth2.TokenSource) (Identity, error)
}

// GoogleIdentity resolves identity through Google's userinfo endpoint.
type GoogleIdentity struct{}

func (GoogleIdentity) Resolve(ctx context.Context, ts oauth2.TokenSource) (Identity, error) {
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return Identity{}, fmt.Errorf("create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, fmt.Errorf("fetch userinfo: %w", err)
	}

	return Identity{
		Subject: info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
