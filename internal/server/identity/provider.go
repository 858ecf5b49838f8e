// Package identity implements the redirect-based sign-in: providers that turn
// an authorization code into a user identity, and a registry that hands the
// result from the HTTP callback to the waiting gRPC call.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Identity is the user as reported by the provider.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Provider is an external identity provider reached through a browser redirect.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// GoogleProvider signs users in with Google OAuth2.
type GoogleProvider struct {
	config *oauth2.Config
	// userInfoEndpoint overrides the Google API base URL; empty means default.
	userInfoEndpoint string
}

// NewGoogleProvider builds the provider; redirectURL must point at the
// server's /auth/callback.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
	}}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(p.config.TokenSource(ctx, token))}
	if p.userInfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.userInfoEndpoint))
	}

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("oauth2 service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	if info.Id == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: user info without id or email", common.ErrorUnauthorized)
	}

	return &Identity{
		UID:         info.Id,
		Email:       info.Email,
		DisplayName: info.Name,
		PhotoURL:    info.Picture,
	}, nil
}

// DevProvider is a local stand-in for development and tests: the
// "authorization page" is served by this server and the code is the e-mail
// address the user typed.
type DevProvider struct {
	baseURL  string
	validate *validator.Validate
}

func NewDevProvider(baseURL string) *DevProvider {
	return &DevProvider{baseURL: strings.TrimRight(baseURL, "/"), validate: validator.New()}
}

func (p *DevProvider) Name() string { return "dev" }

func (p *DevProvider) AuthCodeURL(state string) string {
	return p.baseURL + "/auth/dev?" + url.Values{"state": {state}}.Encode()
}

func (p *DevProvider) Exchange(_ context.Context, code string) (*Identity, error) {
	email := strings.ToLower(strings.TrimSpace(code))
	if err := p.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: %q is not an e-mail address", common.ErrorInvalidArgument, code)
	}

	sum := sha256.Sum256([]byte(email))
	name, _, _ := strings.Cut(email, "@")

	return &Identity{
		UID:         "dev-" + hex.EncodeToString(sum[:8]),
		Email:       email,
		DisplayName: name,
	}, nil
}
