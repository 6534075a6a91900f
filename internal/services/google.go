package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProvider signs users in with Google via OAuth2.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a provider from the configured client credentials.
func NewGoogleProvider(cfg shared.OAuthConfig) (*GoogleProvider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing google client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing google client_secret", shared.ErrMissingCredentials)
	}

	redirectURL := cfg.RedirectURL
	if redirectURL == "" {
		redirectURL = "http://localhost:3000/auth/google/callback"
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
	}, nil
}

func (g *GoogleProvider) Name() string { return "google" }

// AuthCodeURL returns the consent page URL carrying state.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for a token and fetches the signed-in profile.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*OAuthProfile, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	var profile OAuthProfile
	if err := decodeJSON(resp, "google userinfo", &profile); err != nil {
		return nil, err
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: google profile has no email", shared.ErrAuthFailed)
	}

	profile.Provider = g.Name()
	profile.Email = shared.NormalizeEmail(profile.Email)
	return &profile, nil
}
