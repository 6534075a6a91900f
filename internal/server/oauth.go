package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/google/uuid"
)

const (
	stateCookie = "oauth_state"
	stateTTL    = 10 * time.Minute
)

// OAuthProvider is the authorization code flow of an external identity provider.
type OAuthProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*services.OAuthProfile, error)
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Profile *services.OAuthProfile
	err     error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthCompleteFunc finishes sign-in once the provider has answered, e.g. by starting a session and
// redirecting. It must write the response.
type OAuthCompleteFunc func(w http.ResponseWriter, r *http.Request, result OAuthResult)

// OAuthHandler handles the OAuth2 authorization code flow for browser sign-in.
// Implements the Handler interface for registration with a Router.
//
// GET /auth/{provider} stores a random state in a short-lived cookie and redirects to the consent page;
// GET /auth/{provider}/callback checks the state, exchanges the code and hands the profile to complete.
type OAuthHandler struct {
	provider OAuthProvider
	complete OAuthCompleteFunc
	secure   bool
	newState func() string
}

// NewOAuthHandler creates a new OAuth handler for provider. secure marks the state cookie HTTPS-only.
func NewOAuthHandler(provider OAuthProvider, complete OAuthCompleteFunc, secure bool) *OAuthHandler {
	return &OAuthHandler{
		provider: provider,
		complete: complete,
		secure:   secure,
		newState: uuid.NewString,
	}
}

func (h *OAuthHandler) startPath() string    { return "/auth/" + h.provider.Name() }
func (h *OAuthHandler) callbackPath() string { return h.startPath() + "/callback" }

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.startPath(), h.callbackPath()}
}

// ServeHTTP dispatches to the start or callback step.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case h.startPath():
		h.begin(w, r)
	case h.callbackPath():
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *OAuthHandler) begin(w http.ResponseWriter, r *http.Request) {
	state := h.newState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// callback validates the state parameter, exchanges the authorization code, and completes sign-in.
//
// The state cookie is cleared before anything else so a callback URL cannot be replayed.
func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	expected := ""
	if c, err := r.Cookie(stateCookie); err == nil {
		expected = c.Value
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/auth/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	query := r.URL.Query()
	state := query.Get("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		h.complete(w, r, OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))
		h.complete(w, r, OAuthResult{err: err})
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.complete(w, r, OAuthResult{err: err})
		return
	}

	h.complete(w, r, OAuthResult{Profile: profile})
}
