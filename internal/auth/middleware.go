package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

type contextKey string

const claimsKey contextKey = "claims"

// UserLookup reloads the account behind a session so role changes and deletions apply immediately.
type UserLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// WithClaims stores the session claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// CurrentUser returns the claims of the signed-in user, if any.
func CurrentUser(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// Middleware parses the session cookie and stores its claims in the request context.
//
// Invalid or expired cookies are cleared and the request continues anonymously. When users is non-nil the
// account is reloaded so the role in context is current; sessions for deleted accounts are dropped.
func (s *Sessions) Middleware(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := s.FromRequest(r)
			if errors.Is(err, shared.ErrNotAuthenticated) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				s.ClearCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			if users != nil {
				user, err := users.Get(r.Context(), claims.UserID)
				if errors.Is(err, shared.ErrNotFound) {
					s.ClearCookie(w)
					next.ServeHTTP(w, r)
					return
				}
				if err == nil {
					claims.Role = user.Role
					claims.Name = user.Name
				}
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireUser rejects anonymous requests. Browsers are redirected to the login page with a
// return path; other clients get 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose session does not hold role with 403.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := CurrentUser(r.Context())
			if !ok {
				unauthenticated(w, r)
				return
			}
			if claims.Role != role {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginPath builds the login URL that returns to next after signing in.
func LoginPath(next string) string {
	if next == "" || next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// SafeNext returns next when it is a local path, and fallback otherwise.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	return next
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, LoginPath(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return r.Method == http.MethodGet
	}
	return strings.Contains(accept, "text/html")
}
