package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
)

func TestPassword(t *testing.T) {
	t.Run("Hash And Check", func(t *testing.T) {
		hash, err := HashPassword("correct horse")
		if err != nil {
			t.Fatalf("failed to hash: %v", err)
		}
		if hash == "correct horse" {
			t.Fatal("hash should not equal the password")
		}
		if !CheckPassword(hash, "correct horse") {
			t.Error("expected password to match")
		}
		if CheckPassword(hash, "wrong horse") {
			t.Error("expected wrong password to fail")
		}
		if CheckPassword("", "correct horse") {
			t.Error("empty hash should never match")
		}
	})

	t.Run("Too Short", func(t *testing.T) {
		if _, err := HashPassword("short"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})
}

func TestSessions(t *testing.T) {
	user := &models.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Role: models.RoleAdmin}

	t.Run("Issue And Parse", func(t *testing.T) {
		sessions := NewSessions("secret", time.Hour, false)
		token, err := sessions.Issue(user)
		if err != nil {
			t.Fatalf("failed to issue: %v", err)
		}

		claims, err := sessions.Parse(token)
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if claims.UserID != "u1" || claims.Email != "asha@example.com" || !claims.IsAdmin() {
			t.Errorf("unexpected claims %+v", claims)
		}
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		token, _ := NewSessions("secret", time.Hour, false).Issue(user)
		if _, err := NewSessions("other", time.Hour, false).Parse(token); !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("expected invalid token, got %v", err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		sessions := NewSessions("secret", time.Hour, false)
		token, _ := sessions.Issue(user)

		sessions.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := sessions.Parse(token); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected expired token, got %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := NewSessions("secret", time.Hour, false).Parse("not.a.jwt"); !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("expected invalid token, got %v", err)
		}
	})

	t.Run("Cookies", func(t *testing.T) {
		sessions := NewSessions("secret", time.Hour, true)

		rec := httptest.NewRecorder()
		sessions.SetCookie(rec, "tok")
		cookie := rec.Result().Cookies()[0]
		if cookie.Name != CookieName || cookie.Value != "tok" || !cookie.HttpOnly || !cookie.Secure {
			t.Errorf("unexpected cookie %+v", cookie)
		}
		if cookie.MaxAge != 3600 {
			t.Errorf("expected max age 3600, got %d", cookie.MaxAge)
		}

		rec = httptest.NewRecorder()
		sessions.ClearCookie(rec)
		if cleared := rec.Result().Cookies()[0]; cleared.MaxAge >= 0 {
			t.Errorf("expected cookie to be expired, got max age %d", cleared.MaxAge)
		}
	})
}

type stubLookup struct {
	user *models.User
	err  error
}

func (s stubLookup) Get(context.Context, string) (*models.User, error) { return s.user, s.err }

func TestMiddleware(t *testing.T) {
	sessions := NewSessions("secret", time.Hour, false)
	member := &models.User{ID: "u1", Name: "Ravi", Email: "ravi@example.com", Role: models.RoleUser}
	token, _ := sessions.Issue(member)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, found := CurrentUser(r.Context()); found {
			w.Header().Set("X-User", claims.UserID)
			w.Header().Set("X-Role", string(claims.Role))
		}
		w.WriteHeader(http.StatusOK)
	})

	request := func(path, accept string, withCookie string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		if withCookie != "" {
			req.AddCookie(&http.Cookie{Name: CookieName, Value: withCookie})
		}
		return req
	}

	t.Run("Session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sessions.Middleware(nil)(ok).ServeHTTP(rec, request("/", "", token))
		if rec.Header().Get("X-User") != "u1" {
			t.Error("expected claims in context")
		}
	})

	t.Run("Invalid Cookie Is Cleared", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sessions.Middleware(nil)(ok).ServeHTTP(rec, request("/", "", "garbage"))
		if rec.Header().Get("X-User") != "" {
			t.Error("expected anonymous request")
		}
		if len(rec.Result().Cookies()) == 0 {
			t.Error("expected cookie to be cleared")
		}
	})

	t.Run("Lookup Refreshes Role", func(t *testing.T) {
		promoted := *member
		promoted.Role = models.RoleAdmin

		rec := httptest.NewRecorder()
		sessions.Middleware(stubLookup{user: &promoted})(ok).ServeHTTP(rec, request("/", "", token))
		if rec.Header().Get("X-Role") != "admin" {
			t.Errorf("expected refreshed admin role, got %q", rec.Header().Get("X-Role"))
		}
	})

	t.Run("Lookup Drops Deleted Accounts", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sessions.Middleware(stubLookup{err: shared.ErrNotFound})(ok).ServeHTTP(rec, request("/", "", token))
		if rec.Header().Get("X-User") != "" {
			t.Error("expected deleted account to be anonymous")
		}
	})

	t.Run("RequireUser", func(t *testing.T) {
		handler := sessions.Middleware(nil)(RequireUser(ok))

		tc := []struct {
			name     string
			req      *http.Request
			status   int
			location string
		}{
			{"browser redirected", request("/dashboard?tab=fees", "text/html", ""), http.StatusSeeOther, "/login?next=" + url.QueryEscape("/dashboard?tab=fees")},
			{"api unauthorized", request("/dashboard", "application/json", ""), http.StatusUnauthorized, ""},
			{"signed in", request("/dashboard", "text/html", token), http.StatusOK, ""},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, tt.req)
				if rec.Code != tt.status {
					t.Errorf("expected status %d, got %d", tt.status, rec.Code)
				}
				if tt.location != "" && rec.Header().Get("Location") != tt.location {
					t.Errorf("expected redirect to %s, got %s", tt.location, rec.Header().Get("Location"))
				}
			})
		}
	})

	t.Run("RequireRole", func(t *testing.T) {
		handler := sessions.Middleware(nil)(RequireRole(models.RoleAdmin)(ok))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request("/admin", "text/html", token))
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403 for non-admin, got %d", rec.Code)
		}

		adminToken, _ := sessions.Issue(&models.User{ID: "a1", Email: "a@example.com", Role: models.RoleAdmin})
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, request("/admin", "text/html", adminToken))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for admin, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, request("/admin", "text/html", ""))
		if rec.Code != http.StatusSeeOther {
			t.Errorf("expected anonymous redirect, got %d", rec.Code)
		}
	})

	t.Run("SafeNext", func(t *testing.T) {
		tc := map[string]string{
			"/admin/students":     "/admin/students",
			"":                    "/dashboard",
			"https://evil.test/":  "/dashboard",
			"//evil.test/":        "/dashboard",
			`/\evil.test`:         "/dashboard",
			"/dashboard?tab=fees": "/dashboard?tab=fees",
		}
		for in, want := range tc {
			if got := SafeNext(in, "/dashboard"); got != want {
				t.Errorf("SafeNext(%q) = %q, want %q", in, got, want)
			}
		}
	})
}

func TestLimiter(t *testing.T) {
	t.Run("Allow", func(t *testing.T) {
		limiter := NewLimiter(0.001, 2)
		if !limiter.Allow("ip") || !limiter.Allow("ip") {
			t.Fatal("expected burst to be allowed")
		}
		if limiter.Allow("ip") {
			t.Error("expected third attempt to be limited")
		}
		if !limiter.Allow("other") {
			t.Error("keys should be independent")
		}

		limiter.Reset("ip")
		if !limiter.Allow("ip") {
			t.Error("expected reset key to be allowed")
		}
	})

	t.Run("AllowScaled", func(t *testing.T) {
		tests := []struct {
			name    string
			factor  int
			allowed int
		}{
			{"factor one matches Allow", 1, 2},
			{"zero treated as one", 0, 2},
			{"factor five", 5, 10},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				limiter := NewLimiter(0.001, 2)
				for i := range tt.allowed {
					if !limiter.AllowScaled("ip", tt.factor) {
						t.Fatalf("attempt %d should be allowed", i+1)
					}
				}
				if limiter.AllowScaled("ip", tt.factor) {
					t.Errorf("attempt %d should be limited", tt.allowed+1)
				}
			})
		}
	})

	t.Run("Prune", func(t *testing.T) {
		limiter := NewLimiter(1, 1)
		now := time.Now()
		limiter.now = func() time.Time { return now }
		limiter.Allow("old")

		limiter.now = func() time.Time { return now.Add(20 * time.Minute) }
		limiter.Allow("fresh")

		if removed := limiter.Prune(); removed != 1 {
			t.Errorf("expected 1 idle key removed, got %d", removed)
		}
		if limiter.Len() != 1 {
			t.Errorf("expected 1 key left, got %d", limiter.Len())
		}
	})
}

type accountsFixture struct {
	accounts *Accounts
	users    *repositories.UserRepository
	students *repositories.StudentRepository
	tokens   *repositories.TokenRepository
	mailer   *tu.MockMailer
}

func newAccountsFixture(t *testing.T) *accountsFixture {
	t.Helper()

	db := tu.SetupDB(t)
	f := &accountsFixture{
		users:    repositories.NewUserRepository(db),
		students: repositories.NewStudentRepository(db),
		tokens:   repositories.NewTokenRepository(db),
		mailer:   &tu.MockMailer{},
	}
	f.accounts = NewAccounts(AccountsOpts{
		Users:           f.users,
		Students:        f.students,
		Tokens:          f.tokens,
		Sessions:        NewSessions("secret", time.Hour, false),
		Mailer:          f.mailer,
		Logger:          log.New(&strings.Builder{}),
		BaseURL:         "http://localhost:3000/",
		VerificationTTL: time.Hour,
	})
	return f
}

func tokenFromLink(t *testing.T, msg *services.Message) string {
	t.Helper()
	if msg == nil {
		t.Fatal("expected a verification email")
	}

	i := strings.Index(msg.Text, "token=")
	if i < 0 {
		t.Fatalf("no token in email: %q", msg.Text)
	}
	raw := strings.Fields(msg.Text[i+len("token="):])[0]
	token, err := url.QueryUnescape(raw)
	if err != nil {
		t.Fatalf("bad token %q: %v", raw, err)
	}
	return token
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	input := RegisterInput{Name: "Asha", Email: "Asha@Example.com", Password: "password1", ConfirmPassword: "password1"}

	t.Run("Register", func(t *testing.T) {
		f := newAccountsFixture(t)

		first, err := f.accounts.Register(ctx, input)
		if err != nil {
			t.Fatalf("failed to register: %v", err)
		}
		if !first.IsAdmin() {
			t.Error("first account should be admin")
		}
		if first.Verified() {
			t.Error("new account should not be verified")
		}

		msg := f.mailer.Last()
		if msg == nil || msg.To != "asha@example.com" {
			t.Fatalf("expected verification email to asha@example.com, got %+v", msg)
		}
		if !strings.Contains(msg.Text, "http://localhost:3000/verify?token=") {
			t.Errorf("expected verification link in email: %q", msg.Text)
		}

		second, err := f.accounts.Register(ctx, RegisterInput{Name: "Ravi", Email: "ravi@example.com", Password: "password1", ConfirmPassword: "password1"})
		if err != nil {
			t.Fatalf("failed to register second: %v", err)
		}
		if second.IsAdmin() {
			t.Error("second account should not be admin")
		}
	})

	t.Run("Register Errors", func(t *testing.T) {
		f := newAccountsFixture(t)
		if _, err := f.accounts.Register(ctx, input); err != nil {
			t.Fatalf("failed to register: %v", err)
		}

		if _, err := f.accounts.Register(ctx, input); !errors.Is(err, shared.ErrDuplicate) {
			t.Errorf("expected duplicate, got %v", err)
		}

		mismatch := input
		mismatch.Email = "other@example.com"
		mismatch.ConfirmPassword = "different"
		_, err := f.accounts.Register(ctx, mismatch)
		var verr *models.ValidationError
		if !errors.As(err, &verr) || verr.Fields["confirm_password"] == "" {
			t.Errorf("expected confirm_password error, got %v", err)
		}
	})

	t.Run("Register With Mail Failure", func(t *testing.T) {
		f := newAccountsFixture(t)
		f.mailer.Err = shared.ErrMailFailed

		user, err := f.accounts.Register(ctx, input)
		if !errors.Is(err, shared.ErrMailFailed) {
			t.Fatalf("expected mail failure, got %v", err)
		}
		if user == nil {
			t.Fatal("account should still be created")
		}
	})

	t.Run("Verify Links Student", func(t *testing.T) {
		f := newAccountsFixture(t)

		student := models.NewStudent("Asha", "asha@example.com", models.InstrumentPiano, models.Grade2, models.BatchWeekend, models.TimingMorning)
		if err := f.students.Create(ctx, student); err != nil {
			t.Fatalf("failed to create student: %v", err)
		}

		user, _ := f.accounts.Register(ctx, input)
		token := tokenFromLink(t, f.mailer.Last())

		verified, err := f.accounts.Verify(ctx, token)
		if err != nil {
			t.Fatalf("failed to verify: %v", err)
		}
		if !verified.Verified() {
			t.Error("expected verified user")
		}

		linked, err := f.students.GetByUser(ctx, user.ID)
		if err != nil || linked.ID != student.ID {
			t.Errorf("expected student to be linked, got %v", err)
		}

		if _, err := f.accounts.Verify(ctx, token); !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("token should be single use, got %v", err)
		}
	})

	t.Run("Verify Expired", func(t *testing.T) {
		f := newAccountsFixture(t)
		_, _ = f.accounts.Register(ctx, input)
		token := tokenFromLink(t, f.mailer.Last())

		f.accounts.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := f.accounts.Verify(ctx, token); !errors.Is(err, shared.ErrTokenExpired) {
			t.Fatalf("expected expired token, got %v", err)
		}
		if _, err := f.tokens.GetByToken(ctx, token); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expired token should be deleted, got %v", err)
		}
	})

	t.Run("ResendVerification", func(t *testing.T) {
		f := newAccountsFixture(t)
		_, _ = f.accounts.Register(ctx, input)
		oldToken := tokenFromLink(t, f.mailer.Last())

		if err := f.accounts.ResendVerification(ctx, "asha@example.com"); err != nil {
			t.Fatalf("failed to resend: %v", err)
		}
		if len(f.mailer.Sent()) != 2 {
			t.Fatalf("expected a second email, got %d", len(f.mailer.Sent()))
		}
		if _, err := f.accounts.Verify(ctx, oldToken); !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("old token should be revoked, got %v", err)
		}

		if err := f.accounts.ResendVerification(ctx, "nobody@example.com"); err != nil {
			t.Errorf("unknown email should succeed silently, got %v", err)
		}
	})

	t.Run("Login", func(t *testing.T) {
		f := newAccountsFixture(t)
		_, _ = f.accounts.Register(ctx, input)

		if _, _, err := f.accounts.Login(ctx, "asha@example.com", "password1"); !errors.Is(err, shared.ErrEmailNotVerified) {
			t.Errorf("expected unverified error, got %v", err)
		}

		_, _ = f.accounts.Verify(ctx, tokenFromLink(t, f.mailer.Last()))

		if _, _, err := f.accounts.Login(ctx, "asha@example.com", "wrong-password"); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected invalid credentials, got %v", err)
		}
		if _, _, err := f.accounts.Login(ctx, "nobody@example.com", "password1"); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected invalid credentials for unknown email, got %v", err)
		}

		user, token, err := f.accounts.Login(ctx, " ASHA@example.com", "password1")
		if err != nil {
			t.Fatalf("failed to login: %v", err)
		}
		if token == "" || user.LastLoginAt == nil {
			t.Error("expected session token and last login")
		}
	})

	t.Run("LoginWithProfile", func(t *testing.T) {
		f := newAccountsFixture(t)
		profile := &services.OAuthProfile{Provider: "google", Email: "meera@example.com", EmailVerified: true, Name: "Meera"}

		user, token, err := f.accounts.LoginWithProfile(ctx, profile)
		if err != nil {
			t.Fatalf("failed to login with profile: %v", err)
		}
		if token == "" || !user.Verified() || user.Provider != models.ProviderGoogle {
			t.Errorf("unexpected oauth user %+v", user)
		}
		if !user.IsAdmin() {
			t.Error("first account should be admin even via oauth")
		}

		again, _, err := f.accounts.LoginWithProfile(ctx, profile)
		if err != nil || again.ID != user.ID {
			t.Errorf("expected the same account on second login, got %v", err)
		}

		unverified := &services.OAuthProfile{Email: "x@example.com"}
		if _, _, err := f.accounts.LoginWithProfile(ctx, unverified); !errors.Is(err, shared.ErrEmailNotVerified) {
			t.Errorf("expected unverified error, got %v", err)
		}
	})

	t.Run("LoginWithProfile Claims Unverified Account", func(t *testing.T) {
		f := newAccountsFixture(t)
		if _, err := f.accounts.Register(ctx, RegisterInput{Name: "Someone", Email: "meera@example.com", Password: "password1", ConfirmPassword: "password1"}); err != nil {
			t.Fatalf("failed to register: %v", err)
		}
		pending := tokenFromLink(t, f.mailer.Last())

		profile := &services.OAuthProfile{Provider: "google", Email: "meera@example.com", EmailVerified: true, Name: "Meera"}
		user, _, err := f.accounts.LoginWithProfile(ctx, profile)
		if err != nil {
			t.Fatalf("failed to login with profile: %v", err)
		}

		stored, err := f.users.Get(ctx, user.ID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		tests := []struct {
			name string
			ok   bool
		}{
			{"verified", stored.Verified()},
			{"provider switched to google", stored.Provider == models.ProviderGoogle},
			{"password cleared", !stored.HasPassword()},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if !tt.ok {
					t.Errorf("unexpected account state %+v", stored)
				}
			})
		}

		if _, _, err := f.accounts.Login(ctx, "meera@example.com", "password1"); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("sign-up password should no longer work, got %v", err)
		}
		if _, err := f.accounts.Verify(ctx, pending); !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("pending verification token should be revoked, got %v", err)
		}
	})

	t.Run("Provision", func(t *testing.T) {
		f := newAccountsFixture(t)
		user, err := f.accounts.Provision(ctx, "Office", "office@example.com", "password1", models.RoleAdmin)
		if err != nil {
			t.Fatalf("failed to provision: %v", err)
		}
		if !user.Verified() || !user.IsAdmin() {
			t.Errorf("expected verified admin, got %+v", user)
		}

		if _, _, err := f.accounts.Login(ctx, "office@example.com", "password1"); err != nil {
			t.Errorf("provisioned account should log in, got %v", err)
		}
	})
}
