package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

func quietLogger(buf *strings.Builder) *log.Logger {
	return log.New(buf)
}

func tag(name string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Trail", name)
			next.ServeHTTP(w, r)
		})
	}
}

type routesHandler struct{ routes []string }

func (h routesHandler) Routes() []string { return h.routes }
func (h routesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "handler:"+r.URL.Path)
}

func TestChiRouter(t *testing.T) {
	router := NewChiRouter()
	router.Use(tag("outer"))
	router.Handle(http.MethodGet, "/students/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "student "+URLParam(r, "id"))
	}))
	router.Handler(routesHandler{routes: []string{"/a", "/b"}})
	router.Group(func(r Router) {
		r.Use(tag("inner"))
		r.Handle(http.MethodPost, "/admin", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "admin")
		}))
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nothing here", http.StatusNotFound)
	})

	tc := []struct {
		name   string
		method string
		path   string
		status int
		body   string
		trail  []string
	}{
		{"path params", http.MethodGet, "/students/42", http.StatusOK, "student 42", []string{"outer"}},
		{"custom handler first route", http.MethodGet, "/a", http.StatusOK, "handler:/a", []string{"outer"}},
		{"custom handler second route", http.MethodPost, "/b", http.StatusOK, "handler:/b", []string{"outer"}},
		{"group middleware", http.MethodPost, "/admin", http.StatusOK, "admin", []string{"outer", "inner"}},
		{"method not allowed", http.MethodGet, "/admin", http.StatusMethodNotAllowed, "", nil},
		{"not found", http.MethodGet, "/missing", http.StatusNotFound, "nothing here", nil},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.body != "" && !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
			}
			if tt.trail != nil {
				got := rec.Header().Values("X-Trail")
				if strings.Join(got, ",") != strings.Join(tt.trail, ",") {
					t.Errorf("expected middleware trail %v, got %v", tt.trail, got)
				}
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("RequestLogger", func(t *testing.T) {
		var buf strings.Builder
		handler := RequestID(RequestLogger(quietLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

		out := buf.String()
		for _, want := range []string{"path=/brew", "status=418", "request_id="} {
			if !strings.Contains(out, want) {
				t.Errorf("log missing %q: %s", want, out)
			}
		}
	})

	t.Run("Recoverer", func(t *testing.T) {
		var buf strings.Builder
		handler := Recoverer(quietLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("expected panic to be logged: %s", buf.String())
		}
	})

	t.Run("CSRF Disabled", func(t *testing.T) {
		handler := CSRF("", "http://localhost:3000", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "ok")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected passthrough without a key, got %d", rec.Code)
		}
	})

	t.Run("CSRF", func(t *testing.T) {
		key := "0123456789abcdef0123456789abcdef"
		failure := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rejected: "+CSRFFailure(r).Error(), http.StatusForbidden)
		})
		handler := CSRF(key, "http://localhost:3000", failure)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				io.WriteString(w, CSRFToken(r))
				return
			}
			io.WriteString(w, "accepted")
		}))

		get := httptest.NewRecorder()
		handler.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/form", nil))
		token := get.Body.String()
		if token == "" {
			t.Fatal("expected a token on GET")
		}
		cookies := get.Result().Cookies()
		if len(cookies) == 0 {
			t.Fatal("expected a CSRF cookie")
		}

		t.Run("missing token", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/form", nil)
			for _, c := range cookies {
				req.AddCookie(c)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusForbidden {
				t.Errorf("expected 403, got %d", rec.Code)
			}
		})

		t.Run("valid token", func(t *testing.T) {
			form := url.Values{CSRFFieldName: {token}}
			req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			for _, c := range cookies {
				req.AddCookie(c)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK || rec.Body.String() != "accepted" {
				t.Errorf("expected accepted, got %d %q", rec.Code, rec.Body.String())
			}
		})

		t.Run("foreign origin", func(t *testing.T) {
			form := url.Values{CSRFFieldName: {token}}
			req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Origin", "http://evil.example")
			for _, c := range cookies {
				req.AddCookie(c)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusForbidden {
				t.Errorf("expected 403 for a foreign origin, got %d", rec.Code)
			}
		})
	})
}

type fakeProvider struct {
	profile *services.OAuthProfile
	err     error
	codes   []string
}

func (p *fakeProvider) Name() string { return "google" }
func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}
func (p *fakeProvider) Exchange(_ context.Context, code string) (*services.OAuthProfile, error) {
	p.codes = append(p.codes, code)
	return p.profile, p.err
}

func TestOAuthHandler(t *testing.T) {
	newHandler := func(p *fakeProvider) (*OAuthHandler, *OAuthResult) {
		got := &OAuthResult{}
		h := NewOAuthHandler(p, func(w http.ResponseWriter, r *http.Request, result OAuthResult) {
			*got = result
			w.WriteHeader(http.StatusNoContent)
		}, false)
		h.newState = func() string { return "fixed-state" }
		return h, got
	}

	callback := func(h *OAuthHandler, query string, state string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+query, nil)
		if state != "" {
			req.AddCookie(&http.Cookie{Name: stateCookie, Value: state})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("Routes", func(t *testing.T) {
		h, _ := newHandler(&fakeProvider{})
		routes := h.Routes()
		if len(routes) != 2 || routes[0] != "/auth/google" || routes[1] != "/auth/google/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("Begin", func(t *testing.T) {
		h, _ := newHandler(&fakeProvider{})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

		if rec.Code != http.StatusFound {
			t.Fatalf("expected redirect, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "https://accounts.example/auth?state=fixed-state" {
			t.Errorf("unexpected redirect %s", loc)
		}

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != stateCookie || cookies[0].Value != "fixed-state" || !cookies[0].HttpOnly {
			t.Errorf("unexpected state cookie %+v", cookies)
		}
	})

	t.Run("Callback Success", func(t *testing.T) {
		p := &fakeProvider{profile: &services.OAuthProfile{Email: "asha@example.com", EmailVerified: true}}
		h, got := newHandler(p)

		rec := callback(h, "state=fixed-state&code=abc", "fixed-state")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected completion response, got %d", rec.Code)
		}
		if got.Error() != nil || got.Profile == nil || got.Profile.Email != "asha@example.com" {
			t.Errorf("unexpected result %+v", got)
		}
		if len(p.codes) != 1 || p.codes[0] != "abc" {
			t.Errorf("expected code exchange, got %v", p.codes)
		}

		cleared := false
		for _, c := range rec.Result().Cookies() {
			if c.Name == stateCookie && c.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Error("expected the state cookie to be cleared")
		}
	})

	t.Run("Callback Errors", func(t *testing.T) {
		tc := []struct {
			name   string
			query  string
			cookie string
			err    error
		}{
			{"missing cookie", "state=fixed-state&code=abc", "", shared.ErrAuthFailed},
			{"state mismatch", "state=other&code=abc", "fixed-state", shared.ErrAuthFailed},
			{"denied consent", "state=fixed-state&error=access_denied", "fixed-state", shared.ErrAuthFailed},
			{"exchange failure", "state=fixed-state&code=abc", "fixed-state", shared.ErrServiceUnavailable},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				h, got := newHandler(&fakeProvider{err: shared.ErrServiceUnavailable})
				callback(h, tt.query, tt.cookie)
				if !errors.Is(got.Error(), tt.err) {
					t.Errorf("expected %v, got %v", tt.err, got.Error())
				}
			})
		}
	})
}

func TestServer(t *testing.T) {
	t.Run("Serve And Shutdown", func(t *testing.T) {
		var buf strings.Builder
		cfg := shared.DefaultConfig().Server
		srv := New(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "pong")
		}), quietLogger(&buf))

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx, ln) }()

		resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != "pong" {
			t.Errorf("unexpected body %q", body)
		}

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected clean shutdown, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down")
		}
	})

	t.Run("Addr", func(t *testing.T) {
		cfg := shared.DefaultConfig().Server
		if addr := New(cfg, http.NotFoundHandler(), nil).Addr(); addr != "127.0.0.1:3000" {
			t.Errorf("unexpected addr %s", addr)
		}
	})
}
