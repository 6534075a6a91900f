package server

import (
	"html/template"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
)

// CSRFFieldName is the hidden form field carrying the CSRF token.
const CSRFFieldName = "csrf_token"

// RequestID tags each request with an ID, reusing an incoming X-Request-Id header.
func RequestID(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Microsecond),
				"remote", r.RemoteAddr,
			}
			if id := middleware.GetReqID(r.Context()); id != "" {
				kv = append(kv, "request_id", id)
			}

			switch {
			case status >= 500:
				logger.Error("request", kv...)
			case status >= 400:
				logger.Warn("request", kv...)
			default:
				logger.Info("request", kv...)
			}
		})
	}
}

// Recoverer turns a panicking handler into a 500 response and logs the stack.
func Recoverer(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic serving request", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// CSRF protects unsafe methods with a double-submit token bound to a signed cookie.
//
// key must be 32 bytes; an empty key disables protection (tests and local tools). When baseURL uses plain
// http the Referer check that gorilla/csrf applies to TLS requests is relaxed. failure renders rejected
// requests; nil uses the library's plain 403.
func CSRF(key, baseURL string, failure http.Handler) Middleware {
	if key == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	secure := true
	var trusted []string
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		secure = u.Scheme == "https"
		trusted = append(trusted, u.Host)
	}

	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName(CSRFFieldName),
		csrf.CookieName("_csrf"),
		csrf.TrustedOrigins(trusted),
	}
	if failure != nil {
		opts = append(opts, csrf.ErrorHandler(failure))
	}
	protect := csrf.Protect([]byte(key), opts...)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// CSRFToken returns the masked token for the current request, or "" when protection is disabled.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

// CSRFField renders the hidden token input for forms, or nothing when protection is disabled.
func CSRFField(r *http.Request) template.HTML {
	return csrf.TemplateField(r)
}

// CSRFFailure returns why gorilla/csrf rejected the request.
func CSRFFailure(r *http.Request) error {
	return csrf.FailureReason(r)
}
