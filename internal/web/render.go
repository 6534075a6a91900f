package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/encore/internal/auth"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/gorilla/securecookie"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates content static
var assets embed.FS

const flashCookie = "flash"

// markdown renders trusted site content; raw HTML in the source is escaped.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Linkify),
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

func staticFS() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// flash is a one-shot message shown on the next page load.
type flash struct {
	Kind    string `json:"kind"` // success or error
	Message string `json:"message"`
}

// view is the data passed to every page template.
type view struct {
	Title     string
	School    string
	Currency  string
	Path      string
	User      *auth.Claims
	CSRFField template.HTML
	CSRFToken string
	Flash     *flash
	Result    *models.Result
	Form      url.Values
	Data      any
	Year      int
}

// Value returns the submitted form value for name, or fallback when the form was not posted.
func (v *view) Value(name, fallback string) string {
	if v.Form == nil {
		return fallback
	}
	if _, ok := v.Form[name]; !ok {
		return fallback
	}
	return v.Form.Get(name)
}

// IsAdmin reports whether the signed in user manages the school.
func (v *view) IsAdmin() bool { return v.User.IsAdmin() }

// Error returns the field message from the last action result.
func (v *view) Error(field string) string {
	if v.Result == nil {
		return ""
	}
	return v.Result.FieldError(field)
}

func (a *App) funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(amount float64) string { return shared.FormatMoney(amount, a.cfg.App.Currency) },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"isoDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(shared.DateLayout)
		},
		"datePtr": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format(shared.DateLayout)
		},
		"markdown": func(src string) template.HTML {
			var buf bytes.Buffer
			if err := markdown.Convert([]byte(src), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(src))
			}
			return template.HTML(buf.String())
		},
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
		"signed":  func(f float64) string { return fmt.Sprintf("%+.1f", f) },
		"width": func(v, total float64) string {
			if total <= 0 {
				return "0%"
			}
			return fmt.Sprintf("%.0f%%", v/total*100)
		},
		"instruments":        models.Instruments,
		"grades":             models.Grades,
		"batches":            models.Batches,
		"timings":            models.Timings,
		"roles":              models.Roles,
		"attendanceStatuses": models.AttendanceStatuses,
		"paymentMethods":     models.PaymentMethods,
		"paymentStatuses":    models.PaymentStatuses,
		"expenseCategories":  models.ExpenseCategories,
		"expenseStatuses":    models.ExpenseStatuses,
		"str":                func(v any) string { return fmt.Sprint(v) },
		"add":                func(a, b int) int { return a + b },
		"qs": func(params url.Values) template.URL {
			if len(params) == 0 {
				return ""
			}
			return template.URL("?" + params.Encode())
		},
		"query": func(params url.Values, key string, value any) template.URL {
			q := url.Values{}
			for k, v := range params {
				q[k] = v
			}
			q.Set(key, fmt.Sprint(value))
			return template.URL("?" + q.Encode())
		},
	}
}

// parsePages parses each page template together with the layout.
func (a *App) parsePages() (map[string]*template.Template, error) {
	entries, err := fs.Glob(assets, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(entry[len("templates/pages/"):], ".html")
		tpl, err := template.New("layout.html").Funcs(a.funcs()).ParseFS(assets, "templates/layout.html", entry)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tpl
	}
	return pages, nil
}

// renderContent converts the markdown pages under content/ to HTML.
func renderContent() (map[string]template.HTML, error) {
	entries, err := fs.Glob(assets, "content/*.md")
	if err != nil {
		return nil, err
	}

	out := make(map[string]template.HTML, len(entries))
	for _, entry := range entries {
		src, err := assets.ReadFile(entry)
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := markdown.Convert(src, &buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", entry, err)
		}
		out[strings.TrimSuffix(entry[len("content/"):], ".md")] = template.HTML(buf.String())
	}
	return out, nil
}

func (a *App) newView(w http.ResponseWriter, r *http.Request, title string) *view {
	v := &view{
		Title:     title,
		School:    a.school(),
		Currency:  a.cfg.App.Currency,
		Path:      r.URL.Path,
		CSRFField: server.CSRFField(r),
		CSRFToken: server.CSRFToken(r),
		Flash:     a.takeFlash(w, r),
		Year:      a.now().Year(),
	}
	if claims, ok := auth.CurrentUser(r.Context()); ok {
		v.User = claims
	}
	return v
}

// render executes page into a buffer so template errors never leave a half-written response.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, page string, v *view) {
	tpl, ok := a.pages[page]
	if !ok {
		a.serverError(w, r, fmt.Errorf("%w: template %s", shared.ErrNotFound, page))
		return
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, v); err != nil {
		a.logger.Error("template execution failed", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (a *App) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsJSON(r) {
		a.writeJSON(w, status, map[string]string{"error": message})
		return
	}

	v := a.newView(w, r, http.StatusText(status))
	v.Data = message
	a.render(w, r, status, "error", v)
}

func (a *App) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

// respond finishes a form action. JSON clients get the result itself. Browsers are redirected to
// next with a flash on success; on failure rerender shows the form again, or the flash carries the
// error when there is no form to show.
func (a *App) respond(w http.ResponseWriter, r *http.Request, res models.Result, next string, rerender func(models.Result)) {
	if wantsJSON(r) {
		a.writeJSON(w, resultStatus(res), res)
		return
	}

	if res.OK() {
		a.setFlash(w, "success", res.Message)
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	if rerender != nil {
		rerender(res)
		return
	}

	a.setFlash(w, "error", res.Message)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func resultStatus(res models.Result) int {
	switch res.Status {
	case models.StatusSuccess:
		return http.StatusOK
	case models.StatusExistingStudent:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func (a *App) cookieCodec() *securecookie.SecureCookie {
	return securecookie.New([]byte(a.cfg.Auth.Secret), nil).MaxAge(60)
}

func (a *App) setFlash(w http.ResponseWriter, kind, message string) {
	if message == "" {
		return
	}

	encoded, err := a.cookieCodec().Encode(flashCookie, flash{Kind: kind, Message: message})
	if err != nil {
		a.logger.Warn("failed to encode flash", "error", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   a.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *App) takeFlash(w http.ResponseWriter, r *http.Request) *flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	var f flash
	if err := a.cookieCodec().Decode(flashCookie, cookie.Value, &f); err != nil {
		return nil
	}
	return &f
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseForm parses the request body, accepting JSON objects of string values as well as forms.
func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]any
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		values := url.Values{}
		flatten(values, "", body)
		return values, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return r.PostForm, nil
}

// flatten turns nested JSON into dotted form keys, so {"marks": [{"status": "present"}]} becomes
// marks.0.status.
func flatten(values url.Values, prefix string, v any) {
	key := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flatten(values, key(k), child)
		}
	case []any:
		for i, child := range t {
			flatten(values, key(fmt.Sprint(i)), child)
		}
	case nil:
	case float64:
		values.Set(prefix, formatFloat(t))
	default:
		values.Set(prefix, fmt.Sprint(t))
	}
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func pageNumber(r *http.Request) models.Page {
	var n int
	_, _ = fmt.Sscanf(r.URL.Query().Get("page"), "%d", &n)
	return models.Page{Number: n, Size: models.DefaultPageSize}
}
