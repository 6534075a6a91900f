package web

import (
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/actions"
	"github.com/desertthunder/encore/internal/auth"
	"github.com/desertthunder/encore/internal/metrics"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
)

// ScheduleFetcher reads the class timetable.
type ScheduleFetcher interface {
	Fetch(ctx context.Context) (*services.Schedule, error)
}

// Opts wires the dependencies of [App]. Schedule, OAuth, Metrics and Verifier are optional.
type Opts struct {
	Config     *shared.Config
	DB         *sql.DB
	Users      *repositories.UserRepository
	Students   *repositories.StudentRepository
	Attendance *repositories.AttendanceRepository
	Payments   *repositories.PaymentRepository
	Expenses   *repositories.ExpenseRepository
	Accounts   *auth.Accounts
	Sessions   *auth.Sessions
	Actions    *actions.Actions
	Stats      *tasks.StatsEngine
	Reminders  *tasks.Reminders
	Verifier   services.Verifier
	Schedule   ScheduleFetcher
	OAuth      server.OAuthProvider
	Metrics    *metrics.Metrics
	Limiter    *auth.Limiter
	Logger     *log.Logger
}

// App serves the school website, the student dashboard and the admin area.
type App struct {
	cfg        *shared.Config
	db         *sql.DB
	users      *repositories.UserRepository
	students   *repositories.StudentRepository
	attendance *repositories.AttendanceRepository
	payments   *repositories.PaymentRepository
	expenses   *repositories.ExpenseRepository
	accounts   *auth.Accounts
	sessions   *auth.Sessions
	actions    *actions.Actions
	stats      *tasks.StatsEngine
	reminders  *tasks.Reminders
	verifier   services.Verifier
	schedule   ScheduleFetcher
	oauth      server.OAuthProvider
	metrics    *metrics.Metrics
	limiter    *auth.Limiter
	logger     *log.Logger

	pages   map[string]*template.Template
	content map[string]template.HTML
	now     func() time.Time
}

// New parses the embedded templates and content and returns an [App].
func New(opts Opts) (*App, error) {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Limiter == nil {
		opts.Limiter = auth.NewLimiter(opts.Config.Auth.LoginRate, opts.Config.Auth.LoginBurst)
	}

	content, err := renderContent()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:        opts.Config,
		db:         opts.DB,
		users:      opts.Users,
		students:   opts.Students,
		attendance: opts.Attendance,
		payments:   opts.Payments,
		expenses:   opts.Expenses,
		accounts:   opts.Accounts,
		sessions:   opts.Sessions,
		actions:    opts.Actions,
		stats:      opts.Stats,
		reminders:  opts.Reminders,
		verifier:   opts.Verifier,
		schedule:   opts.Schedule,
		oauth:      opts.OAuth,
		metrics:    opts.Metrics,
		limiter:    opts.Limiter,
		logger:     shared.WithLogger(opts.Logger, "component", "web"),
		content:    content,
		now:        time.Now,
	}

	if a.pages, err = a.parsePages(); err != nil {
		return nil, err
	}
	return a, nil
}

// Handler builds the router with every route and middleware.
func (a *App) Handler() http.Handler {
	r := server.NewChiRouter()

	r.Use(
		server.RequestID,
		server.RequestLogger(a.logger),
		server.Recoverer(a.logger),
		a.metrics.Middleware,
		server.CSRF(a.cfg.Auth.CSRFKey, a.cfg.App.BaseURL, http.HandlerFunc(a.csrfFailed)),
		a.sessions.Middleware(a.users),
	)

	r.NotFound(a.notFound)
	r.Mount("/static", http.StripPrefix("/static", http.FileServerFS(staticFS())))

	r.HandleFunc(http.MethodGet, "/health", a.health)
	r.Handle(http.MethodGet, "/metrics", a.metrics.Handler())

	r.HandleFunc(http.MethodGet, "/", a.contentPage("home", ""))
	r.HandleFunc(http.MethodGet, "/about", a.contentPage("about", "About us"))
	r.HandleFunc(http.MethodGet, "/courses", a.contentPage("courses", "Courses"))
	r.HandleFunc(http.MethodGet, "/contact", a.contactForm)
	r.HandleFunc(http.MethodPost, "/contact", a.submitContact)
	r.HandleFunc(http.MethodGet, "/schedule", a.schedulePage)

	r.HandleFunc(http.MethodGet, "/login", a.loginForm)
	r.HandleFunc(http.MethodPost, "/login", a.login)
	r.HandleFunc(http.MethodGet, "/register", a.registerForm)
	r.HandleFunc(http.MethodPost, "/register", a.register)
	r.HandleFunc(http.MethodGet, "/verify", a.verify)
	r.HandleFunc(http.MethodPost, "/verify/resend", a.resendVerification)
	r.HandleFunc(http.MethodPost, "/logout", a.logout)
	if a.oauth != nil {
		r.Handler(server.NewOAuthHandler(a.oauth, a.completeOAuth, a.secureCookies()))
	}

	r.Group(func(r server.Router) {
		r.Use(auth.RequireUser)
		r.Handle(http.MethodGet, "/dashboard", http.HandlerFunc(a.dashboard))
	})

	r.Group(func(r server.Router) {
		r.Use(auth.RequireRole(models.RoleAdmin))
		a.adminRoutes(r)
	})

	return r
}

func (a *App) adminRoutes(r server.Router) {
	get := func(path string, fn http.HandlerFunc) { r.Handle(http.MethodGet, path, fn) }
	post := func(path string, fn http.HandlerFunc) { r.Handle(http.MethodPost, path, fn) }

	get("/admin", a.adminHome)
	get("/admin/stats", a.adminStats)

	get("/admin/students", a.listStudents)
	get("/admin/students/new", a.newStudent)
	post("/admin/students", a.createStudent)
	get("/admin/students/{id}", a.showStudent)
	get("/admin/students/{id}/edit", a.editStudent)
	post("/admin/students/{id}", a.updateStudent)
	post("/admin/students/{id}/toggle", a.toggleStudent)
	post("/admin/students/{id}/delete", a.deleteStudent)

	get("/admin/attendance", a.attendanceSheet)
	post("/admin/attendance", a.markAttendance)
	post("/admin/attendance/batch", a.markAttendanceBatch)
	post("/admin/attendance/{id}/delete", a.deleteAttendance)

	get("/admin/payments", a.listPayments)
	post("/admin/payments", a.createPayment)
	post("/admin/payments/remind", a.sendReminders)
	post("/admin/payments/{id}/paid", a.markPaymentPaid)
	post("/admin/payments/{id}/delete", a.deletePayment)

	get("/admin/expenses", a.listExpenses)
	post("/admin/expenses", a.createExpense)
	get("/admin/expenses/{id}/edit", a.editExpense)
	post("/admin/expenses/{id}", a.updateExpense)
	post("/admin/expenses/{id}/delete", a.deleteExpense)

	get("/admin/users", a.listUsers)
	post("/admin/users/{id}/role", a.setUserRole)

	get("/admin/export/{file}", a.export)
}

// health reports liveness and database reachability.
func (a *App) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "ok"}
	code := http.StatusOK

	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			a.logger.Error("health check failed", "error", err)
			status["status"] = "degraded"
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	a.writeJSON(w, code, status)
}

func (a *App) secureCookies() bool {
	return len(a.cfg.App.BaseURL) > 8 && a.cfg.App.BaseURL[:8] == "https://"
}

func (a *App) school() string {
	if a.cfg.App.Name != "" {
		return a.cfg.App.Name
	}
	return "Encore School of Music"
}

func (a *App) today() time.Time { return shared.DateOnly(a.now()) }

func (a *App) serverError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("request failed", "path", r.URL.Path, "error", err)
	a.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func (a *App) csrfFailed(w http.ResponseWriter, r *http.Request) {
	a.logger.Warn("csrf check failed", "path", r.URL.Path, "reason", fmt.Sprint(server.CSRFFailure(r)))
	a.renderError(w, r, http.StatusForbidden, "Your session expired. Please go back, reload the page and try again.")
}

func (a *App) notFound(w http.ResponseWriter, r *http.Request) {
	a.renderError(w, r, http.StatusNotFound, "We could not find that page.")
}
