package main

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/desertthunder/encore/internal/actions"
	"github.com/desertthunder/encore/internal/auth"
	"github.com/desertthunder/encore/internal/metrics"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/web"
	"github.com/urfave/cli/v3"
)

// limiterPruneInterval is how often idle rate-limit buckets are dropped.
const limiterPruneInterval = 10 * time.Minute

// Serve wires the web application and runs the HTTP server until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = port
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	app, err := r.buildApp(ctx)
	if err != nil {
		return err
	}

	srv := server.New(r.config.Server, app.Handler(), shared.WithLogger(r.logger, "component", "server"))

	if cmd.Bool("open") {
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := shared.OpenBrowser(browserURL(srv.Addr())); err != nil {
				r.logger.Warn("could not open browser", "error", err)
			}
		}()
	}

	r.logger.Info("starting encore", "addr", srv.Addr(), "env", r.config.App.Env)
	return srv.Run(ctx)
}

// buildApp connects every service the web application depends on. Optional integrations (Google sign-in,
// the schedule spreadsheet, reCAPTCHA) are skipped when unconfigured.
func (r *Runner) buildApp(ctx context.Context) (*web.App, error) {
	s, err := r.stores(ctx)
	if err != nil {
		return nil, err
	}

	mailer, err := r.mail()
	if err != nil {
		return nil, err
	}

	cfg := r.config
	m := metrics.New()
	secure := strings.HasPrefix(cfg.App.BaseURL, "https://")
	sessions := auth.NewSessions(cfg.Auth.Secret, cfg.Auth.SessionTTL.Duration, secure)
	verifier := services.NewRecaptcha(cfg.Recaptcha, r.httpClient)

	limiter := auth.NewLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst)
	go limiter.Run(ctx, limiterPruneInterval)

	opts := web.Opts{
		Config:     cfg,
		DB:         r.db,
		Users:      s.users,
		Students:   s.students,
		Attendance: s.attendance,
		Payments:   s.payments,
		Expenses:   s.expenses,
		Accounts:   r.accounts(s, sessions, mailer),
		Sessions:   sessions,
		Actions: actions.New(actions.Opts{
			Users:        s.users,
			Students:     s.students,
			Attendance:   s.attendance,
			Payments:     s.payments,
			Expenses:     s.expenses,
			Mailer:       mailer,
			Verifier:     verifier,
			Metrics:      m,
			Logger:       shared.WithLogger(r.logger, "component", "actions"),
			School:       cfg.App.Name,
			ContactEmail: cfg.Mail.ContactEmail,
		}),
		Stats:     s.stats(),
		Reminders: r.reminders(s, mailer, m),
		Verifier:  verifier,
		Metrics:   m,
		Limiter:   limiter,
		Logger:    r.logger,
	}

	if cfg.Auth.Google.Enabled() {
		provider, err := services.NewGoogleProvider(cfg.Auth.Google)
		if err != nil {
			return nil, err
		}
		opts.OAuth = provider
		r.logger.Info("google sign-in enabled")
	}

	if cfg.Schedule.SpreadsheetID != "" {
		source, err := services.NewScheduleSource(ctx, cfg.Schedule)
		if err != nil {
			r.logger.Warn("schedule spreadsheet unavailable, using embed", "error", err)
		} else {
			opts.Schedule = source
		}
	}

	app, err := web.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build web app: %w", err)
	}
	return app, nil
}

// browserURL turns a listen address into a URL a browser can open.
func browserURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
