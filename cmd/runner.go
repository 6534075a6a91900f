package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/auth"
	"github.com/desertthunder/encore/internal/metrics"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	mailer     services.Mailer
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sql.DB         // opened from Config.Database.Path on first use when nil
	Mailer     services.Mailer // built from Config.Mail on first use when nil
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		mailer:     opts.Mailer,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        time.Now,
	}
}

// SetLogger replaces the logger, e.g. to keep log lines off the TUI.
func (r *Runner) SetLogger(l *log.Logger) { r.logger = l }

// Configure loads the config file named by --config, when it exists, then applies environment overrides and
// the configured log level.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		}
	}

	r.config.ApplyEnv(os.Getenv)
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.App.LogLevel))
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, userCommand, reportCommand, exportCommand, remindCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database returns the shared connection, opening it and applying pending migrations on first use.
func (r *Runner) database(ctx context.Context) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrationsContext(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// Close releases the database connection, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) mail() (services.Mailer, error) {
	if r.mailer != nil {
		return r.mailer, nil
	}
	mailer, err := services.NewMailer(r.config.Mail, r.logger)
	if err != nil {
		return nil, err
	}
	r.mailer = mailer
	return mailer, nil
}

// stores groups the repositories over one connection.
type stores struct {
	users      *repositories.UserRepository
	tokens     *repositories.TokenRepository
	students   *repositories.StudentRepository
	attendance *repositories.AttendanceRepository
	payments   *repositories.PaymentRepository
	expenses   *repositories.ExpenseRepository
}

func (r *Runner) stores(ctx context.Context) (*stores, error) {
	db, err := r.database(ctx)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:      repositories.NewUserRepository(db),
		tokens:     repositories.NewTokenRepository(db),
		students:   repositories.NewStudentRepository(db),
		attendance: repositories.NewAttendanceRepository(db),
		payments:   repositories.NewPaymentRepository(db),
		expenses:   repositories.NewExpenseRepository(db),
	}, nil
}

func (s *stores) stats() *tasks.StatsEngine {
	return tasks.NewStatsEngine(s.students, s.attendance, s.payments, s.expenses)
}

func (r *Runner) accounts(s *stores, sessions *auth.Sessions, mailer services.Mailer) *auth.Accounts {
	return auth.NewAccounts(auth.AccountsOpts{
		Users:           s.users,
		Students:        s.students,
		Tokens:          s.tokens,
		Sessions:        sessions,
		Mailer:          mailer,
		Logger:          shared.WithLogger(r.logger, "component", "accounts"),
		School:          r.config.App.Name,
		BaseURL:         r.config.App.BaseURL,
		VerificationTTL: r.config.Auth.VerificationTTL.Duration,
	})
}

func (r *Runner) reminders(s *stores, mailer services.Mailer, m *metrics.Metrics) *tasks.Reminders {
	return tasks.NewReminders(s.students, s.payments, mailer, m,
		shared.WithLogger(r.logger, "component", "reminders"), r.config.App.Name, r.config.App.Currency)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
