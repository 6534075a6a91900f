package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// defaultSecret is the placeholder shipped in config.example.toml.
const defaultSecret = "change-me-in-production"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	App       AppConfig       `toml:"app"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Mail      MailConfig      `toml:"mail"`
	Recaptcha RecaptchaConfig `toml:"recaptcha"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Reminders RemindersConfig `toml:"reminders"`
}

// AppConfig contains site-wide settings.
type AppConfig struct {
	Name     string `toml:"name"`
	BaseURL  string `toml:"base_url"`
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	Currency string `toml:"currency"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig contains session, token and OAuth settings.
type AuthConfig struct {
	Secret          string      `toml:"secret"`
	CSRFKey         string      `toml:"csrf_key"`
	SessionTTL      Duration    `toml:"session_ttl"`
	VerificationTTL Duration    `toml:"verification_ttl"`
	LoginRate       float64     `toml:"login_rate"`
	LoginBurst      int         `toml:"login_burst"`
	Google          OAuthConfig `toml:"google"`
}

// OAuthConfig contains OAuth2 client credentials.
type OAuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// Enabled reports whether both client credentials are present.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

// MailConfig contains transactional email settings.
type MailConfig struct {
	Provider     string `toml:"provider"`
	APIKey       string `toml:"api_key"`
	FromName     string `toml:"from_name"`
	FromEmail    string `toml:"from_email"`
	ContactEmail string `toml:"contact_email"`
}

// RecaptchaConfig contains reCAPTCHA keys for the contact form.
type RecaptchaConfig struct {
	SiteKey   string  `toml:"site_key"`
	SecretKey string  `toml:"secret_key"`
	VerifyURL string  `toml:"verify_url"`
	MinScore  float64 `toml:"min_score"`
}

// ScheduleConfig points the schedule page at a spreadsheet.
type ScheduleConfig struct {
	EmbedURL        string `toml:"embed_url"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	Range           string `toml:"range"`
	CredentialsFile string `toml:"credentials_file"`
}

// RemindersConfig tunes the fee reminder worker pool.
type RemindersConfig struct {
	Workers int     `toml:"workers"`
	Rate    float64 `toml:"rate"`
}

// Duration wraps [time.Duration] so TOML values like "24h" decode directly.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays values from environment variables onto the config.
//
// getenv is usually [os.Getenv]; tests pass a map lookup.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Database.Path, "DATABASE_URL")
	set(&c.Auth.Secret, "AUTH_SECRET")
	set(&c.Auth.CSRFKey, "CSRF_KEY")
	set(&c.Auth.Google.ClientID, "AUTH_GOOGLE_ID")
	set(&c.Auth.Google.ClientSecret, "AUTH_GOOGLE_SECRET")
	set(&c.Mail.APIKey, "SENDGRID_API_KEY")
	set(&c.Recaptcha.SiteKey, "RECAPTCHA_SITE_KEY")
	set(&c.Recaptcha.SecretKey, "RECAPTCHA_SECRET_KEY")
	set(&c.Schedule.SpreadsheetID, "SCHEDULE_SHEET_ID")
	set(&c.Schedule.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	set(&c.App.BaseURL, "BASE_URL")
	set(&c.App.Env, "APP_ENV")

	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	// A SendGrid key upgrades the default log mailer; MAIL_PROVIDER wins when set.
	if c.Mail.APIKey != "" && (c.Mail.Provider == "" || c.Mail.Provider == "log") {
		c.Mail.Provider = "sendgrid"
	}
	set(&c.Mail.Provider, "MAIL_PROVIDER")
}

// IsProduction reports whether the app runs with env = "production".
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Validate checks settings that would make the server unsafe or unusable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("%w: auth.secret is required", ErrMissingCredentials)
	}
	if c.IsProduction() {
		if c.Auth.Secret == defaultSecret || len(c.Auth.Secret) < 32 {
			return fmt.Errorf("%w: auth.secret must be a unique value of at least 32 characters", ErrInvalidConfig)
		}
		if len(c.Auth.CSRFKey) != 32 {
			return fmt.Errorf("%w: auth.csrf_key must be 32 bytes in production", ErrInvalidConfig)
		}
	}
	switch c.Mail.Provider {
	case "", "log":
	case "sendgrid":
		if c.Mail.APIKey == "" {
			return fmt.Errorf("%w: mail.api_key is required for sendgrid", ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("%w: unknown mail.provider %q", ErrInvalidConfig, c.Mail.Provider)
	}
	return nil
}
