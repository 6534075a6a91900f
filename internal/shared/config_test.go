package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./encore.db" {
			t.Errorf("expected database path ./encore.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Auth.SessionTTL.Duration != 24*time.Hour {
			t.Errorf("expected session ttl 24h, got %v", config.Auth.SessionTTL)
		}

		if config.Auth.VerificationTTL.Duration != time.Hour {
			t.Errorf("expected verification ttl 1h, got %v", config.Auth.VerificationTTL)
		}

		if config.Mail.Provider != "log" {
			t.Errorf("expected mail provider log, got %s", config.Mail.Provider)
		}

		if config.Server.Addr() != "127.0.0.1:3000" {
			t.Errorf("unexpected addr %s", config.Server.Addr())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20

[server]
host = "0.0.0.0"
port = 8080
shutdown_timeout = "3s"

[auth.google]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Server.ShutdownTimeout.Duration != 3*time.Second {
			t.Errorf("expected shutdown timeout 3s, got %v", config.Server.ShutdownTimeout)
		}

		if !config.Auth.Google.Enabled() {
			t.Error("expected google oauth to be enabled")
		}

		if config.Database.MaxIdleConns != DefaultConfig().Database.MaxIdleConns {
			t.Error("expected unspecified values to keep their defaults")
		}
	})

	t.Run("LoadConfig With Bad Duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[auth]\nsession_ttl = \"forever\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"DATABASE_URL":       "file:prod.db",
			"AUTH_SECRET":        "from-env",
			"AUTH_GOOGLE_ID":     "gid",
			"AUTH_GOOGLE_SECRET": "gsecret",
			"SENDGRID_API_KEY":   "SG.key",
			"RECAPTCHA_SITE_KEY": "site",
			"PORT":               "9090",
		}

		config := DefaultConfig()
		config.Mail.Provider = ""
		config.ApplyEnv(func(k string) string { return env[k] })

		if config.Database.Path != "file:prod.db" {
			t.Errorf("expected DATABASE_URL to override path, got %s", config.Database.Path)
		}
		if config.Auth.Secret != "from-env" {
			t.Errorf("expected AUTH_SECRET to override secret, got %s", config.Auth.Secret)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected PORT to override port, got %d", config.Server.Port)
		}
		if config.Mail.Provider != "sendgrid" {
			t.Errorf("expected sendgrid provider when api key set, got %s", config.Mail.Provider)
		}
		if config.Recaptcha.SiteKey != "site" {
			t.Errorf("expected recaptcha site key, got %s", config.Recaptcha.SiteKey)
		}
		if !config.Auth.Google.Enabled() {
			t.Error("expected google oauth to be enabled from env")
		}
	})

	t.Run("ApplyEnv Mail Provider", func(t *testing.T) {
		tc := []struct {
			name     string
			provider string
			env      map[string]string
			want     string
		}{
			{name: "default stays log without key", provider: "log", env: map[string]string{}, want: "log"},
			{name: "key upgrades default log", provider: "log", env: map[string]string{"SENDGRID_API_KEY": "SG.key"}, want: "sendgrid"},
			{name: "key upgrades empty provider", provider: "", env: map[string]string{"SENDGRID_API_KEY": "SG.key"}, want: "sendgrid"},
			{
				name:     "explicit override wins",
				provider: "log",
				env:      map[string]string{"SENDGRID_API_KEY": "SG.key", "MAIL_PROVIDER": "log"},
				want:     "log",
			},
			{name: "override without key", provider: "log", env: map[string]string{"MAIL_PROVIDER": "sendgrid"}, want: "sendgrid"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				config.Mail.Provider = tt.provider
				config.ApplyEnv(func(k string) string { return tt.env[k] })

				if config.Mail.Provider != tt.want {
					t.Errorf("expected provider %q, got %q", tt.want, config.Mail.Provider)
				}
			})
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name    string
			mutate  func(c *Config)
			wantErr error
		}{
			{name: "defaults are valid", mutate: func(c *Config) {}},
			{name: "missing secret", mutate: func(c *Config) { c.Auth.Secret = "" }, wantErr: ErrMissingCredentials},
			{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: ErrInvalidConfig},
			{
				name:    "production with default secret",
				mutate:  func(c *Config) { c.App.Env = "production" },
				wantErr: ErrInvalidConfig,
			},
			{
				name: "production with strong secrets",
				mutate: func(c *Config) {
					c.App.Env = "production"
					c.Auth.Secret = "0123456789abcdef0123456789abcdef-extra"
					c.Auth.CSRFKey = "0123456789abcdef0123456789abcdef"
				},
			},
			{
				name:    "sendgrid without key",
				mutate:  func(c *Config) { c.Mail.Provider = "sendgrid" },
				wantErr: ErrMissingCredentials,
			},
			{name: "unknown provider", mutate: func(c *Config) { c.Mail.Provider = "pigeon" }, wantErr: ErrInvalidConfig},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)

				err := config.Validate()
				if tt.wantErr == nil && err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})
}
