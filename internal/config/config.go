package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort      = 8080
	DefaultDatabasePath  = "trailguard.db"
	DefaultAuditPath     = "audit.log"
	DefaultDispatchQueue = 256
	DefaultWorkers       = 4
)

// Config holds the configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the ingestion API, query API, dashboard feed and
	// metrics endpoint listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures API key authentication on the HTTP API.
	Auth AuthConfig `yaml:"auth"`

	// Database configures the SQLite evidence store.
	Database DatabaseConfig `yaml:"database"`

	// Audit configures the append-only batch audit log.
	Audit AuditConfig `yaml:"audit"`

	// Dispatch controls the background notification worker pool.
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Admin lists the notification recipients.
	Admin AdminConfig `yaml:"admin"`

	// SeverityActions overrides the built-in severity-to-actions table.
	// Keys are severity levels; values are ordered action names.
	SeverityActions map[string][]string `yaml:"severity_actions"`

	// Webhook configures the webhook notification channel.
	Webhook WebhookConfig `yaml:"webhook"`

	// Email configures the SMTP notification channel.
	Email EmailConfig `yaml:"email"`

	// SMS configures the SMS notification channel.
	SMS SMSConfig `yaml:"sms"`
}

// AuthConfig controls client authentication on the HTTP API.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header the key is read from. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// DatabaseConfig locates the SQLite evidence store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuditConfig locates the append-only audit log file.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// DispatchConfig controls the notification worker pool.
type DispatchConfig struct {
	// Workers is the number of background dispatch workers (default 4).
	Workers int `yaml:"workers"`

	// QueueSize is the dispatch queue depth (default 256). When the queue is
	// full, new dispatch jobs are dropped with a warning rather than blocking
	// the ingestion path.
	QueueSize int `yaml:"queue_size"`
}

// AdminConfig lists notification recipients.
type AdminConfig struct {
	// Emails receive one message per email-dispatched alert.
	Emails []string `yaml:"emails"`

	// Phones are SMS recipients in E.164 form, attempted independently.
	Phones []string `yaml:"phones"`
}

// WebhookConfig defines the webhook delivery target.
type WebhookConfig struct {
	// URLEnv is the name of the environment variable that holds the webhook
	// URL. An unset or empty variable disables the channel.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// EmailConfig holds SMTP settings. The channel is skipped with a warning
// when the sender, credentials, or host are absent.
type EmailConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// From is the sender address.
	From string `yaml:"from"`

	// UserEnv and PasswordEnv name the environment variables holding the
	// SMTP credentials.
	UserEnv     string `yaml:"user_env"`
	PasswordEnv string `yaml:"password_env"`
}

// User returns the SMTP username resolved from the environment.
func (e EmailConfig) User() string {
	if e.UserEnv == "" {
		return ""
	}
	return os.Getenv(e.UserEnv)
}

// Password returns the SMTP password resolved from the environment.
func (e EmailConfig) Password() string {
	if e.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(e.PasswordEnv)
}

// SMSConfig holds SMS provider settings. The channel is skipped with a
// warning when any credential is absent.
type SMSConfig struct {
	// AccountSIDEnv and AuthTokenEnv name the environment variables holding
	// the provider credentials.
	AccountSIDEnv string `yaml:"account_sid_env"`
	AuthTokenEnv  string `yaml:"auth_token_env"`

	// From is the provider-assigned sender number.
	From string `yaml:"from"`

	// APIBase overrides the provider API base URL (regional endpoints,
	// test doubles). Empty means the provider default.
	APIBase string `yaml:"api_base"`
}

// AccountSID returns the provider account SID resolved from the environment.
func (s SMSConfig) AccountSID() string {
	if s.AccountSIDEnv == "" {
		return ""
	}
	return os.Getenv(s.AccountSIDEnv)
}

// AuthToken returns the provider auth token resolved from the environment.
func (s SMSConfig) AuthToken() string {
	if s.AuthTokenEnv == "" {
		return ""
	}
	return os.Getenv(s.AuthTokenEnv)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Database: DatabaseConfig{Path: DefaultDatabasePath},
			Audit:    AuditConfig{Path: DefaultAuditPath},
			Dispatch: DispatchConfig{
				Workers:   DefaultWorkers,
				QueueSize: DefaultDispatchQueue,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Database.Path == "" {
		return fmt.Errorf("server.database.path must not be empty")
	}
	if cfg.Server.Audit.Path == "" {
		return fmt.Errorf("server.audit.path must not be empty")
	}
	if cfg.Server.Dispatch.Workers <= 0 {
		return fmt.Errorf("server.dispatch.workers must be positive")
	}
	if cfg.Server.Dispatch.QueueSize <= 0 {
		return fmt.Errorf("server.dispatch.queue_size must be positive")
	}
	if cfg.Server.Email.Port < 0 || cfg.Server.Email.Port > 65535 {
		return fmt.Errorf("server.email.port %d is out of range [0, 65535]", cfg.Server.Email.Port)
	}
	return nil
}
