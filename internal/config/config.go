// ABOUTME: Configuration loading and parsing for kartos
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete kartos configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr     string   `yaml:"http_addr"`
	CORSOrigins  []string `yaml:"cors_origins"`
	CookieSecure bool     `yaml:"cookie_secure"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds admin authentication configuration.
// Mode selects the credential transport: "token" issues signed bearer tokens,
// "session" issues opaque cookie-backed sessions.
type AuthConfig struct {
	Mode            string   `yaml:"mode"`
	SigningSecret   string   `yaml:"signing_secret"`
	AllowedAdminIDs []string `yaml:"allowed_admin_ids"`
	// Visibility controls which groups unauthenticated listings show:
	// "all" (default) or "owned".
	Visibility       string `yaml:"visibility"`
	SSHAuthorizedKey string `yaml:"ssh_authorized_key"`
	SSHAdminID       string `yaml:"ssh_admin_id"`

	TokenTTL   time.Duration `yaml:"-"`
	SessionTTL time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TokenTTLRaw   string `yaml:"token_ttl"`
	SessionTTLRaw string `yaml:"session_ttl"`
}

// TelegramConfig holds Telegram bot and login verification configuration
type TelegramConfig struct {
	BotToken   string `yaml:"bot_token"`
	MiniAppURL string `yaml:"mini_app_url"`

	InitDataMaxAge time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	InitDataMaxAgeRaw string `yaml:"init_data_max_age"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Auth.Mode {
	case "", "token":
		if c.Auth.SigningSecret == "" {
			return fmt.Errorf("auth.signing_secret is required in token mode")
		}
	case "session":
		// Sessions are opaque and process-local; no signing secret needed.
	default:
		return fmt.Errorf("auth.mode must be \"token\" or \"session\", got %q", c.Auth.Mode)
	}

	switch c.Auth.Visibility {
	case "", "all", "owned":
	default:
		return fmt.Errorf("auth.visibility must be \"all\" or \"owned\", got %q", c.Auth.Visibility)
	}

	if c.Auth.SSHAuthorizedKey != "" && c.Auth.SSHAdminID == "" {
		return fmt.Errorf("auth.ssh_admin_id is required when auth.ssh_authorized_key is set")
	}

	return nil
}

// Mode returns the effective auth mode, defaulting to "token".
func (c *Config) Mode() string {
	if c.Auth.Mode == "" {
		return "token"
	}
	return c.Auth.Mode
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.Auth.SessionTTLRaw != "" {
		cfg.Auth.SessionTTL, err = time.ParseDuration(cfg.Auth.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Auth.SessionTTLRaw, err)
		}
	}

	if cfg.Telegram.InitDataMaxAgeRaw != "" {
		cfg.Telegram.InitDataMaxAge, err = time.ParseDuration(cfg.Telegram.InitDataMaxAgeRaw)
		if err != nil {
			return fmt.Errorf("parsing init_data_max_age %q: %w", cfg.Telegram.InitDataMaxAgeRaw, err)
		}
	}

	return nil
}
