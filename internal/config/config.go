// ABOUTME: Configuration loading and parsing for ragchat
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config location.
const EnvConfigPath = "RAGCHAT_CONFIG"

// Defaults applied to fields the file leaves empty.
const (
	DefaultDatabaseDriver = "bolt"
	DefaultProvider       = "http"
	DefaultBaseURL        = "http://localhost:8081"
	DefaultAnswerTimeout  = 60 * time.Second
	DefaultHTTPAddr       = "localhost:8081"
	DefaultDedupeTTL      = 10 * time.Minute
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config represents the complete ragchat configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Answerer AnswererConfig `yaml:"answerer" toml:"answerer"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // bolt, sqlite, or sqlite3
	Path   string `yaml:"path" toml:"path"`
}

// AnswererConfig selects and configures the remote answer service
type AnswererConfig struct {
	Provider          string       `yaml:"provider" toml:"provider"` // http or openai
	BaseURL           string       `yaml:"base_url" toml:"base_url"`
	JWTSecret         string       `yaml:"jwt_secret" toml:"jwt_secret"`
	RequestsPerSecond float64      `yaml:"requests_per_second" toml:"requests_per_second"`
	OpenAI            OpenAIConfig `yaml:"openai" toml:"openai"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// OpenAIConfig holds settings for the openai provider
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" toml:"api_key"`
	Model   string `yaml:"model" toml:"model"`
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// ServerConfig holds settings for the local answer service
type ServerConfig struct {
	HTTPAddr  string `yaml:"http_addr" toml:"http_addr"`
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`

	DedupeTTL    time.Duration `yaml:"-" toml:"-"`
	DedupeTTLRaw string        `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Resolve picks the config file to load: the explicit path, else
// $RAGCHAT_CONFIG, else the default location. A missing file at the default
// location yields Default(); a missing explicit file is an error.
func Resolve(explicit string) (*Config, string, error) {
	path := explicit
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}

	path = DefaultPath()
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), "", nil
	}
	return cfg, path, err
}

// DefaultPath is $XDG_CONFIG_HOME/ragchat/config.yaml, falling back to ~/.config.
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "ragchat", "config.yaml")
}

// DefaultDatabasePath is $XDG_DATA_HOME/ragchat/chat.db, falling back to ~/.local/share.
func DefaultDatabasePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "ragchat", "chat.db")
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDatabaseDriver
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath()
	}
	if cfg.Answerer.Provider == "" {
		cfg.Answerer.Provider = DefaultProvider
	}
	if cfg.Answerer.BaseURL == "" && cfg.Answerer.Provider == DefaultProvider {
		cfg.Answerer.BaseURL = DefaultBaseURL
	}
	if cfg.Answerer.Timeout == 0 {
		cfg.Answerer.Timeout = DefaultAnswerTimeout
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Server.DedupeTTL == 0 {
		cfg.Server.DedupeTTL = DefaultDedupeTTL
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "bolt", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be bolt, sqlite, or sqlite3, got %q", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Answerer.Provider {
	case "http":
		if c.Answerer.BaseURL == "" {
			return fmt.Errorf("answerer.base_url is required for the http provider")
		}
	case "openai":
		if c.Answerer.OpenAI.APIKey == "" {
			return fmt.Errorf("answerer.openai.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("answerer.provider must be http or openai, got %q", c.Answerer.Provider)
	}
	if c.Answerer.Timeout < 0 {
		return fmt.Errorf("answerer.timeout must not be negative")
	}
	if c.Answerer.RequestsPerSecond < 0 {
		return fmt.Errorf("answerer.requests_per_second must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Answerer.TimeoutRaw != "" {
		cfg.Answerer.Timeout, err = time.ParseDuration(cfg.Answerer.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing answerer.timeout %q: %w", cfg.Answerer.TimeoutRaw, err)
		}
	}

	if cfg.Server.DedupeTTLRaw != "" {
		cfg.Server.DedupeTTL, err = time.ParseDuration(cfg.Server.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing server.dedupe_ttl %q: %w", cfg.Server.DedupeTTLRaw, err)
		}
	}

	return nil
}
