// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and path resolution

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
database:
  driver: "sqlite"
  path: "./test.db"

answerer:
  provider: "http"
  base_url: "http://answers.internal:8081"
  timeout: "45s"
  jwt_secret: "shared"
  requests_per_second: 2.5

server:
  http_addr: "0.0.0.0:9090"
  jwt_secret: "shared"
  dedupe_ttl: "2m"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Answerer.BaseURL != "http://answers.internal:8081" {
		t.Errorf("Answerer.BaseURL = %q", cfg.Answerer.BaseURL)
	}
	if cfg.Answerer.Timeout != 45*time.Second {
		t.Errorf("Answerer.Timeout = %v, want 45s", cfg.Answerer.Timeout)
	}
	if cfg.Answerer.RequestsPerSecond != 2.5 {
		t.Errorf("Answerer.RequestsPerSecond = %v, want 2.5", cfg.Answerer.RequestsPerSecond)
	}
	if cfg.Server.HTTPAddr != "0.0.0.0:9090" {
		t.Errorf("Server.HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.DedupeTTL != 2*time.Minute {
		t.Errorf("Server.DedupeTTL = %v, want 2m", cfg.Server.DedupeTTL)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_TOMLConfig(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[database]
driver = "bolt"
path = "/var/lib/ragchat/chat.db"

[answerer]
provider = "openai"
timeout = "30s"

[answerer.openai]
api_key = "sk-test"
model = "gpt-4o-mini"

[logging]
level = "warn"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/ragchat/chat.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Answerer.Provider != "openai" {
		t.Errorf("Answerer.Provider = %q, want openai", cfg.Answerer.Provider)
	}
	if cfg.Answerer.OpenAI.APIKey != "sk-test" || cfg.Answerer.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("Answerer.OpenAI = %+v", cfg.Answerer.OpenAI)
	}
	if cfg.Answerer.Timeout != 30*time.Second {
		t.Errorf("Answerer.Timeout = %v, want 30s", cfg.Answerer.Timeout)
	}
	if cfg.Answerer.BaseURL != "" {
		t.Errorf("openai provider should not get the http default base url, got %q", cfg.Answerer.BaseURL)
	}
	if cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, DefaultLogFormat)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	configPath := writeConfig(t, "config.yaml", "logging:\n  level: info\n")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != DefaultDatabaseDriver {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DefaultDatabaseDriver)
	}
	if want := filepath.Join("/data", "ragchat", "chat.db"); cfg.Database.Path != want {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, want)
	}
	if cfg.Answerer.Provider != DefaultProvider || cfg.Answerer.BaseURL != DefaultBaseURL {
		t.Errorf("Answerer = %+v", cfg.Answerer)
	}
	if cfg.Answerer.Timeout != DefaultAnswerTimeout {
		t.Errorf("Answerer.Timeout = %v, want %v", cfg.Answerer.Timeout, DefaultAnswerTimeout)
	}
	if cfg.Server.HTTPAddr != DefaultHTTPAddr || cfg.Server.DedupeTTL != DefaultDedupeTTL {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/custom/path/chat.db")
	t.Setenv("TEST_JWT_SECRET", "s3cret")

	configPath := writeConfig(t, "config.yaml", `
database:
  path: "${TEST_DB_PATH}"
answerer:
  jwt_secret: "${TEST_JWT_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/custom/path/chat.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path/chat.db")
	}
	if cfg.Answerer.JWTSecret != "s3cret" {
		t.Errorf("Answerer.JWTSecret = %q, want %q", cfg.Answerer.JWTSecret, "s3cret")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", "database:\n  path: [unclosed\n")

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", "[database\npath = 1\n")

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{name: "answerer timeout", content: "answerer:\n  timeout: \"soon\"\n", field: "answerer.timeout"},
		{name: "dedupe ttl", content: "server:\n  dedupe_ttl: \"10 minutes\"\n", field: "server.dedupe_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, "config.yaml", tt.content)
			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Load() expected error for invalid duration, got nil")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should name %s", err, tt.field)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Database.Path = "./test.db"
		return *cfg
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		wantErrSubstr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:          "unknown driver",
			mutate:        func(c *Config) { c.Database.Driver = "postgres" },
			wantErrSubstr: "database.driver",
		},
		{
			name:          "empty database path",
			mutate:        func(c *Config) { c.Database.Path = "" },
			wantErrSubstr: "database.path is required",
		},
		{
			name:          "unknown provider",
			mutate:        func(c *Config) { c.Answerer.Provider = "grpc" },
			wantErrSubstr: "answerer.provider",
		},
		{
			name:          "http provider needs base url",
			mutate:        func(c *Config) { c.Answerer.BaseURL = "" },
			wantErrSubstr: "answerer.base_url is required",
		},
		{
			name:          "openai provider needs api key",
			mutate:        func(c *Config) { c.Answerer.Provider = "openai" },
			wantErrSubstr: "answerer.openai.api_key is required",
		},
		{
			name: "openai provider with api key",
			mutate: func(c *Config) {
				c.Answerer.Provider = "openai"
				c.Answerer.OpenAI.APIKey = "sk-test"
			},
		},
		{
			name:          "negative rate",
			mutate:        func(c *Config) { c.Answerer.RequestsPerSecond = -1 },
			wantErrSubstr: "requests_per_second",
		},
		{
			name:          "unknown log level",
			mutate:        func(c *Config) { c.Logging.Level = "verbose" },
			wantErrSubstr: "logging.level",
		},
		{
			name:          "unknown log format",
			mutate:        func(c *Config) { c.Logging.Format = "xml" },
			wantErrSubstr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErrSubstr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErrSubstr)
			}
			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantErrSubstr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("explicit path wins over env", func(t *testing.T) {
		explicit := writeConfig(t, "explicit.yaml", "database:\n  path: explicit.db\n")
		fromEnv := writeConfig(t, "env.yaml", "database:\n  path: env.db\n")
		t.Setenv(EnvConfigPath, fromEnv)

		cfg, path, err := Resolve(explicit)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if path != explicit || cfg.Database.Path != "explicit.db" {
			t.Errorf("Resolve() = (%q, %q), want explicit file", path, cfg.Database.Path)
		}
	})

	t.Run("env path used without flag", func(t *testing.T) {
		fromEnv := writeConfig(t, "env.yaml", "database:\n  path: env.db\n")
		t.Setenv(EnvConfigPath, fromEnv)

		cfg, _, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if cfg.Database.Path != "env.db" {
			t.Errorf("Database.Path = %q, want env.db", cfg.Database.Path)
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		if _, _, err := Resolve(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Resolve() expected error for missing explicit file")
		}
	})

	t.Run("missing default file yields defaults", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, path, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if path != "" {
			t.Errorf("path = %q, want empty for defaults", path)
		}
		if cfg.Answerer.Provider != DefaultProvider {
			t.Errorf("Answerer.Provider = %q, want default", cfg.Answerer.Provider)
		}
	})

	t.Run("default file is read when present", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		dir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", dir)
		if err := os.MkdirAll(filepath.Join(dir, "ragchat"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "ragchat", "config.yaml"), []byte("logging:\n  level: error\n"), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, path, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if path != DefaultPath() || cfg.Logging.Level != "error" {
			t.Errorf("Resolve() = (%q, %q)", path, cfg.Logging.Level)
		}
	})
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single env var", input: "${FOO}", expected: "bar"},
		{name: "env var with surrounding text", input: "prefix-${FOO}-suffix", expected: "prefix-bar-suffix"},
		{name: "multiple env vars", input: "${FOO}/${BAZ}", expected: "bar/qux"},
		{name: "no env vars", input: "no-vars-here", expected: "no-vars-here"},
		{name: "unset env var", input: "${UNSET_VAR}", expected: ""},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
