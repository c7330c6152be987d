package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Dataset sources understood by the telemetry loader.
const (
	SourceJSON   = "json"
	SourceSQLite = "sqlite"
)

// Default values for the configuration.
const (
	DefaultHTTPPort        = 8080
	DefaultDatasetPath     = "q-vercel-latency.json"
	DefaultTable           = "telemetry"
	DefaultMetricsPath     = "/metrics"
	DefaultMaxBodyBytes    = 1 << 20
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the service configuration parsed from config.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Dataset DatasetConfig `yaml:"dataset"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the metrics endpoint listens on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Routes lists the paths that accept POST metrics requests.
	// Defaults to "/" and "/api".
	Routes []string `yaml:"routes"`

	// MetricsPath is where the Prometheus exposition is served. Empty disables it.
	MetricsPath string `yaml:"metrics_path"`

	// MaxBodyBytes caps the request body size (default 1 MiB).
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	CORS CORSConfig `yaml:"cors"`
	Auth AuthConfig `yaml:"auth"`
}

// CORSConfig controls the CORS headers emitted on every route.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AuthConfig controls client authentication on the metrics routes.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "X-API-Key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "X-API-Key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// DatasetConfig describes where the telemetry fixture is loaded from.
type DatasetConfig struct {
	// Source is one of: json | sqlite.
	Source string `yaml:"source"`

	// Path is the JSON file or SQLite database file.
	Path string `yaml:"path"`

	// Table is the SQLite table name (sqlite source only, default "telemetry").
	Table string `yaml:"table"`
}

// EffectiveTable returns the configured table, or the default "telemetry".
func (d DatasetConfig) EffectiveTable() string {
	if d.Table != "" {
		return d.Table
	}
	return DefaultTable
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`

	// File, when set, sends logs to a rotating file instead of stdout.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Load reads and parses the config file at path. An empty path yields the
// defaults. Environment overrides are applied after the file, then the
// result is validated.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: file %q not found: %w", path, err)
			}
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        DefaultHTTPPort,
			Routes:          []string{"/", "/api"},
			MetricsPath:     DefaultMetricsPath,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"POST", "OPTIONS"},
				AllowedHeaders: []string{"*"},
			},
			Auth: AuthConfig{Mode: "none"},
		},
		Dataset: DatasetConfig{
			Source: SourceJSON,
			Path:   DefaultDatasetPath,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REGIONMETRICS_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = port
		}
	}
	if v := os.Getenv("REGIONMETRICS_DATASET_SOURCE"); v != "" {
		cfg.Dataset.Source = strings.ToLower(v)
	}
	if v := os.Getenv("REGIONMETRICS_DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("REGIONMETRICS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("REGIONMETRICS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if len(cfg.Server.Routes) == 0 {
		return fmt.Errorf("server.routes must list at least one path")
	}
	for _, r := range cfg.Server.Routes {
		if !strings.HasPrefix(r, "/") {
			return fmt.Errorf("server.routes: %q must start with /", r)
		}
		if r == cfg.Server.MetricsPath || r == "/healthz" {
			return fmt.Errorf("server.routes: %q collides with a built-in endpoint", r)
		}
	}
	if cfg.Server.MetricsPath != "" && !strings.HasPrefix(cfg.Server.MetricsPath, "/") {
		return fmt.Errorf("server.metrics_path %q must start with /", cfg.Server.MetricsPath)
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey":
		if cfg.Server.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required when auth.mode is apikey")
		}
		if cfg.Server.Auth.Key() == "" {
			return fmt.Errorf("server.auth: environment variable %s is unset or empty", cfg.Server.Auth.KeyEnv)
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	switch cfg.Dataset.Source {
	case SourceJSON, SourceSQLite:
	default:
		return fmt.Errorf("dataset.source %q unknown: want json|sqlite", cfg.Dataset.Source)
	}
	if cfg.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q unknown: want debug|info|warn|error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q unknown: want json|text", cfg.Logging.Format)
	}
	return nil
}
