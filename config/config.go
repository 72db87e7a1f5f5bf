// Package config loads runtime configuration from defaults, a YAML file, a
// .env file, and HORIZONS_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr          = "127.0.0.1:8080"
	defaultShutdownTimeout   = 5 * time.Second
	defaultRequestTimeout    = 2 * time.Minute
	defaultMaxBodyBytes      = 1 << 20
	defaultLogFormat         = LogFormatText
	defaultLogLevel          = "info"
	defaultAPIKeyEnvVar      = "GOOGLE_API_KEY"
	defaultModel             = "gemini-1.5-flash-latest"
	defaultModelTimeout      = 60 * time.Second
	defaultModelMaxAttempts  = 2
	defaultCalendarBackend   = BackendMemory
	defaultProjectsBackend   = BackendMemory
	defaultSQLiteFile        = "horizons.db"
	defaultImportAttempts    = 3
	defaultImportTimeout     = 2 * time.Minute
	defaultEnvFile           = ".env"
	defaultConfigFileRelPath = "horizons/config.yaml"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Backend selects a collaborator implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendGoogle Backend = "google"
	BackendSQLite Backend = "sqlite"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	AI       AIConfig       `yaml:"ai"`
	Calendar CalendarConfig `yaml:"calendar"`
	Projects ProjectsConfig `yaml:"projects"`
	Import   ImportConfig   `yaml:"import"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	// AuthToken enables bearer authentication when set.
	AuthToken string `yaml:"auth_token"`
}

type LogConfig struct {
	Level  string    `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

type AIConfig struct {
	APIKey       string `yaml:"api_key"`
	APIKeyEnvVar string `yaml:"api_key_env_var"`
	Model        string `yaml:"model"`
	// Timeout bounds a single model call.
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	// RequestsPerMinute throttles model calls. Zero disables throttling.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type CalendarConfig struct {
	Backend         Backend `yaml:"backend"`
	CredentialsFile string  `yaml:"credentials_file"`
	TokenFile       string  `yaml:"token_file"`
}

type ProjectsConfig struct {
	Backend    Backend `yaml:"backend"`
	SQLitePath string  `yaml:"sqlite_path"`
}

type ImportConfig struct {
	Attempts       int           `yaml:"attempts"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

func Default() Config {
	sqlitePath := defaultSQLiteFile
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		sqlitePath = filepath.Join(dir, "horizons", defaultSQLiteFile)
	}
	return Config{
		HTTP: HTTPConfig{
			Addr:            defaultHTTPAddr,
			ShutdownTimeout: defaultShutdownTimeout,
			RequestTimeout:  defaultRequestTimeout,
			MaxBodyBytes:    defaultMaxBodyBytes,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		AI: AIConfig{
			APIKeyEnvVar: defaultAPIKeyEnvVar,
			Model:        defaultModel,
			Timeout:      defaultModelTimeout,
			MaxAttempts:  defaultModelMaxAttempts,
		},
		Calendar: CalendarConfig{Backend: defaultCalendarBackend},
		Projects: ProjectsConfig{
			Backend:    defaultProjectsBackend,
			SQLitePath: sqlitePath,
		},
		Import: ImportConfig{
			Attempts:       defaultImportAttempts,
			AttemptTimeout: defaultImportTimeout,
		},
	}
}

// DefaultPath returns ~/.config/horizons/config.yaml or its platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, defaultConfigFileRelPath)
}

// Options locate the configuration sources. Zero values select the defaults.
type Options struct {
	// Path is the YAML file. An explicit path must exist; the default path may not.
	Path string
	// EnvFile is the dotenv file. It may not exist.
	EnvFile string
	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load reads configuration from the default locations.
func Load(path string) (Config, error) {
	return LoadWith(Options{Path: path})
}

func LoadWith(opts Options) (Config, error) {
	cfg := Default()

	path, required := opts.Path, true
	if path == "" {
		path, required = DefaultPath(), false
	}
	if path != "" {
		if err := cfg.mergeFile(path, required); err != nil {
			return Config{}, err
		}
	}

	lookup, err := environment(opts)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if cfg.AI.APIKey == "" && cfg.AI.APIKeyEnvVar != "" {
		if key, ok := lookup(cfg.AI.APIKeyEnvVar); ok {
			cfg.AI.APIKey = strings.TrimSpace(key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

// environment layers the process environment over the dotenv file without
// modifying the process environment.
func environment(opts Options) (func(string) (string, bool), error) {
	processEnv := opts.LookupEnv
	if processEnv == nil {
		processEnv = os.LookupEnv
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = defaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file %q: %w", envFile, err)
		}
		dotenv = map[string]string{}
	}
	return func(key string) (string, bool) {
		if value, ok := processEnv(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		value, _ := lookup(key)
		return strings.TrimSpace(value)
	}

	if addr := get("HORIZONS_HTTP_ADDR"); addr != "" {
		c.HTTP.Addr = addr
	}
	if token := get("HORIZONS_AUTH_TOKEN"); token != "" {
		c.HTTP.AuthToken = token
	}
	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"HORIZONS_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout},
		{"HORIZONS_REQUEST_TIMEOUT", &c.HTTP.RequestTimeout},
		{"HORIZONS_AI_TIMEOUT", &c.AI.Timeout},
		{"HORIZONS_IMPORT_ATTEMPT_TIMEOUT", &c.Import.AttemptTimeout},
	}
	for _, d := range durations {
		raw := get(d.key)
		if raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("parse %s: value must be > 0", d.key)
		}
		*d.target = parsed
	}
	if raw := get("HORIZONS_AI_REQUESTS_PER_MINUTE"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse HORIZONS_AI_REQUESTS_PER_MINUTE: %w", err)
		}
		c.AI.RequestsPerMinute = parsed
	}

	if level := get("HORIZONS_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := get("HORIZONS_LOG_FORMAT"); format != "" {
		parsed, err := parseLogFormat(format)
		if err != nil {
			return err
		}
		c.Log.Format = parsed
	}
	if model := get("HORIZONS_AI_MODEL"); model != "" {
		c.AI.Model = model
	}
	if key := get("HORIZONS_AI_API_KEY"); key != "" {
		c.AI.APIKey = key
	}
	if backend := get("HORIZONS_CALENDAR_BACKEND"); backend != "" {
		c.Calendar.Backend = Backend(backend)
	}
	if file := get("HORIZONS_CALENDAR_CREDENTIALS_FILE"); file != "" {
		c.Calendar.CredentialsFile = file
	}
	if file := get("HORIZONS_CALENDAR_TOKEN_FILE"); file != "" {
		c.Calendar.TokenFile = file
	}
	if backend := get("HORIZONS_PROJECTS_BACKEND"); backend != "" {
		c.Projects.Backend = Backend(backend)
	}
	if path := get("HORIZONS_SQLITE_PATH"); path != "" {
		c.Projects.SQLitePath = path
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("validate config: http.addr is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return errors.New("validate config: http.shutdown_timeout must be > 0")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return errors.New("validate config: http.request_timeout must be > 0")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("validate config: http.max_body_bytes must be > 0")
	}

	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf(
			"validate config: unsupported log.format %q (allowed: %q, %q)",
			c.Log.Format,
			LogFormatText,
			LogFormatJSON,
		)
	}

	if strings.TrimSpace(c.AI.Model) == "" {
		return errors.New("validate config: ai.model is required")
	}
	if c.AI.Timeout <= 0 {
		return errors.New("validate config: ai.timeout must be > 0")
	}
	if c.AI.MaxAttempts < 1 {
		return errors.New("validate config: ai.max_attempts must be >= 1")
	}
	if c.AI.RequestsPerMinute < 0 {
		return errors.New("validate config: ai.requests_per_minute must be >= 0")
	}

	switch c.Calendar.Backend {
	case BackendMemory:
	case BackendGoogle:
		if strings.TrimSpace(c.Calendar.CredentialsFile) == "" {
			return errors.New("validate config: google calendar backend requires calendar.credentials_file")
		}
		if strings.TrimSpace(c.Calendar.TokenFile) == "" {
			return errors.New("validate config: google calendar backend requires calendar.token_file")
		}
	default:
		return fmt.Errorf(
			"validate config: unsupported calendar.backend %q (allowed: %q, %q)",
			c.Calendar.Backend,
			BackendMemory,
			BackendGoogle,
		)
	}

	switch c.Projects.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.Projects.SQLitePath) == "" {
			return errors.New("validate config: sqlite projects backend requires projects.sqlite_path")
		}
	default:
		return fmt.Errorf(
			"validate config: unsupported projects.backend %q (allowed: %q, %q)",
			c.Projects.Backend,
			BackendMemory,
			BackendSQLite,
		)
	}

	if c.Import.Attempts < 1 {
		return errors.New("validate config: import.attempts must be >= 1")
	}
	if c.Import.AttemptTimeout <= 0 {
		return errors.New("validate config: import.attempt_timeout must be > 0")
	}
	return nil
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	return parseLogLevel(c.Log.Level)
}

func parseLogLevel(input string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf(
			"unsupported log.level %q (allowed: %q, %q, %q, %q)",
			input,
			"debug",
			"info",
			"warn",
			"error",
		)
	}
}

func parseLogFormat(input string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf(
			"parse HORIZONS_LOG_FORMAT: unsupported value %q (allowed: %q, %q)",
			input,
			LogFormatText,
			LogFormatJSON,
		)
	}
}
