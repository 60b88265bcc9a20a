// Package config provides configuration loading and validation for the
// backend server.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	theme "github.com/goliatone/go-theme"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-dcaform/pkg/dateformat"
	"github.com/goliatone/go-dcaform/pkg/icon"
	"github.com/goliatone/go-dcaform/pkg/imaging"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Schema   SchemaConfig   `yaml:"schema"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Backend  BackendConfig  `yaml:"backend"`
	Authz    AuthzConfig    `yaml:"authz"`
	Labels   LabelsConfig   `yaml:"labels"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// SchemaConfig points at the DCA schema directory.
type SchemaConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// DatabaseConfig configures the record store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres" or "memory"
	DSN    string `yaml:"dsn"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// BackendConfig holds the global settings the field renderer reads.
type BackendConfig struct {
	ShowHelp       bool     `yaml:"show_help"`
	DateFormat     string   `yaml:"date_format"`
	TimeFormat     string   `yaml:"time_format"`
	DatimFormat    string   `yaml:"datim_format"`
	ImageBackend   string   `yaml:"image_backend"`
	GDMaxImgWidth  int      `yaml:"gd_max_img_width"`
	GDMaxImgHeight int      `yaml:"gd_max_img_height"`
	FilesRoot      string   `yaml:"files_root"`
	PickerTables   []string `yaml:"picker_tables"`
	Theme          string   `yaml:"theme"`
	ThemeVariant   string   `yaml:"theme_variant"`
	AssetsURL      string   `yaml:"assets_url"`
}

// Formats returns the configured date patterns.
func (b BackendConfig) Formats() dateformat.Formats {
	return dateformat.Formats{Date: b.DateFormat, Time: b.TimeFormat, Datim: b.DatimFormat}
}

// Imaging returns the preview backend settings.
func (b BackendConfig) Imaging() imaging.Config {
	return imaging.Config{
		Backend:   b.ImageBackend,
		MaxWidth:  b.GDMaxImgWidth,
		MaxHeight: b.GDMaxImgHeight,
		Icons:     icon.New(b.ThemeConfig()),
	}
}

// ThemeConfig returns the renderer config of the backend theme.
func (b BackendConfig) ThemeConfig() *theme.RendererConfig {
	return icon.Config(b.Theme, b.ThemeVariant, b.AssetsURL)
}

// AuthzConfig configures the privileged-session check.
type AuthzConfig struct {
	Mode   string `yaml:"mode"` // "enforce" or "disabled"
	Model  string `yaml:"model"`
	Policy string `yaml:"policy"`
}

// LabelsConfig points at an optional label overlay file.
type LabelsConfig struct {
	File string `yaml:"file"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML data. Environment variables in the
// data are expanded first, DCAFORM_* variables override parsed values.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to defaults plus
// environment overrides otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Parse(nil)
}

// applyEnvOverrides applies DCAFORM_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DCAFORM_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DCAFORM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DCAFORM_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("DCAFORM_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("DCAFORM_SCHEMA_DIR"); v != "" {
		cfg.Schema.Dir = v
	}
	if v := os.Getenv("DCAFORM_SCHEMA_WATCH"); v != "" {
		cfg.Schema.Watch = parseBool(v)
	}

	if v := os.Getenv("DCAFORM_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DCAFORM_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("DCAFORM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DCAFORM_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("DCAFORM_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("DCAFORM_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	if v := os.Getenv("DCAFORM_BACKEND_SHOW_HELP"); v != "" {
		cfg.Backend.ShowHelp = parseBool(v)
	}
	if v := os.Getenv("DCAFORM_BACKEND_IMAGE_BACKEND"); v != "" {
		cfg.Backend.ImageBackend = v
	}
	if v := os.Getenv("DCAFORM_BACKEND_FILES_ROOT"); v != "" {
		cfg.Backend.FilesRoot = v
	}
	if v := os.Getenv("DCAFORM_BACKEND_PICKER_TABLES"); v != "" {
		cfg.Backend.PickerTables = splitList(v)
	}
	if v := os.Getenv("DCAFORM_BACKEND_THEME"); v != "" {
		cfg.Backend.Theme = v
	}
	if v := os.Getenv("DCAFORM_BACKEND_ASSETS_URL"); v != "" {
		cfg.Backend.AssetsURL = v
	}

	if v := os.Getenv("DCAFORM_AUTHZ_MODE"); v != "" {
		cfg.Authz.Mode = v
	}
	if v := os.Getenv("DCAFORM_LABELS_FILE"); v != "" {
		cfg.Labels.File = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Schema.Dir == "" {
		cfg.Schema.Dir = "dca"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "dcaform.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	defaults := dateformat.Defaults()
	if cfg.Backend.DateFormat == "" {
		cfg.Backend.DateFormat = defaults.Date
	}
	if cfg.Backend.TimeFormat == "" {
		cfg.Backend.TimeFormat = defaults.Time
	}
	if cfg.Backend.DatimFormat == "" {
		cfg.Backend.DatimFormat = defaults.Datim
	}
	if cfg.Backend.ImageBackend == "" {
		cfg.Backend.ImageBackend = imaging.BackendGD
	}
	if cfg.Backend.GDMaxImgWidth == 0 {
		cfg.Backend.GDMaxImgWidth = 5000
	}
	if cfg.Backend.GDMaxImgHeight == 0 {
		cfg.Backend.GDMaxImgHeight = 5000
	}
	if cfg.Backend.FilesRoot == "" {
		cfg.Backend.FilesRoot = "."
	}
	if len(cfg.Backend.PickerTables) == 0 {
		cfg.Backend.PickerTables = []string{"tl_files", "tl_page"}
	}
	if cfg.Backend.Theme == "" {
		cfg.Backend.Theme = icon.DefaultTheme
	}

	if cfg.Authz.Mode == "" {
		cfg.Authz.Mode = "enforce"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "memory": true}
	if !validDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be 'sqlite', 'postgres' or 'memory', got %q", cfg.Database.Driver)
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for postgres")
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	if cfg.Backend.GDMaxImgWidth < 0 || cfg.Backend.GDMaxImgHeight < 0 {
		return fmt.Errorf("backend.gd_max_img_width and gd_max_img_height must not be negative")
	}

	if cfg.Authz.Mode != "enforce" && cfg.Authz.Mode != "disabled" {
		return fmt.Errorf("authz.mode must be 'enforce' or 'disabled', got %q", cfg.Authz.Mode)
	}
	return nil
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
