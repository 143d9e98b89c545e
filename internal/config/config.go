// Package config provides configuration management for camvault using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jmylchreest/camvault/internal/util"
)

// Default configuration values.
const (
	defaultServerPort      = 8793
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 6
	defaultMaxIdleConns    = 3
	defaultConnMaxIdleTime = 30 * time.Minute
	defaultProbeTimeout    = 60 * time.Second
	defaultExifToolTimeout = 30 * time.Second
	defaultPollInterval    = 5 * time.Second
	defaultLeaseDuration   = 5 * time.Minute
	defaultMaxRetries      = 3
	defaultBaseBackoff     = 60 * time.Second
	defaultMaxConcurrentFF = 2
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Library   LibraryConfig   `mapstructure:"library"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	Tools     ToolsConfig     `mapstructure:"tools"`
}

// ServerConfig holds local command-surface HTTP server configuration.
// The server is bound to localhost only; it is not a public API.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds SQLite connection configuration for a library's
// embedded database.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
	Directory  string `mapstructure:"directory"` // for get_log_directory/export_logs
}

// LibraryConfig holds defaults applied when creating a new library.
type LibraryConfig struct {
	DefaultIngestMode string `mapstructure:"default_ingest_mode"` // copy, reference
	AppDBPath         string `mapstructure:"app_db_path"`         // process-singleton settings store
}

// IngestionConfig holds ingest pipeline tuning.
type IngestionConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	LeaseDuration       time.Duration `mapstructure:"lease_duration"`
	MaxRetries          int           `mapstructure:"max_retries"`
	BaseBackoff         time.Duration `mapstructure:"base_backoff"`
	MaxConcurrentFFmpeg int           `mapstructure:"max_concurrent_ffmpeg"`
	RematchCron         string        `mapstructure:"rematch_cron"`
	ReextractCron       string        `mapstructure:"reextract_cron"`
}

// ToolsConfig holds paths and timeouts for external tool invocation.
type ToolsConfig struct {
	FFprobePath     string        `mapstructure:"ffprobe_path"` // empty = auto-detect
	ExifToolPath    string        `mapstructure:"exiftool_path"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	ExifToolTimeout time.Duration `mapstructure:"exiftool_timeout"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with CAMVAULT_ and use underscores
// for nesting, e.g. CAMVAULT_SERVER_PORT=8793.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/camvault")
		v.AddConfigPath("$HOME/.camvault")
	}

	v.SetEnvPrefix("CAMVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Library.AppDBPath == "" {
		path, err := defaultAppDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolving app db path: %w", err)
		}
		cfg.Library.AppDBPath = path
	}

	if cfg.Tools.FFprobePath == "" {
		if path, err := util.FindBinary("ffprobe", "CAMVAULT_FFPROBE_PATH"); err == nil {
			cfg.Tools.FFprobePath = path
		}
	}
	if cfg.Tools.ExifToolPath == "" {
		if path, err := util.FindBinary("exiftool", "CAMVAULT_EXIFTOOL_PATH"); err == nil {
			cfg.Tools.ExifToolPath = path
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// defaultAppDBPath resolves the process-singleton app DB location under
// the platform config directory, e.g. ~/.config/camvault/app.db on Linux.
func defaultAppDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "camvault", "app.db"), nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure
// defaults are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("library.default_ingest_mode", "copy")

	v.SetDefault("ingestion.poll_interval", defaultPollInterval)
	v.SetDefault("ingestion.lease_duration", defaultLeaseDuration)
	v.SetDefault("ingestion.max_retries", defaultMaxRetries)
	v.SetDefault("ingestion.base_backoff", defaultBaseBackoff)
	v.SetDefault("ingestion.max_concurrent_ffmpeg", defaultMaxConcurrentFF)
	v.SetDefault("ingestion.rematch_cron", "0 3 * * *")    // nightly at 3am
	v.SetDefault("ingestion.reextract_cron", "0 * * * *") // hourly

	v.SetDefault("tools.ffprobe_path", "")
	v.SetDefault("tools.exiftool_path", "")
	v.SetDefault("tools.probe_timeout", defaultProbeTimeout)
	v.SetDefault("tools.exiftool_timeout", defaultExifToolTimeout)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	validModes := map[string]bool{"copy": true, "reference": true}
	if !validModes[c.Library.DefaultIngestMode] {
		return fmt.Errorf("library.default_ingest_mode must be one of: copy, reference")
	}

	if c.Ingestion.MaxRetries < 0 {
		return fmt.Errorf("ingestion.max_retries must be non-negative")
	}
	if c.Ingestion.MaxConcurrentFFmpeg < 1 {
		return fmt.Errorf("ingestion.max_concurrent_ffmpeg must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
