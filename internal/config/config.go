package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"eventtracker/internal/application/common/logging"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Project     ProjectConfig     `mapstructure:"project"`
	Store       StoreConfig       `mapstructure:"store"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Tracking    TrackingConfig    `mapstructure:"tracking"`
	Scripts     ScriptsConfig     `mapstructure:"scripts"`
	Watch       WatchConfig       `mapstructure:"watch"`
	Log         LogConfig         `mapstructure:"log"`
}

// ProjectConfig locates the Unity project and selects what gets scanned.
type ProjectConfig struct {
	Root             string   `mapstructure:"root"`
	IgnoreFolders    []string `mapstructure:"ignore_folders"`
	IncludeAllScenes bool     `mapstructure:"include_all_scenes"`
	AssetCacheSize   int      `mapstructure:"asset_cache_size"`
}

// StoreConfig holds where the binding store and its companion files live.
type StoreConfig struct {
	Dir string `mapstructure:"dir"` // Relative to the project root unless absolute
}

// DiagnosticsConfig holds bug report settings.
type DiagnosticsConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxReports int    `mapstructure:"max_reports"`
}

// TrackingConfig holds the incremental tracking switches.
type TrackingConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	ReportInvalid bool `mapstructure:"report_invalid"`
}

// ScriptsConfig holds script catalog settings.
type ScriptsConfig struct {
	ParseWorkers int `mapstructure:"parse_workers"`
}

// WatchConfig holds file watcher settings.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
)

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project.root", ".")
	v.SetDefault("project.ignore_folders", []string{"Plugins", "Samples"})
	v.SetDefault("project.include_all_scenes", false)
	v.SetDefault("project.asset_cache_size", 256)

	v.SetDefault("store.dir", "Assets/Plugins/UnityEventTracker")

	v.SetDefault("diagnostics.dir", "Assets/Plugins/UnityEventTracker/Logs")
	v.SetDefault("diagnostics.max_reports", 5)

	v.SetDefault("tracking.enabled", true)
	v.SetDefault("tracking.report_invalid", true)

	v.SetDefault("scripts.parse_workers", 4)

	v.SetDefault("watch.debounce", "250ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New creates a validated Config from Viper.
func New(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return errors.New("project.root is required")
	}
	if c.Project.AssetCacheSize < 1 {
		return errors.New("project.asset_cache_size must be at least 1")
	}
	if c.Store.Dir == "" {
		return errors.New("store.dir is required")
	}
	if c.Diagnostics.Dir == "" {
		return errors.New("diagnostics.dir is required")
	}
	if c.Diagnostics.MaxReports < 0 {
		return errors.New("diagnostics.max_reports cannot be negative")
	}
	if c.Scripts.ParseWorkers < 1 {
		return errors.New("scripts.parse_workers must be at least 1")
	}
	if c.Watch.Debounce <= 0 {
		return errors.New("watch.debounce must be positive")
	}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v, got %q", validLogLevels, c.Log.Level)
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %v, got %q", validLogFormats, c.Log.Format)
	}
	return nil
}

// StorePath resolves the store directory against the project root.
func (c *Config) StorePath() string {
	return c.underRoot(c.Store.Dir)
}

// DiagnosticsPath resolves the bug report directory against the project root.
func (c *Config) DiagnosticsPath() string {
	return c.underRoot(c.Diagnostics.Dir)
}

// Logging converts the log settings for the application logger.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format, Output: "stderr"}
}

func (c *Config) underRoot(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Project.Root, filepath.FromSlash(dir))
}
