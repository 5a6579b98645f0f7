// Package config provides configuration management for keepsafe using Viper.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/paths"
)

// EnvPrefix prefixes every environment override, e.g. KEEPSAFE_DEBOUNCE.
const EnvPrefix = "KEEPSAFE"

// ConfigDirEnv overrides the directory searched for config.yaml.
const ConfigDirEnv = EnvPrefix + "_CONFIG_DIR"

// DefaultDebounce is the quiet period after a settings change before the
// scheduler reloads its jobs.
const DefaultDebounce = 500 * time.Millisecond

const (
	defaultLogMaxSizeMB  = 10
	defaultLogMaxBackups = 3
)

// Config represents the top-level configuration structure.
type Config struct {
	Version int `mapstructure:"version" yaml:"version"`

	// SettingsFile holds scheduled jobs and user settings.
	SettingsFile string `mapstructure:"settings_file" yaml:"settings_file"`

	// DefaultBackupPath is where ad hoc backups go without --dest.
	DefaultBackupPath string `mapstructure:"default_backup_path" yaml:"default_backup_path"`

	// DefaultSearchPath is where list and restore look for backups.
	DefaultSearchPath string `mapstructure:"default_search_path" yaml:"default_search_path"`

	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// LogConfig configures the scheduler daemon's log file.
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns the configuration used when no file is loaded.
func Default() *Config {
	return &Config{
		Version:           1,
		SettingsFile:      paths.SettingsFile(),
		DefaultBackupPath: paths.DefaultBackupDir(),
		DefaultSearchPath: paths.DefaultBackupDir(),
		Debounce:          DefaultDebounce,
		Log: LogConfig{
			File:       paths.LogFile(),
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}

// Init resets Viper and installs keepsafe's search paths, environment
// bindings, and defaults. Call it once at startup before Load.
func Init() {
	viper.Reset()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		viper.AddConfigPath(dir)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(paths.ConfigDir())
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("version", 1)
	viper.SetDefault("settings_file", paths.SettingsFile())
	viper.SetDefault("default_backup_path", paths.DefaultBackupDir())
	viper.SetDefault("default_search_path", paths.DefaultBackupDir())
	viper.SetDefault("debounce", DefaultDebounce)
	viper.SetDefault("log.file", paths.LogFile())
	viper.SetDefault("log.max_size_mb", defaultLogMaxSizeMB)
	viper.SetDefault("log.max_backups", defaultLogMaxBackups)
}

// Load reads the configuration file and validates the result.
// If path is provided, it reads from that specific file and a missing file
// is an error. If path is empty, the default locations are searched and
// defaults are used when no file exists.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// Implicit load without a file: defaults apply.
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			return nil, errors.Mark(errors.Wrapf(err, "config file not found at %s", path), errors.ErrNotFound)
		default:
			return nil, errors.Mark(errors.Wrap(err, "reading config file"), errors.ErrInvalidConfig)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "unmarshaling config"), errors.ErrInvalidConfig)
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Mark(errors.Wrap(errs[0], "validating config"), errors.ErrInvalidConfig)
	}

	return &cfg, nil
}
