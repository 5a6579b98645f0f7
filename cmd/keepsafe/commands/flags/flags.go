// Package flags holds state shared by the root command and its noun
// subpackages. It exists to avoid import cycles between the root command
// and subpackages such as job.
package flags

import (
	"log/slog"

	"github.com/thoreinstein/keepsafe/internal/config"
	"github.com/thoreinstein/keepsafe/internal/store"
)

// cfg is the configuration loaded by the root command.
var cfg *config.Config

// Config returns the loaded configuration, or the defaults when none was
// loaded.
func Config() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// SetConfig sets the configuration. The root command calls it after
// loading; tests call it to point commands at temporary locations.
func SetConfig(c *config.Config) {
	cfg = c
}

// OpenStore returns the settings store named by the configuration.
func OpenStore(logger *slog.Logger) *store.Store {
	return store.New(Config().SettingsFile, store.WithLogger(logger))
}
