// Package config provides configuration management for the keepsafe CLI.
//
// This package handles keepsafe's own configuration file. Scheduled jobs
// and user settings live in a separate settings file managed by
// internal/store; this package only says where that file is.
//
// # Configuration File
//
// config.yaml is looked up in the current directory and then in
// ~/.config/keepsafe/ (or in $KEEPSAFE_CONFIG_DIR alone when set):
//
//	version: 1
//	settings_file: ~/.config/keepsafe/settings.yaml
//	default_backup_path: /mnt/backups
//	default_search_path: /mnt/backups
//	debounce: 500ms
//	log:
//	  file: ~/.local/state/keepsafe/keepsafe.log
//	  max_size_mb: 10
//	  max_backups: 3
//
// Every key can be overridden from the environment, e.g.
// KEEPSAFE_DEBOUNCE=1s or KEEPSAFE_LOG_FILE=/var/log/keepsafe.log.
//
// # Loading Configuration
//
//	config.Init()
//	cfg, err := config.Load(flagPath)
//
// An empty path searches the default locations and falls back to defaults.
// An explicit path that does not exist is reported as errors.ErrNotFound.
//
// # Validation
//
// Load validates automatically and marks failures with
// errors.ErrInvalidConfig. [Validate] returns every problem at once.
package config
