package config

import (
	"path/filepath"
	"strings"

	"github.com/thoreinstein/keepsafe/internal/errors"
)

// Validation errors for configuration fields.
var (
	// ErrUnsupportedVersion indicates the version field is not 1.
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrInvalidDebounce indicates a non-positive debounce window.
	ErrInvalidDebounce = errors.New("debounce must be positive")

	// ErrInvalidLogRotation indicates a negative rotation limit.
	ErrInvalidLogRotation = errors.New("log rotation limits must not be negative")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, errors.Mark(errors.Newf("unsupported config version: %d", cfg.Version), ErrUnsupportedVersion))
	}

	if cfg.Debounce <= 0 {
		errs = append(errs, errors.Mark(errors.Newf("debounce must be positive: %s", cfg.Debounce), ErrInvalidDebounce))
	}

	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 {
		errs = append(errs, ErrInvalidLogRotation)
	}

	for _, f := range []struct {
		field, path string
	}{
		{"settings_file", cfg.SettingsFile},
		{"default_backup_path", cfg.DefaultBackupPath},
		{"default_search_path", cfg.DefaultSearchPath},
		{"log.file", cfg.Log.File},
	} {
		if err := validatePath(f.path); err != nil {
			errs = append(errs, &PathError{Field: f.field, Path: f.path, Err: err})
		}
	}

	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	// Empty paths are valid (they mean "use default")
	if path == "" {
		return nil
	}

	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}

	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}

	return nil
}

// PathError represents an error for a specific path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}
