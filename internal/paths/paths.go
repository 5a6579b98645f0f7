package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName names the per-application directories below the XDG homes.
const AppName = "keepsafe"

// SettingsFileName is the base name of the settings file holding jobs and
// user settings.
const SettingsFileName = "settings.yaml"

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")
)

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// Abs expands a leading "~" to the home directory and makes p absolute.
// Shells expand "~" themselves, but not inside flag values such as
// --dest=~/backups or in hand-edited settings.
func Abs(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := ResolveHome()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, p[1:])
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", p)
	}
	return abs, nil
}

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func ConfigHome() string {
	return xdg.ConfigHome
}

// DataHome returns the XDG data home directory.
// On Linux: ~/.local/share
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func DataHome() string {
	return xdg.DataHome
}

// StateHome returns the XDG state home directory.
// On Linux: ~/.local/state
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func StateHome() string {
	return xdg.StateHome
}

// ConfigDir returns keepsafe's configuration directory.
func ConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// SettingsFile returns the default settings file path.
func SettingsFile() string {
	return filepath.Join(ConfigDir(), SettingsFileName)
}

// DefaultBackupDir returns where ad hoc backups go when neither a flag nor
// the default_backup_path setting names a destination.
func DefaultBackupDir() string {
	return filepath.Join(DataHome(), AppName, "backups")
}

// LogFile returns the scheduler daemon's default log file.
func LogFile() string {
	return filepath.Join(StateHome(), AppName, AppName+".log")
}
