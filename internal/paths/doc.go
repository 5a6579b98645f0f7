// Package paths resolves keepsafe's files and directories.
//
// The package wraps github.com/adrg/xdg for cross-platform XDG Base Directory
// Specification compliance. On Linux the defaults are:
//
//	| What            | Path                                    |
//	|-----------------|-----------------------------------------|
//	| settings file   | ~/.config/keepsafe/settings.yaml        |
//	| ad hoc backups  | ~/.local/share/keepsafe/backups/        |
//	| daemon log file | ~/.local/state/keepsafe/keepsafe.log    |
//
// Each default can be overridden through internal/config.
package paths
