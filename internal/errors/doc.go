// Package errors provides error handling conventions for keepsafe.
//
// It re-exports the wrapping helpers of github.com/cockroachdb/errors and
// defines the error kinds used across the backup engine and scheduler:
//
//   - [ErrIO]: unreadable source, unwritable destination, disk full
//   - [ErrNotFound]: a missing backup or checksum manifest
//   - [ErrIntegrity]: a digest mismatch or a missing backup entry
//   - [ErrInvalidConfig]: a malformed job entry or setting
//
// Kinds are attached with marks, so the original cause stays inspectable:
//
//	err := errors.IOError(openErr, "opening source")
//	errors.Is(err, errors.ErrIO)      // true
//	errors.Is(err, fs.ErrNotExist)    // true as well
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (bad input, configuration, damaged backup)
//   - ExitSystem (2): System-related error (I/O, permissions)
//
// [Classify] turns any error into an [ExitError] carrying the matching code
// and a suggestion for the user.
package errors
