// Package backup creates, verifies, and restores point-in-time backups.
//
// A backup is either a mirrored folder or a ZIP archive, always accompanied
// by a checksum manifest stored beside it:
//
//	/mnt/backups/
//	├── backup-23012026-100712.zip
//	├── backup-23012026-100712-checksums.txt
//	├── nightly-20260123-030000/
//	│   ├── docs/...
//	│   └── hosts
//	└── nightly-20260123-030000-checksums.txt
//
// # Creating Backups
//
// Use [Engine.CreateBackup] with the items to back up, in order:
//
//	engine := backup.NewEngine()
//	result, err := engine.CreateBackup(
//	    []string{"/home/me/docs", "/etc/hosts"},
//	    "/mnt/backups/"+backup.AdHocName(time.Now())+".zip",
//	    true,
//	    backup.ProgressFunc(func(pct int) { fmt.Printf("\r%3d%%", pct) }),
//	)
//
// The engine makes two passes over the items with the same walker: one to
// count directories and files for progress, one to write. A top-level file
// is stored under its base name; files below a top-level directory are
// stored under the directory's base name followed by their relative path.
//
// # Restoring Backups
//
// [Engine.Restore] verifies the manifest before writing anything, then
// recreates the tree under the destination:
//
//	err := engine.Restore("/mnt/backups/backup-23012026-100712.zip", "/tmp/restore", nil)
//
// # Integrity Verification
//
// [Engine.Verify] recomputes the SHA256 digest of every manifest entry and
// stops at the first missing file or mismatch. A missing manifest is
// reported as errors.ErrNotFound; Restore turns a failed verification into
// errors.ErrIntegrity.
//
// # Cleanup
//
// The engine never rolls back. Callers remove partial artifacts with
// [Remove], which deletes both the backup and its manifest.
package backup
