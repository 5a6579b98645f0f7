package backup

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/manifest"
	"github.com/thoreinstein/keepsafe/internal/walk"
)

// AdHocPrefix starts the name of every backup created outside a job.
const AdHocPrefix = "backup-"

// Timestamp layouts used in artifact names.
const (
	adHocLayout = "02012006-150405" // ddMMyyyy-HHmmss
	jobLayout   = "20060102-150405" // yyyyMMdd-HHmmss
)

// ErrNoBackupsFound indicates a search directory holds no backups.
var ErrNoBackupsFound = errors.Mark(errors.New("no backups found"), errors.ErrNotFound)

// AdHocName returns the base name of a manually created backup.
func AdHocName(t time.Time) string {
	return AdHocPrefix + t.Format(adHocLayout)
}

// JobBackupName returns the base name of a scheduled run of job.
func JobBackupName(job string, t time.Time) string {
	return job + "-" + t.Format(jobLayout)
}

// ArtifactPath joins dir and base, adding the archive extension for
// archive-form backups.
func ArtifactPath(dir, base string, typ Type) string {
	p := filepath.Join(dir, base)
	if typ.Compressed() {
		p += manifest.ArchiveExt
	}
	return p
}

// Info describes a backup found on disk.
type Info struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`
	HasManifest bool      `json:"has_manifest"`
}

// List returns the backups in dir whose names start with prefix, newest
// first. Archives must end in .zip; folders match by name alone.
func List(fsys afero.Fs, dir, prefix string) ([]Info, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNoBackupsFound, "%s does not exist", dir)
		}
		return nil, errors.IOErrorf(err, "reading %s", dir)
	}

	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || strings.HasSuffix(name, manifest.Suffix) {
			continue
		}

		p := filepath.Join(dir, name)
		info := Info{Path: p, ModTime: entry.ModTime()}
		switch {
		case entry.IsDir():
			info.Type = TypeFolder
			info.Name = name
			info.Size = treeSize(fsys, p)
		case entry.Mode().IsRegular() && strings.EqualFold(filepath.Ext(name), manifest.ArchiveExt):
			info.Type = TypeZip
			info.Name = manifest.BaseName(name)
			info.Size = entry.Size()
		default:
			continue
		}

		if _, err := fsys.Stat(manifest.PathFor(p)); err == nil {
			info.HasManifest = true
		}
		infos = append(infos, info)
	}

	if len(infos) == 0 {
		return nil, ErrNoBackupsFound
	}

	// Sort by date, newest first
	slices.SortFunc(infos, func(a, b Info) int {
		return b.ModTime.Compare(a.ModTime)
	})

	return infos, nil
}

func treeSize(fsys afero.Fs, root string) int64 {
	var total int64
	for n, err := range walk.Tree(fsys, root) {
		if err != nil {
			break
		}
		total += n.Size
	}
	return total
}

// Remove deletes a backup artifact and its manifest. Missing pieces are
// ignored, so Remove also cleans up after a failed [Engine.CreateBackup].
func Remove(fsys afero.Fs, backupPath string) error {
	if err := fsys.RemoveAll(backupPath); err != nil {
		return errors.IOErrorf(err, "removing %s", backupPath)
	}
	if err := fsys.Remove(manifest.PathFor(backupPath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.IOErrorf(err, "removing manifest of %s", backupPath)
	}
	return nil
}
