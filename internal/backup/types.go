package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/thoreinstein/keepsafe/internal/errors"
)

// Type is the form a backup takes on disk.
type Type string

const (
	// TypeFolder mirrors the sources into a plain directory tree.
	TypeFolder Type = "folder"

	// TypeZip stores the sources in a single ZIP archive.
	TypeZip Type = "zip"
)

// Compressed reports whether t produces an archive.
func (t Type) Compressed() bool {
	return t == TypeZip
}

// ParseType parses a backup type, ignoring case.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeFolder:
		return TypeFolder, nil
	case TypeZip:
		return TypeZip, nil
	default:
		return "", errors.ConfigErrorf("unknown backup type %q (want folder or zip)", s)
	}
}

// Result summarizes a finished backup. It is never modified after
// [Engine.CreateBackup] returns it.
type Result struct {
	Date         time.Time `json:"date"`
	Name         string    `json:"name"`
	Type         Type      `json:"type"`
	TotalFiles   int       `json:"total_files"`
	TotalFolders int       `json:"total_folders"`
	TotalSize    int64     `json:"total_size"`
}

// FormatSize renders TotalSize in IEC units, e.g. "1.0 MiB".
func (r Result) FormatSize() string {
	if r.TotalSize < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(r.TotalSize))
}

// String is the one-line summary stored as the last backup info.
func (r Result) String() string {
	return fmt.Sprintf("date: %s, name: %s, type: %s, files: %d, folders: %d, size: %s",
		r.Date.Format(time.DateTime), r.Name, r.Type, r.TotalFiles, r.TotalFolders, r.FormatSize())
}

// Job is a named, scheduled backup configuration.
type Job struct {
	// Key identifies the job; unique across the settings file.
	Key string

	Name string

	// Sources are backed up in this order. Never empty.
	Sources []string

	// Destination is the directory that receives each run's artifact.
	Destination string

	Type Type

	// Schedule is the interval between runs, in minutes. Always positive.
	Schedule int
}

// Progress observes the completion percentage of an operation.
// Percentages never decrease and the last report is exactly 100.
type Progress interface {
	Progress(percent int)
}

// ProgressFunc adapts a function to [Progress].
type ProgressFunc func(percent int)

// Progress calls f(percent).
func (f ProgressFunc) Progress(percent int) {
	f(percent)
}

// tracker turns processed-unit counts into percentages. Intermediate
// reports are capped at 99 so that 100 is reported once, by finish.
type tracker struct {
	p     Progress
	total int
	done  int
}

func newTracker(p Progress, total int) *tracker {
	return &tracker{p: p, total: total}
}

func (t *tracker) step() {
	t.done++
	if t.p == nil {
		return
	}
	pct := 99
	if t.total > 0 {
		pct = min(t.done*100/t.total, 99)
	}
	t.p.Progress(pct)
}

func (t *tracker) finish() {
	if t.p != nil {
		t.p.Progress(100)
	}
}
