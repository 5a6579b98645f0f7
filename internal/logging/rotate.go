package logging

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig describes a size-rotated log file.
type FileConfig struct {
	Path string

	// MaxSizeMB is the size at which the file is rotated. Zero means 100.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Zero keeps all.
	MaxBackups int
}

// NewRotatingFile opens cfg.Path for appending and rotates it once it
// grows past MaxSizeMB. Rotated files are gzip-compressed.
func NewRotatingFile(cfg FileConfig) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
}
