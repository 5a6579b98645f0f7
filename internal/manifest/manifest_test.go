package manifest

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/errors"
)

const (
	hiDigest = "8f434346648f6b96df89dda901c5176b10a6d83961dd3c1ac88b59b2dc327aa4"
	yoDigest = "e9058ab198f6908f702111b0c0fb5b36f99d00554521886c40e2891b349dc7a1"
)

func TestPathFor(t *testing.T) {
	tests := []struct {
		name   string
		backup string
		want   string
	}{
		{"archive", "/out/backup-01022024-101112.zip", "/out/backup-01022024-101112-checksums.txt"},
		{"folder", "/out/backup-01022024-101112", "/out/backup-01022024-101112-checksums.txt"},
		{"folder trailing slash", "/out/nightly-20240201-101112/", "/out/nightly-20240201-101112-checksums.txt"},
		{"dotted job name", "/out/my.job-20240201-101112", "/out/my.job-20240201-101112-checksums.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PathFor(tt.backup); got != tt.want {
				t.Errorf("PathFor(%q) = %q, want %q", tt.backup, got, tt.want)
			}
		})
	}
}

func TestWriterThenLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()

	w, err := Create(fsys, "/m.txt")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.Add(hiDigest, "a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := w.Add(yoDigest, "sub dir/b c.txt"); err != nil {
		t.Fatal(err)
	}
	if w.Len() != 2 {
		t.Errorf("Len() = %d, want 2", w.Len())
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := afero.ReadFile(fsys, "/m.txt")
	want := hiDigest + " a.txt\n" + yoDigest + " sub dir/b c.txt\n"
	if string(data) != want {
		t.Errorf("manifest content = %q, want %q", data, want)
	}

	entries, err := Load(fsys, "/m.txt")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Load() returned %d entries, want 2", len(entries))
	}
	if entries[1].Path != "sub dir/b c.txt" {
		t.Errorf("path with spaces = %q", entries[1].Path)
	}
}

func TestWriter_RejectsBadDigest(t *testing.T) {
	w, err := Create(afero.NewMemMapFs(), "/m.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add("abc", "a.txt"); err == nil {
		t.Error("Add() with a short digest should fail")
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr bool
	}{
		{"simple", hiDigest + " a.txt", Entry{hiDigest, "a.txt"}, false},
		{"spaces in path", hiDigest + " my file.txt", Entry{hiDigest, "my file.txt"}, false},
		{"crlf", hiDigest + " a.txt\r", Entry{hiDigest, "a.txt"}, false},
		{"no path", hiDigest, Entry{}, true},
		{"empty path", hiDigest + " ", Entry{}, true},
		{"short digest", "00000000000000000000000000000000 a.txt", Entry{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("error should be ErrMalformed, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEntries_SkipsBlankLines(t *testing.T) {
	input := hiDigest + " a.txt\n\n" + yoDigest + " b.txt\n"
	var got []string
	for e, err := range Entries(strings.NewReader(input)) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, e.Path)
	}
	if strings.Join(got, ",") != "a.txt,b.txt" {
		t.Errorf("Entries() paths = %v", got)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/nope-checksums.txt")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Load() on missing file error = %v, want ErrNotFound", err)
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("/x/backup-1.zip"); got != "backup-1" {
		t.Errorf("BaseName() = %q", got)
	}
	if got := BaseName("/x/backup-1"); got != "backup-1" {
		t.Errorf("BaseName() = %q", got)
	}
}
