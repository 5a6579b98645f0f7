package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0o644))
	}
}

func collect(t *testing.T, fsys afero.Fs, items []string) []string {
	t.Helper()
	var got []string
	for n, err := range Items(fsys, items) {
		require.NoError(t, err)
		got = append(got, n.Kind.String()+":"+n.Rel)
	}
	return got
}

func TestItems_FilesBeforeSubdirectories(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{
		"/src/root/z.txt":        "z",
		"/src/root/a/inner.txt":  "i",
		"/src/root/b.txt":        "b",
		"/src/root/a/deep/d.txt": "d",
		"/src/single.txt":        "s",
	})

	got := collect(t, fsys, []string{"/src/root", "/src/single.txt"})

	want := []string{
		"dir:root",
		"file:root/b.txt",
		"file:root/z.txt",
		"dir:root/a",
		"file:root/a/inner.txt",
		"dir:root/a/deep",
		"file:root/a/deep/d.txt",
		"file:single.txt",
	}
	assert.Equal(t, want, got)
}

func TestItems_SkipsMissing(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{"/a.txt": "hi"})

	got := collect(t, fsys, []string{"/missing", "/a.txt"})
	assert.Equal(t, []string{"file:a.txt"}, got)
}

func TestItems_EarlyBreak(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{
		"/d/1.txt": "1",
		"/d/2.txt": "2",
		"/d/3.txt": "3",
	})

	n := 0
	for range Items(fsys, []string{"/d"}) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestItems_RecordsSizes(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{"/d/a.txt": "hello"})

	for n, err := range Items(fsys, []string{"/d"}) {
		require.NoError(t, err)
		if n.Kind == File {
			assert.Equal(t, int64(5), n.Size)
			assert.Equal(t, "/d/a.txt", n.Path)
		}
	}
}

func TestCount(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{
		"/a.txt":     "hi",
		"/sub/b.txt": "yo",
	})
	require.NoError(t, fsys.MkdirAll("/sub/empty", 0o755))

	got, err := Count(fsys, []string{"/a.txt", "/sub"})
	require.NoError(t, err)
	// a.txt + sub + sub/b.txt + sub/empty
	assert.Equal(t, 4, got)

	got, err = Count(fsys, nil)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCount_DuplicateNames(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{
		"/x/notes.txt":     "x",
		"/y/notes.txt":     "y",
		"/a/docs/one.txt":  "1",
		"/b/docs/two.txt":  "2",
		"/c/notes.txt/sub": "dir named like a file",
	})

	tests := []struct {
		name  string
		items []string
	}{
		{"two files", []string{"/x/notes.txt", "/y/notes.txt"}},
		{"two directories", []string{"/a/docs", "/b/docs"}},
		{"file and directory", []string{"/x/notes.txt", "/c/notes.txt"}},
		{"same item twice", []string{"/a/docs", "/a/docs/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Count(fsys, tt.items)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "would both be stored as")
		})
	}

	// Nested names that merely share a base are fine.
	got, err := Count(fsys, []string{"/a/docs", "/x/notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestItems_Exclude(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{
		"/home/docs/a.txt":                  "a",
		"/home/backups/b1/docs/a.txt":       "a",
		"/home/backups/b1-checksums.txt":    "x",
		"/home/backups/older/keep.txt":      "k",
		"/home/backups/b1.zip.unrelated":    "u",
		"/home/backups/other-checksums.txt": "o",
	})

	var got []string
	for n, err := range Items(fsys, []string{"/home"}, "/home/backups/b1", "/home/backups/b1-checksums.txt") {
		require.NoError(t, err)
		got = append(got, n.Kind.String()+":"+n.Rel)
	}

	assert.Equal(t, []string{
		"dir:home",
		"dir:home/backups",
		"file:home/backups/b1.zip.unrelated",
		"file:home/backups/other-checksums.txt",
		"dir:home/backups/older",
		"file:home/backups/older/keep.txt",
		"dir:home/docs",
		"file:home/docs/a.txt",
	}, got)

	n, err := Count(fsys, []string{"/home"}, "/home/backups/b1", "/home/backups/b1-checksums.txt")
	require.NoError(t, err)
	assert.Len(t, got, n)

	// An excluded top-level item is dropped entirely.
	assert.Empty(t, collectExcluding(t, fsys, []string{"/home/docs"}, "/home/docs/"))
}

func TestItems_ExcludeKeepsEmptyFlag(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{"/src/out/b1-checksums.txt": "x"})

	for n, err := range Items(fsys, []string{"/src"}, "/src/out/b1-checksums.txt") {
		require.NoError(t, err)
		if n.Rel == "src/out" {
			assert.True(t, n.Empty, "directory holding only excluded entries is empty")
		}
	}
}

func collectExcluding(t *testing.T, fsys afero.Fs, items []string, exclude ...string) []string {
	t.Helper()
	var got []string
	for n, err := range Items(fsys, items, exclude...) {
		require.NoError(t, err)
		got = append(got, n.Rel)
	}
	return got
}

func TestTree(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{
		"/backup/a.txt":     "hi",
		"/backup/sub/b.txt": "yo",
	})

	var got []string
	for n, err := range Tree(fsys, "/backup") {
		require.NoError(t, err)
		got = append(got, n.Kind.String()+":"+n.Rel)
	}
	assert.Equal(t, []string{"dir:", "file:a.txt", "dir:sub", "file:sub/b.txt"}, got)

	for _, err := range Tree(fsys, "/backup/a.txt") {
		assert.Error(t, err)
	}
}

func TestItems_FollowsFileSymlinks(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "target.txt"), []byte("t"), 0o644))
	if err := os.Symlink(filepath.Join(dir, "target.txt"), filepath.Join(src, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got := collect(t, afero.NewOsFs(), []string{src})
	assert.Equal(t, []string{"dir:src", "file:src/link.txt"}, got)
}

func TestItems_MarksEmptyDirectories(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, map[string]string{"/d/a.txt": "a"})
	require.NoError(t, fsys.MkdirAll("/d/empty", 0o755))

	empty := map[string]bool{}
	for n, err := range Items(fsys, []string{"/d"}) {
		require.NoError(t, err)
		if n.Kind == Dir {
			empty[n.Rel] = n.Empty
		}
	}
	assert.Equal(t, map[string]bool{"d": false, "d/empty": true}, empty)
}
