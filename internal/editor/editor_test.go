package editor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDetectEditor_KeepsafeEditor(t *testing.T) {
	t.Setenv(EnvEditor, "hx")
	t.Setenv("EDITOR", "nvim")

	if got := detectEditor(); got != "hx" {
		t.Errorf("detectEditor() = %q, want %q", got, "hx")
	}
}

func TestDetectEditor_EnvEditor(t *testing.T) {
	t.Setenv(EnvEditor, "")
	t.Setenv("EDITOR", "nvim")
	t.Setenv("VISUAL", "code")

	got := detectEditor()
	if got != "nvim" {
		t.Errorf("detectEditor() = %q, want %q", got, "nvim")
	}
}

func TestDetectEditor_EnvVisual(t *testing.T) {
	t.Setenv(EnvEditor, "")
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "code")

	got := detectEditor()
	if got != "code" {
		t.Errorf("detectEditor() = %q, want %q", got, "code")
	}
}

func TestDetectEditor_FallbackNano(t *testing.T) {
	t.Setenv(EnvEditor, "")
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")

	got := detectEditor()

	// Should be nano if available, otherwise vi
	if _, err := exec.LookPath("nano"); err == nil {
		if got != "nano" {
			t.Errorf("detectEditor() = %q, want %q (nano available)", got, "nano")
		}
	} else {
		if got != "vi" {
			t.Errorf("detectEditor() = %q, want %q (nano not available)", got, "vi")
		}
	}
}

func TestDetectEditor_EmptyEnvTreatedAsUnset(t *testing.T) {
	t.Setenv(EnvEditor, "  ")
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "vscode")

	got := detectEditor()
	if got != "vscode" {
		t.Errorf("detectEditor() = %q, want %q (blank values should fall through)", got, "vscode")
	}
}

func TestOpen_Integration(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping integration test on windows (uses shell script mock)")
	}

	tmpDir := t.TempDir()
	mockEditor := filepath.Join(tmpDir, "mock-editor.sh")
	outputFile := filepath.Join(tmpDir, "output.txt")

	script := "#!/bin/sh\necho \"$@\" > " + outputFile + "\n"
	if err := os.WriteFile(mockEditor, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvEditor, "")
	t.Setenv("EDITOR", mockEditor+" --wait")

	targetFile := filepath.Join(tmpDir, "settings.yaml")
	if err := os.WriteFile(targetFile, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Open(context.Background(), targetFile); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatal(err)
	}

	if want := "--wait " + targetFile; !strings.Contains(string(got), want) {
		t.Errorf("mock editor output = %q, want it to contain %q", string(got), want)
	}
}

func TestOpen_NoEditor(t *testing.T) {
	t.Setenv(EnvEditor, "non-existent-binary-12345")

	err := Open(context.Background(), "settings.yaml")
	if err == nil {
		t.Error("expected error for non-existent editor, got nil")
	}
}
