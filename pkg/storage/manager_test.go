package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager(t *testing.T) {
	tempDir := t.TempDir()
	outputDir := filepath.Join(tempDir, "album")

	// Creating the manager must create the folder
	manager, err := NewManager(outputDir, true)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		t.Fatal("Expected output directory to be created")
	}

	// Save writes the file and leaves no temp file behind
	testData := []byte("image bytes")
	name := manager.FileName("fGWX0", 1, ".jpg")
	if err := manager.Save(bytes.NewReader(testData), name); err != nil {
		t.Fatalf("Failed to save image: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(outputDir, name))
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("Temp file left behind: %s", entry.Name())
		}
	}

	// Overwriting the same file is not an error
	if err := manager.Save(bytes.NewReader([]byte("other bytes")), name); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	content, _ = os.ReadFile(filepath.Join(outputDir, name))
	if string(content) != "other bytes" {
		t.Error("Expected overwritten content")
	}
}

func TestFileName(t *testing.T) {
	manager, err := NewManager(t.TempDir(), true)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if got := manager.FileName("fGWX0", 1, ".jpg"); got != "fGWX0_01.jpg" {
		t.Errorf("FileName = %q, want fGWX0_01.jpg", got)
	}
	if got := manager.FileName("aB3dE", 12, ".png"); got != "aB3dE_12.png" {
		t.Errorf("FileName = %q, want aB3dE_12.png", got)
	}
}

func TestShouldSkip(t *testing.T) {
	tempDir := t.TempDir()
	name := "fGWX0_01.jpg"
	if err := os.WriteFile(filepath.Join(tempDir, name), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	overwriting, _ := NewManager(tempDir, true)
	if overwriting.ShouldSkip(name) {
		t.Error("Overwriting manager must not skip existing files")
	}

	skipping, _ := NewManager(tempDir, false)
	if !skipping.ShouldSkip(name) {
		t.Error("Skipping manager must skip existing files")
	}
	if skipping.ShouldSkip("other_02.jpg") {
		t.Error("Skipping manager must not skip absent files")
	}
}

func TestDeriveFolder(t *testing.T) {
	got := DeriveFolder("/base", "abc123")
	if got != filepath.Join("/base", "abc123") {
		t.Errorf("DeriveFolder = %q", got)
	}

	// Path separators must not survive into the folder name
	got = DeriveFolder("/base", "a/b")
	if strings.Contains(filepath.Base(got), "/") {
		t.Errorf("DeriveFolder did not sanitize: %q", got)
	}
}

func TestInferExt(t *testing.T) {
	tests := []struct {
		refExt      string
		contentType string
		url         string
		want        string
	}{
		{".png", "image/jpeg", "http://x/y.gif", ".png"},
		{"", "image/jpeg", "http://x/y", ".jpg"},
		{"", "image/png; charset=binary", "http://x/y", ".png"},
		{"", "image/webp", "http://x/y", ".webp"},
		{"", "", "http://x/y.gif", ".gif"},
		{"", "", "http://x/y", ".jpg"},
		{"", "text/html", "http://x/y", ".jpg"},
	}

	for _, tt := range tests {
		if got := InferExt(tt.refExt, tt.contentType, tt.url); got != tt.want {
			t.Errorf("InferExt(%q, %q, %q) = %q, want %q", tt.refExt, tt.contentType, tt.url, got, tt.want)
		}
	}
}
