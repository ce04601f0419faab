package storage

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/flytam/filenamify"
)

// Manager owns the album output folder and writes downloaded images into it
type Manager struct {
	outputDir string
	overwrite bool
}

// NewManager creates the output folder if absent and returns a manager for it
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		overwrite: overwrite,
	}, nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// FileName derives the on-disk name for an image: the identifier plus a
// zero-padded 1-based position, so files sort in album order.
func (m *Manager) FileName(id string, index int, ext string) string {
	name := fmt.Sprintf("%s_%02d%s", id, index, ext)
	safe, err := filenamify.Filenamify(name, filenamify.Options{})
	if err != nil {
		return name
	}
	return safe
}

// ShouldSkip reports whether a file already exists and overwriting is off
func (m *Manager) ShouldSkip(name string) bool {
	if m.overwrite {
		return false
	}
	_, err := os.Stat(filepath.Join(m.outputDir, name))
	return err == nil
}

// Save writes image data to the named file. The write goes through a temp
// file and an atomic rename so a failed download never leaves a partial
// image behind.
func (m *Manager) Save(r io.Reader, name string) error {
	filename := filepath.Join(m.outputDir, name)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to save image data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// DeriveFolder builds the album folder path from a base directory and an
// album key, sanitized for the filesystem
func DeriveFolder(baseDir, key string) string {
	safe, err := filenamify.Filenamify(key, filenamify.Options{})
	if err != nil || safe == "" {
		safe = key
	}
	return filepath.Join(baseDir, safe)
}

// InferExt picks a file extension for an image: the extension the page
// reported, the response content type, or the URL suffix, in that order.
func InferExt(refExt, contentType, url string) string {
	if refExt != "" {
		return refExt
	}

	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case "image/jpeg":
				return ".jpg"
			case "image/png":
				return ".png"
			case "image/gif":
				return ".gif"
			case "image/webp":
				return ".webp"
			}
		}
	}

	if ext := filepath.Ext(url); ext != "" && !strings.ContainsAny(ext, "/?") {
		return ext
	}

	return ".jpg"
}
