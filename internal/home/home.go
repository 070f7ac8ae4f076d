package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultDirName is the default name for the digest home directory.
	DefaultDirName = ".digest"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// ExportsDirName is the subdirectory for saved summaries.
	ExportsDirName = "exports"
)

// Dir represents the digest home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.digest).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// ExportsDir returns the directory for saved summaries.
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, ExportsDirName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.ExportsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", d.ExportsDir(), err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// ExportPath returns the path a summary of title would be saved to at time t.
func (d *Dir) ExportPath(title string, t time.Time) string {
	name := fmt.Sprintf("%s-%s.md", Slug(title), t.Format("20060102-150405"))
	return filepath.Join(d.ExportsDir(), name)
}

// SaveExport writes a rendered summary into the exports directory and returns its path.
func (d *Dir) SaveExport(title, content string) (string, error) {
	if err := os.MkdirAll(d.ExportsDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}
	path := d.ExportPath(title, time.Now())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// Slug converts a title into a lowercase file-name-safe string.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "summary"
	}
	return s
}
