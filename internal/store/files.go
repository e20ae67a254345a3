package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Files defines the interface for receipt file storage
type Files interface {
	// Save saves a file and returns the stored name
	Save(name string, data []byte) (string, error)

	// Get retrieves a file by stored name
	Get(name string) ([]byte, error)

	// Delete removes a file
	Delete(name string) error
}

// LocalFiles implements Files on the local filesystem
type LocalFiles struct {
	basePath string
}

// NewLocalFiles creates the storage directory if needed
func NewLocalFiles(basePath string) (*LocalFiles, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalFiles{basePath: basePath}, nil
}

// Save writes data under name
func (l *LocalFiles) Save(name string, data []byte) (string, error) {
	name = filepath.Base(name)
	if err := os.WriteFile(filepath.Join(l.basePath, name), data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return name, nil
}

// Get reads the file stored under name
func (l *LocalFiles) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes the file stored under name
func (l *LocalFiles) Delete(name string) error {
	if err := os.Remove(filepath.Join(l.basePath, filepath.Base(name))); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates long phone-generated names
func sanitizeFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaces.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "bill"
	}
	return base + ext
}
