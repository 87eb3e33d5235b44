package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"receiptsnap/constants"
)

// ObjectStore defines the interface for receipt image storage.
type ObjectStore interface {
	// Put writes data under path, creating parent directories as needed.
	Put(path string, data []byte) error

	// Get retrieves an object by path.
	Get(path string) ([]byte, error)

	// Delete removes an object.
	Delete(path string) error
}

// LocalStore implements ObjectStore on the local filesystem.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a LocalStore rooted at baseDir.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (l *LocalStore) resolve(path string) (string, error) {
	// Stored paths are always "<userID>/<name>"; reject anything that
	// would escape the base directory.
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(l.baseDir, clean), nil
}

func (l *LocalStore) Put(path string, data []byte) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("writing object: %w", err)
	}
	return nil
}

func (l *LocalStore) Get(path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return data, nil
}

func (l *LocalStore) Delete(path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

// UploadPath builds a collision-free storage path for a new upload,
// namespaced by the owning user.
func UploadPath(userID uuid.UUID, contentType string) string {
	return fmt.Sprintf("%s/%s.%s", userID, uuid.New(), constants.ExtForType(contentType))
}
