package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps deliverable files on disk under a base directory.
// Files are addressed by a relative storage ID so the base dir can move
// between environments without rewriting references.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./deliverables"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create deliverables directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveStream copies the reader into the file addressed by storageID.
func (s *LocalStorage) SaveStream(storageID string, r io.Reader) (int64, error) {
	path, err := s.resolve(storageID)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare deliverable directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create deliverable file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	written, err := io.Copy(file, r)
	if err != nil {
		return 0, fmt.Errorf("write deliverable stream: %w", err)
	}
	return written, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(storageID string) (*os.File, error) {
	path, err := s.resolve(storageID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open deliverable file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(storageID string) error {
	path, err := s.resolve(storageID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete deliverable file: %w", err)
	}
	return nil
}

// resolve maps a storage ID to an absolute path, rejecting escapes from the
// base directory.
func (s *LocalStorage) resolve(storageID string) (string, error) {
	cleaned := filepath.Clean(storageID)
	if cleaned == "." || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid storage id %q", storageID)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
