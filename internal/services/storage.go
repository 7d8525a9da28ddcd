package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStorage stores voucher images/PDFs as opaque blobs. The ledger only
// keeps the returned reference, never inspects content.
type FileStorage interface {
	// Save stores the content and returns a storage reference
	Save(filename string, content io.Reader) (string, error)
	// Replace overwrites the blob behind an existing reference
	Replace(ref string, content io.Reader) error
	// Open returns a reader for the blob behind the reference
	Open(ref string) (io.ReadCloser, error)
}

// LocalFileStorage keeps voucher files on local disk under a base directory
type LocalFileStorage struct {
	baseDir string
}

// NewLocalFileStorage creates the base directory if missing
func NewLocalFileStorage(baseDir string) (*LocalFileStorage, error) {
	if baseDir == "" {
		baseDir = "./storage/vouchers"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalFileStorage{baseDir: baseDir}, nil
}

// Save writes the content under a generated name, keeping the original extension
func (s *LocalFileStorage) Save(filename string, content io.Reader) (string, error) {
	ref := uuid.New().String() + filepath.Ext(filename)
	if err := s.write(ref, content); err != nil {
		return "", err
	}
	return ref, nil
}

// Replace overwrites the blob in place so the old file is gone after a
// voucher replacement
func (s *LocalFileStorage) Replace(ref string, content io.Reader) error {
	if ref == "" {
		return fmt.Errorf("empty storage reference")
	}
	return s.write(ref, content)
}

// Open returns the stored blob
func (s *LocalFileStorage) Open(ref string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.baseDir, filepath.Base(ref)))
}

func (s *LocalFileStorage) write(ref string, content io.Reader) error {
	path := filepath.Join(s.baseDir, filepath.Base(ref))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create voucher file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return fmt.Errorf("failed to write voucher file: %w", err)
	}
	return nil
}
