package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrS3NotConfigured is returned when publishing is attempted without
// proper S3 configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// LocalStorage implements the Storage interface using local disk.
// It stages scratch artifacts in uuid-named run directories under the
// output root and does not support publishing unless wrapped with
// S3Storage.
type LocalStorage struct {
	outputDir string
	runID     string
}

// NewLocalStorage creates a new LocalStorage instance rooted at outputDir.
// If outputDir is empty, "output" is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(outputDir string) (*LocalStorage, error) {
	if outputDir == "" {
		outputDir = "output"
	}

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &LocalStorage{outputDir: outputDir}, nil
}

// OutputDir returns the output root path.
func (s *LocalStorage) OutputDir() string {
	return s.outputDir
}

// RunID returns the identifier of the current run, or the empty string
// before RunDir has been called.
func (s *LocalStorage) RunID() string {
	return s.runID
}

// RunDir creates a uuid-named scratch directory under runs/ and returns
// its path. Each call starts a new run.
func (s *LocalStorage) RunDir() (string, error) {
	id := uuid.New().String()
	dir := filepath.Join(s.outputDir, "runs", id)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}

	s.runID = id
	return dir, nil
}

// Keep promotes a scratch artifact into the output root under its base
// name and returns the final path. Rename is attempted first with a copy
// fallback for cross-device moves.
func (s *LocalStorage) Keep(path string) (string, error) {
	final := filepath.Join(s.outputDir, filepath.Base(path))

	if err := os.Rename(path, final); err != nil {
		if copyErr := copyFile(path, final); copyErr != nil {
			return "", fmt.Errorf("keep %s: %w", path, copyErr)
		}
		_ = os.Remove(path)
	}

	return final, nil
}

// Publish is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _ []string) ([]string, error) {
	return nil, ErrS3NotConfigured
}

// copyFile copies src to dst, removing dst on a partial write.
func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}

	return out.Close()
}
