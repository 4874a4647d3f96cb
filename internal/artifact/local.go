package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const reportExtension = ".pdf"

// LocalStore keeps artifacts as files in a single directory.
type LocalStore struct {
	dir    string
	logger *slog.Logger
}

// NewLocalStore creates the directory if needed and returns a store rooted at it.
func NewLocalStore(dir string, logger *slog.Logger) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	logger.Info("Local artifact store ready", slog.String("dir", dir))

	return &LocalStore{dir: dir, logger: logger}, nil
}

// Save writes data to <jobID>.pdf. The file appears atomically.
func (s *LocalStore) Save(ctx context.Context, jobID uuid.UUID, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	locator := jobID.String() + reportExtension

	tmp, err := os.CreateTemp(s.dir, locator+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, locator)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}

	s.logger.Debug("Artifact saved",
		slog.String("job_id", jobID.String()),
		slog.String("locator", locator),
		slog.Int("size", len(data)),
	)

	return locator, nil
}

// Open returns the stored file. Locators that are not a bare file name never resolve.
func (s *LocalStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, ok := s.resolve(locator)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrArtifactNotFound, locator)
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrArtifactNotFound, locator)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}

	return f, nil
}

// Delete removes the file; a missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, ok := s.resolve(locator)
	if !ok {
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	return nil
}

func (s *LocalStore) resolve(locator string) (string, bool) {
	if locator == "" || locator != filepath.Base(locator) || locator == "." || locator == ".." {
		return "", false
	}
	return filepath.Join(s.dir, locator), true
}
