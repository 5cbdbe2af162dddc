// Package blob stores attachment payloads on the local filesystem,
// one file per opaque reference.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"taskboard/internal/domain"
)

type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating blob directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(ref string) string {
	return filepath.Join(s.dir, ref)
}

// Store writes the payload to a fresh file and returns its reference.
// A failed or cancelled copy removes the partial file.
func (s *FileStore) Store(ctx context.Context, r io.Reader) (string, error) {
	ref := uuid.NewString()
	f, err := os.Create(s.path(ref))
	if err != nil {
		return "", fmt.Errorf("error creating blob file: %w", err)
	}

	_, err = io.Copy(f, &contextReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(s.path(ref))
		return "", fmt.Errorf("error writing blob: %w", err)
	}
	return ref, nil
}

func (s *FileStore) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(ref))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: blob %s", domain.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening blob: %w", err)
	}
	return f, nil
}

func (s *FileStore) Remove(ctx context.Context, ref string) error {
	err := os.Remove(s.path(ref))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: blob %s", domain.ErrNotFound, ref)
	}
	if err != nil {
		return fmt.Errorf("error removing blob: %w", err)
	}
	return nil
}

// contextReader aborts a long copy once the context is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
