package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jaki95/timeline-editor/config"
)

var ErrNotFound = errors.New("artifact not found")

// Storage delivers export artifacts and keeps imported media on local disk.
type Storage interface {
	// SaveArtifact stores an export under name and returns where it went.
	SaveArtifact(ctx context.Context, name string, r io.Reader) (location string, size int64, err error)

	// Open returns a reader for a stored artifact.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// List returns the names of stored artifacts starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// ImportPath returns a local path an uploaded media file can be written to.
	ImportPath(name string) (string, error)

	Close() error
}

// New creates the backend named by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		s, err := NewLocalFileStorage(cfg.OutputDir, cfg.TempDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gcs":
		s, err := NewGCSStorage(ctx, cfg.Bucket, cfg.ObjectPrefix, cfg.TempDir, cfg.CredentialsFile, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
