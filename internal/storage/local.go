package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalFileStorage implements the Storage interface for local filesystem
type LocalFileStorage struct {
	outputDir string
	tempDir   string
}

// NewLocalFileStorage creates a new local file storage instance
func NewLocalFileStorage(outputDir, tempDir string) (*LocalFileStorage, error) {
	// Ensure directories exist
	for _, dir := range []string{outputDir, tempDir} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &LocalFileStorage{
		outputDir: outputDir,
		tempDir:   tempDir,
	}, nil
}

// SaveArtifact writes the artifact into the output directory. The file is
// written under a temporary name and renamed once complete.
func (s *LocalFileStorage) SaveArtifact(_ context.Context, name string, r io.Reader) (string, int64, error) {
	if err := checkName(name); err != nil {
		return "", 0, err
	}

	path := filepath.Join(s.outputDir, name)
	tmp, err := os.CreateTemp(s.outputDir, ".partial-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("failed to move artifact into place: %w", err)
	}

	return path, size, nil
}

// Open returns a reader for the specified artifact
func (s *LocalFileStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.outputDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return f, nil
}

// List lists artifacts matching a prefix
func (s *LocalFileStorage) List(_ context.Context, prefix string) ([]string, error) {
	files, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var results []string
	for _, file := range files {
		if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
			continue
		}

		if prefix != "" && !strings.HasPrefix(file.Name(), prefix) {
			continue
		}

		results = append(results, file.Name())
	}
	sort.Strings(results)

	return results, nil
}

// ImportPath returns a path in the temp directory
func (s *LocalFileStorage) ImportPath(name string) (string, error) {
	return importPath(s.tempDir, name)
}

func (s *LocalFileStorage) Close() error {
	return nil
}

func importPath(tempDir, name string) (string, error) {
	base := filepath.Base(name)
	if err := checkName(base); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(tempDir, "import-*")
	if err != nil {
		return "", fmt.Errorf("failed to create import directory: %w", err)
	}
	return filepath.Join(dir, base), nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
