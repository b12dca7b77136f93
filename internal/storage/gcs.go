package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage implements the Storage interface for Google Cloud Storage
type GCSStorage struct {
	client        *storage.Client
	bucket        string
	tempDir       string
	objectPrefix  string
	publicBaseURL string
}

// NewGCSStorage creates a new GCSStorage instance
func NewGCSStorage(ctx context.Context, bucketName, objectPrefix, tempDir, credentialsFile, publicBaseURL string) (*GCSStorage, error) {
	var client *storage.Client
	var err error

	// Create a client
	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		// Use application default credentials
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	// Imported media stays on local disk for the decoders
	if err := os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &GCSStorage{
		client:        client,
		bucket:        bucketName,
		tempDir:       tempDir,
		objectPrefix:  strings.Trim(objectPrefix, "/"),
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

func (s *GCSStorage) objectName(name string) string {
	if s.objectPrefix == "" {
		return name
	}
	return s.objectPrefix + "/" + name
}

// SaveArtifact uploads the artifact to the bucket
func (s *GCSStorage) SaveArtifact(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	if err := checkName(name); err != nil {
		return "", 0, err
	}
	objectName := s.objectName(name)

	ctx, cancel := context.WithTimeout(ctx, time.Minute*5)
	defer cancel()

	wc := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	size, err := io.Copy(wc, r)
	if err != nil {
		wc.Close()
		return "", 0, fmt.Errorf("failed to copy artifact to GCS: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	// Return the public URL if available, or just the object name
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, objectName), size, nil
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), size, nil
}

// Open returns a reader for a stored artifact
func (s *GCSStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return r, nil
}

// List lists artifacts in the bucket matching a prefix
func (s *GCSStorage) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
		Prefix: s.objectName(prefix),
	})

	var results []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}

		// Skip directories (objects ending with /)
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		results = append(results, path.Base(attrs.Name))
	}

	return results, nil
}

// ImportPath returns a local path in the temp directory
func (s *GCSStorage) ImportPath(name string) (string, error) {
	return importPath(s.tempDir, name)
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
