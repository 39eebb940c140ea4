// Package ingestion stores submitted documents, runs them through the risk
// orchestrator and keeps analysis rows and report blobs.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tamperscope/tamperscope/pkg/config"
)

// ErrBlobNotFound is returned by a StorageClient for a missing object.
var ErrBlobNotFound = errors.New("blob not found")

// StorageClient abstracts blob storage for submitted documents and their
// rendered reports.
type StorageClient interface {
	PutDocument(ctx context.Context, analysisID string, data []byte) error
	GetDocument(ctx context.Context, analysisID string) ([]byte, error)
	PutReport(ctx context.Context, analysisID string, data []byte) error
	GetReport(ctx context.Context, analysisID string) ([]byte, error)
}

const (
	kindDocuments = "documents"
	kindReports   = "reports"
)

// objectKey is the blob layout shared by every backend.
func objectKey(prefix, kind, id string) string {
	name := id + ".bin"
	if kind == kindReports {
		name = id + ".json"
	}
	if prefix == "" {
		return kind + "/" + name
	}
	return prefix + "/" + kind + "/" + name
}

func contentType(kind string) string {
	if kind == kindReports {
		return "application/json"
	}
	return "application/octet-stream"
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(kind, id string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(objectKey("", kind, id)))
}

func (s *LocalStorage) put(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *LocalStorage) get(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrBlobNotFound)
	}
	return data, err
}

// PutDocument stores the submitted document bytes.
func (s *LocalStorage) PutDocument(ctx context.Context, analysisID string, data []byte) error {
	return s.put(s.path(kindDocuments, analysisID), data)
}

// GetDocument retrieves the submitted document bytes.
func (s *LocalStorage) GetDocument(ctx context.Context, analysisID string) ([]byte, error) {
	return s.get(s.path(kindDocuments, analysisID))
}

// PutReport stores a JSON report.
func (s *LocalStorage) PutReport(ctx context.Context, analysisID string, data []byte) error {
	return s.put(s.path(kindReports, analysisID), data)
}

// GetReport retrieves a JSON report.
func (s *LocalStorage) GetReport(ctx context.Context, analysisID string) ([]byte, error) {
	return s.get(s.path(kindReports, analysisID))
}

// NewStorage builds the StorageClient selected by cfg. The local backend
// defaults to config.ReportDir.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (StorageClient, error) {
	switch cfg.Backend {
	case "", "local":
		dir := cfg.Dir
		if dir == "" {
			dir = config.ReportDir()
		}
		return NewLocalStorage(dir), nil
	case "s3":
		return NewS3Storage(ctx, S3Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix, Region: cfg.Region, Endpoint: cfg.Endpoint})
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("storage backend %q: %w", cfg.Backend, config.ErrStorageBackend)
	}
}
