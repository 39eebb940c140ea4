package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tamperscope/tamperscope/pkg/config"
)

func TestLocalStoragePutGetDocument(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte("%PDF-1.7\n%%EOF\n")
	if err := s.PutDocument(ctx, "a1", data); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}

	got, err := s.GetDocument(ctx, "a1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetDocument = %q, want %q", got, data)
	}

	// Verify file path layout
	expectedPath := filepath.Join(dir, "documents", "a1.bin")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStoragePutGetReport(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"total_score":3}`)
	if err := s.PutReport(ctx, "a1", data); err != nil {
		t.Fatalf("PutReport: %v", err)
	}

	got, err := s.GetReport(ctx, "a1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetReport = %q, want %q", got, data)
	}

	expectedPath := filepath.Join(dir, "reports", "a1.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStorageGetNotFound(t *testing.T) {
	s := NewLocalStorage(t.TempDir())

	_, err := s.GetReport(context.Background(), "nonexistent")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, kind, id, want string
	}{
		{"", kindDocuments, "x", "documents/x.bin"},
		{"", kindReports, "x", "reports/x.json"},
		{"prod", kindReports, "x", "prod/reports/x.json"},
	}
	for _, tc := range tests {
		if got := objectKey(tc.prefix, tc.kind, tc.id); got != tc.want {
			t.Errorf("objectKey(%q, %q, %q) = %q, want %q", tc.prefix, tc.kind, tc.id, got, tc.want)
		}
	}
}

func TestNewStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(context.Background(), config.StorageConfig{Backend: "local", Dir: dir})
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	local, ok := s.(*LocalStorage)
	if !ok || local.BaseDir != dir {
		t.Errorf("expected local storage at %s, got %#v", dir, s)
	}

	if _, err := NewStorage(context.Background(), config.StorageConfig{Backend: "ftp"}); !errors.Is(err, config.ErrStorageBackend) {
		t.Errorf("expected ErrStorageBackend, got %v", err)
	}
	if _, err := NewStorage(context.Background(), config.StorageConfig{Backend: "s3"}); err == nil {
		t.Error("expected error for s3 without bucket")
	}
}
