// Package ingestion runs batch generations for configured subjects and keeps
// their results: the series file in blob storage, the records in Postgres,
// and one message per record on the record stream.
package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StorageClient abstracts blob storage for generated series files.
type StorageClient interface {
	PutSeries(ctx context.Context, subjectID, runID string, data []byte) error
	GetSeries(ctx context.Context, subjectID, runID string) ([]byte, error)
}

const seriesContentType = "text/csv; charset=utf-8"

// SeriesKey is the blob key of a run's series file.
func SeriesKey(subjectID, runID string) string {
	return subjectID + "/series/" + runID + ".csv"
}

// LocalStorage implements StorageClient using the local filesystem.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(subjectID, runID string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(SeriesKey(subjectID, runID)))
}

// PutSeries stores a series file.
func (s *LocalStorage) PutSeries(ctx context.Context, subjectID, runID string, data []byte) error {
	path := s.path(subjectID, runID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GetSeries retrieves a series file.
func (s *LocalStorage) GetSeries(ctx context.Context, subjectID, runID string) ([]byte, error) {
	return os.ReadFile(s.path(subjectID, runID))
}
