package ingestion

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
)

// GCSStorage implements StorageClient using Google Cloud Storage.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage creates a GCS-backed StorageClient using Application Default
// Credentials.
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

// PutSeries uploads a series file.
func (s *GCSStorage) PutSeries(ctx context.Context, subjectID, runID string, data []byte) error {
	key := SeriesKey(subjectID, runID)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = seriesContentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", key, err)
	}
	return nil
}

// GetSeries downloads a series file.
func (s *GCSStorage) GetSeries(ctx context.Context, subjectID, runID string) ([]byte, error) {
	key := SeriesKey(subjectID, runID)
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs read %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Close releases the client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
