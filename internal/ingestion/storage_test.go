package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSeriesKey(t *testing.T) {
	if got := SeriesKey("demo", "run-1"); got != "demo/series/run-1.csv" {
		t.Errorf("SeriesKey = %q", got)
	}
}

func TestLocalStoragePutGetSeries(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte("date,period\n")
	if err := s.PutSeries(ctx, "demo", "run1", data); err != nil {
		t.Fatalf("PutSeries: %v", err)
	}

	got, err := s.GetSeries(ctx, "demo", "run1")
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetSeries = %q, want %q", got, data)
	}

	expectedPath := filepath.Join(dir, "demo", "series", "run1.csv")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStorageGetNotFound(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	if _, err := s.GetSeries(context.Background(), "demo", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent series")
	}
}
