package platform

import (
	"context"
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("Glob() error: %v", err)
	}
	ups, downs := 0, 0
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups++
		case strings.HasSuffix(n, ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("expected paired up/down migrations, got %d up and %d down", ups, downs)
	}

	data, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	for _, table := range []string{"subjects", "runs", "daily_records"} {
		if !strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("init migration does not create %s", table)
		}
	}
}

func TestOpenDBEmptyURL(t *testing.T) {
	if _, err := OpenDB(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}
