package surface_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/destinyclock/destinyclock/pkg/series"
	"github.com/destinyclock/destinyclock/pkg/surface"
)

func TestCSVWriterFormat(t *testing.T) {
	var buf bytes.Buffer
	w := surface.NewCSVWriter(&buf)
	if err := w.WriteRecord(sampleRecord()); err != nil {
		t.Fatalf("WriteRecord() error: %v", err)
	}

	want := "date,period,year,month,day,period_score,year_score,month_score,day_score,final_score\n" +
		"2025-06-11,己卯,乙巳,壬午,辛亥,7,9,14,14,41\n"
	if got := buf.String(); got != want {
		t.Errorf("csv mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestCSVRoundTripSeries(t *testing.T) {
	s := sampleSeries(t)
	var buf bytes.Buffer
	if err := surface.WriteCSV(&buf, s); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	got, err := surface.ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if diff := cmp.Diff(s.Records(), got.Records()); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateCSVFlushesEachRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "series.csv")
	w, err := surface.CreateCSV(path)
	if err != nil {
		t.Fatalf("CreateCSV() error: %v", err)
	}
	if err := w.WriteRecord(sampleRecord()); err != nil {
		t.Fatalf("WriteRecord() error: %v", err)
	}

	// Readable before Close, as an interrupted run would leave it.
	s, err := surface.LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() before close error: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 record, got %d", s.Len())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestReadCSVErrors(t *testing.T) {
	header := strings.Join(surface.CSVHeader, ",") + "\n"
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", "", "empty"},
		{"wrong header", "day,x,y,z,a,b,c,d,e,f\n", "unexpected column"},
		{"bad pillar", header + "2025-06-11,XX,乙巳,壬午,辛亥,7,9,14,14,44\n", "period"},
		{"bad score", header + "2025-06-11,己卯,乙巳,壬午,辛亥,7,9,14,14,lots\n", "final_score"},
		{"truncated row", header + "2025-06-11,己卯,乙巳\n", "line 2"},
		{"unordered", header +
			"2025-06-12,己卯,乙巳,壬午,壬子,7,9,14,22,52\n" +
			"2025-06-11,己卯,乙巳,壬午,辛亥,7,9,14,14,44\n", "not ascending"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := surface.ReadCSV(strings.NewReader(tc.data))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSaveFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	failures := []series.Failure{
		{Date: time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC), Err: "oracle failure: no pillars"},
		{Date: time.Date(2025, time.June, 12, 0, 0, 0, 0, time.UTC), Err: "oracle failure: no pillars"},
	}
	if err := surface.SaveFailures(path, failures); err != nil {
		t.Fatalf("SaveFailures() error: %v", err)
	}
	data, err := os.ReadFile(surface.FailuresPath(path))
	if err != nil {
		t.Fatalf("reading sidecar: %v", err)
	}
	want := "date,error\n2025-06-11,oracle failure: no pillars\n2025-06-12,oracle failure: no pillars\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("sidecar mismatch (-want +got):\n%s", diff)
	}

	if err := surface.SaveFailures(path, nil); err != nil {
		t.Fatalf("SaveFailures(nil) error: %v", err)
	}
	if _, err := os.Stat(surface.FailuresPath(path)); !os.IsNotExist(err) {
		t.Errorf("expected stale sidecar to be removed, stat err = %v", err)
	}
}
