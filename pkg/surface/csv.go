package surface

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/scoring"
	"github.com/destinyclock/destinyclock/pkg/series"
)

// CSVHeader is the column layout of a series file.
var CSVHeader = []string{
	"date", "period", "year", "month", "day",
	"period_score", "year_score", "month_score", "day_score", "final_score",
}

var _ series.Sink = (*CSVWriter)(nil)

// CSVWriter writes daily records as CSV rows. Every row is flushed as it is
// written, so an interrupted run leaves a valid prefix.
type CSVWriter struct {
	w       *csv.Writer
	closer  io.Closer
	started bool
}

// NewCSVWriter writes to w. The header is written with the first record.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// CreateCSV creates (or truncates) the file at path, making parent
// directories as needed.
func CreateCSV(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating series dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating series file: %w", err)
	}
	cw := NewCSVWriter(f)
	cw.closer = f
	return cw, nil
}

// WriteHeader writes the header row. It is implied by the first record.
func (c *CSVWriter) WriteHeader() error {
	if c.started {
		return nil
	}
	c.started = true
	if err := c.w.Write(CSVHeader); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// WriteRecord implements series.Sink.
func (c *CSVWriter) WriteRecord(rec scoring.DailyRecord) error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	row := []string{
		rec.Date.Format(time.DateOnly),
		rec.Period.String(), rec.Year.String(), rec.Month.String(), rec.Day.String(),
		strconv.Itoa(rec.PeriodScore), strconv.Itoa(rec.YearScore),
		strconv.Itoa(rec.MonthScore), strconv.Itoa(rec.DayScore),
		strconv.Itoa(rec.FinalScore),
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the underlying file, if any.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		err = errors.Join(err, c.closer.Close())
	}
	return err
}

// WriteCSV writes a whole series.
func WriteCSV(w io.Writer, s *series.Series) error {
	cw := NewCSVWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	for _, rec := range s.Records() {
		if err := cw.WriteRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

// ReadCSV parses a series file. Rows must be in ascending date order; a
// truncated final row is rejected.
func ReadCSV(r io.Reader) (*series.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("series file is empty")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, h := range CSVHeader {
		if header[i] != h {
			return nil, fmt.Errorf("unexpected column %d %q, want %q", i+1, header[i], h)
		}
	}

	var records []scoring.DailyRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return series.New(records)
}

// LoadCSV reads a series file from disk.
func LoadCSV(path string) (*series.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening series: %w", err)
	}
	defer f.Close()
	s, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func parseRow(row []string) (scoring.DailyRecord, error) {
	var rec scoring.DailyRecord
	d, err := time.Parse(time.DateOnly, row[0])
	if err != nil {
		return rec, fmt.Errorf("date: %w", err)
	}
	rec.Date = d

	pillars := []*ganzhi.Pillar{&rec.Period, &rec.Year, &rec.Month, &rec.Day}
	for i, p := range pillars {
		v, err := ganzhi.ParsePillar(row[1+i])
		if err != nil {
			return rec, fmt.Errorf("%s: %w", CSVHeader[1+i], err)
		}
		*p = v
	}

	scores := []*int{&rec.PeriodScore, &rec.YearScore, &rec.MonthScore, &rec.DayScore, &rec.FinalScore}
	for i, p := range scores {
		v, err := strconv.Atoi(row[5+i])
		if err != nil {
			return rec, fmt.Errorf("%s: %w", CSVHeader[5+i], err)
		}
		*p = v
	}
	return rec, nil
}

// FailuresHeader is the column layout of a failures sidecar.
var FailuresHeader = []string{"date", "error"}

// WriteFailures writes one row per date that could not be scored.
func WriteFailures(w io.Writer, failures []series.Failure) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FailuresHeader); err != nil {
		return err
	}
	for _, f := range failures {
		if err := cw.Write([]string{f.Date.Format(time.DateOnly), f.Err}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FailuresPath is the sidecar listing the failed dates of a series file.
func FailuresPath(seriesPath string) string { return seriesPath + ".failures" }

// SaveFailures writes the failures sidecar next to a series file, or removes
// a stale one when there are none.
func SaveFailures(seriesPath string, failures []series.Failure) error {
	path := FailuresPath(seriesPath)
	if len(failures) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing stale failures: %w", err)
		}
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating failures file: %w", err)
	}
	if err := WriteFailures(f, failures); err != nil {
		f.Close()
		return fmt.Errorf("writing failures: %w", err)
	}
	return f.Close()
}
