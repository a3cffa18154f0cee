// Package series generates dense daily score series and answers read-only
// analytical queries over them.
package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/destinyclock/destinyclock/pkg/scoring"
)

// Series is a date-ascending sequence of daily records. It is never mutated
// after construction; every query returns fresh values.
type Series struct {
	records []scoring.DailyRecord
}

// New validates that dates are strictly ascending and copies the records.
func New(records []scoring.DailyRecord) (*Series, error) {
	out := make([]scoring.DailyRecord, len(records))
	copy(out, records)
	for i := 1; i < len(out); i++ {
		if !out[i].Date.After(out[i-1].Date) {
			return nil, fmt.Errorf("series not ascending at %s (after %s)",
				out[i].Date.Format(time.DateOnly), out[i-1].Date.Format(time.DateOnly))
		}
	}
	return &Series{records: out}, nil
}

func (s *Series) Len() int { return len(s.records) }

// Records returns a copy of the records.
func (s *Series) Records() []scoring.DailyRecord {
	out := make([]scoring.DailyRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Record returns the i-th record.
func (s *Series) Record(i int) scoring.DailyRecord { return s.records[i] }

// Start and End return the first and last dates; zero for an empty series.
func (s *Series) Start() time.Time {
	if len(s.records) == 0 {
		return time.Time{}
	}
	return s.records[0].Date
}

func (s *Series) End() time.Time {
	if len(s.records) == 0 {
		return time.Time{}
	}
	return s.records[len(s.records)-1].Date
}

// At returns the record for a date.
func (s *Series) At(date time.Time) (scoring.DailyRecord, bool) {
	d := day(date)
	i := sort.Search(len(s.records), func(i int) bool { return !s.records[i].Date.Before(d) })
	if i < len(s.records) && s.records[i].Date.Equal(d) {
		return s.records[i], true
	}
	return scoring.DailyRecord{}, false
}

// Slice returns the records between start and end inclusive.
func (s *Series) Slice(start, end time.Time) *Series {
	lo := sort.Search(len(s.records), func(i int) bool { return !s.records[i].Date.Before(day(start)) })
	hi := sort.Search(len(s.records), func(i int) bool { return s.records[i].Date.After(day(end)) })
	if hi < lo {
		hi = lo
	}
	out := make([]scoring.DailyRecord, hi-lo)
	copy(out, s.records[lo:hi])
	return &Series{records: out}
}

// Values returns the final scores as floats for statistics.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.records))
	for i, r := range s.records {
		out[i] = float64(r.FinalScore)
	}
	return out
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// consecutive reports whether b is the calendar day after a.
func consecutive(a, b time.Time) bool {
	return a.AddDate(0, 0, 1).Equal(b)
}
