// Package period resolves which major period governs a calendar year.
package period

import (
	"fmt"
	"sort"

	"github.com/destinyclock/destinyclock/pkg/chart"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle"
)

// Entry is one major period covering [StartYear, EndYear).
type Entry struct {
	Pillar    ganzhi.Pillar `yaml:"pillar" json:"pillar"`
	StartYear int           `yaml:"start_year" json:"start_year"`
	EndYear   int           `yaml:"end_year" json:"end_year"`
}

func (e Entry) Contains(year int) bool { return year >= e.StartYear && year < e.EndYear }

func (e Entry) String() string { return fmt.Sprintf("%s %d-%d", e.Pillar, e.StartYear, e.EndYear) }

// Sequence is a validated, ordered, gap-free list of major periods. It is
// read-only once built.
type Sequence struct {
	entries []Entry
}

// NewSequence sorts and validates the entries. An empty, overlapping or
// non-contiguous list is a configuration error.
func NewSequence(entries []Entry) (*Sequence, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: period sequence is empty", ganzhi.ErrConfiguration)
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartYear < sorted[j].StartYear })

	for i, e := range sorted {
		if !e.Pillar.Valid() {
			return nil, fmt.Errorf("%w: period %d has invalid pillar", ganzhi.ErrConfiguration, i)
		}
		if e.StartYear >= e.EndYear {
			return nil, fmt.Errorf("%w: period %s starts at or after its end", ganzhi.ErrConfiguration, e)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		switch {
		case e.StartYear < prev.EndYear:
			return nil, fmt.Errorf("%w: period %s overlaps %s", ganzhi.ErrConfiguration, e, prev)
		case e.StartYear > prev.EndYear:
			return nil, fmt.Errorf("%w: gap between %s and %s", ganzhi.ErrConfiguration, prev, e)
		}
	}
	return &Sequence{entries: sorted}, nil
}

// Resolve returns the entry whose span contains year. Years before the first
// entry resolve to the first; years at or after the last entry's start
// resolve to the last.
func (s *Sequence) Resolve(year int) Entry {
	last := len(s.entries) - 1
	if year >= s.entries[last].StartYear {
		return s.entries[last]
	}
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].EndYear > year })
	return s.entries[i]
}

// Entries returns a copy of the ordered entries.
func (s *Sequence) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Sequence) Len() int { return len(s.entries) }

// AgeEntry tabulates a period by the subject's age, as published period
// tables usually do.
type AgeEntry struct {
	Pillar   ganzhi.Pillar `yaml:"pillar" json:"pillar"`
	StartAge int           `yaml:"start_age" json:"start_age"`
	EndAge   int           `yaml:"end_age" json:"end_age"`
}

// FromAges converts an age-based table into a sequence.
func FromAges(birthYear int, entries []AgeEntry) (*Sequence, error) {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Pillar: e.Pillar, StartYear: birthYear + e.StartAge, EndYear: birthYear + e.EndAge}
	}
	return NewSequence(out)
}

// Derive computes the sequence from the subject's natal chart.
func Derive(src oracle.PeriodSource, c chart.NatalChart) (*Sequence, error) {
	periods, err := src.MajorPeriods(c.Birth, c.Gender)
	if err != nil {
		return nil, fmt.Errorf("deriving major periods: %w", err)
	}
	entries := make([]Entry, len(periods))
	for i, p := range periods {
		entries[i] = Entry{Pillar: p.Pillar, StartYear: p.StartYear, EndYear: p.EndYear}
	}
	return NewSequence(entries)
}
