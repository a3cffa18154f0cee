package period_test

import (
	"errors"
	"testing"
	"time"

	"github.com/destinyclock/destinyclock/pkg/chart"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle/oracletest"
	"github.com/destinyclock/destinyclock/pkg/period"
)

func decades(t *testing.T) *period.Sequence {
	t.Helper()
	labels := []string{"辛巳", "庚辰", "己卯", "戊寅", "丁丑", "丙子", "乙亥"}
	entries := make([]period.Entry, len(labels))
	for i, l := range labels {
		entries[i] = period.Entry{Pillar: ganzhi.MustPillar(l), StartYear: 1997 + 10*i, EndYear: 2007 + 10*i}
	}
	seq, err := period.NewSequence(entries)
	if err != nil {
		t.Fatalf("NewSequence() error: %v", err)
	}
	return seq
}

func TestResolve(t *testing.T) {
	seq := decades(t)
	tests := []struct {
		year int
		want string
	}{
		{1900, "辛巳"},
		{1996, "辛巳"},
		{1997, "辛巳"},
		{2006, "辛巳"},
		{2007, "庚辰"},
		{2025, "己卯"},
		{2026, "己卯"},
		{2027, "戊寅"},
		{2056, "丙子"},
		{2057, "乙亥"},
		{2067, "乙亥"},
		{2300, "乙亥"},
	}
	for _, tt := range tests {
		if got := seq.Resolve(tt.year).Pillar.String(); got != tt.want {
			t.Errorf("Resolve(%d) = %s, want %s", tt.year, got, tt.want)
		}
	}
}

func TestResolveUnique(t *testing.T) {
	seq := decades(t)
	entries := seq.Entries()
	for y := entries[0].StartYear; y < entries[len(entries)-1].StartYear; y++ {
		matches := 0
		for _, e := range entries {
			if e.Contains(y) {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("year %d matched %d entries", y, matches)
		}
		if !seq.Resolve(y).Contains(y) {
			t.Errorf("Resolve(%d) = %s does not contain the year", y, seq.Resolve(y))
		}
	}
}

func TestNewSequenceErrors(t *testing.T) {
	p := ganzhi.MustPillar("甲子")
	tests := []struct {
		name    string
		entries []period.Entry
	}{
		{"empty", nil},
		{"inverted", []period.Entry{{Pillar: p, StartYear: 2000, EndYear: 2000}}},
		{"overlap", []period.Entry{{Pillar: p, StartYear: 2000, EndYear: 2010}, {Pillar: p, StartYear: 2009, EndYear: 2019}}},
		{"gap", []period.Entry{{Pillar: p, StartYear: 2000, EndYear: 2010}, {Pillar: p, StartYear: 2011, EndYear: 2021}}},
		{"bad pillar", []period.Entry{{Pillar: ganzhi.Pillar{Stem: 0, Branch: 1}, StartYear: 2000, EndYear: 2010}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := period.NewSequence(tt.entries)
			if !errors.Is(err, ganzhi.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestNewSequenceSortsInput(t *testing.T) {
	seq, err := period.NewSequence([]period.Entry{
		{Pillar: ganzhi.MustPillar("庚辰"), StartYear: 2007, EndYear: 2017},
		{Pillar: ganzhi.MustPillar("辛巳"), StartYear: 1997, EndYear: 2007},
	})
	if err != nil {
		t.Fatalf("NewSequence() error: %v", err)
	}
	if first := seq.Entries()[0].Pillar.String(); first != "辛巳" {
		t.Errorf("first entry = %s, want 辛巳", first)
	}
}

func TestFromAges(t *testing.T) {
	seq, err := period.FromAges(1990, []period.AgeEntry{
		{Pillar: ganzhi.MustPillar("丙子"), StartAge: 3, EndAge: 13},
		{Pillar: ganzhi.MustPillar("丁丑"), StartAge: 13, EndAge: 23},
	})
	if err != nil {
		t.Fatalf("FromAges() error: %v", err)
	}
	if got := seq.Resolve(2005).Pillar.String(); got != "丁丑" {
		t.Errorf("Resolve(2005) = %s, want 丁丑", got)
	}
	if seq.Len() != 2 {
		t.Errorf("Len() = %d, want 2", seq.Len())
	}
}

func TestDerive(t *testing.T) {
	o := &oracletest.Arithmetic{}
	c, err := chart.New(o, chart.BirthInput{Year: 1989, Month: 9, Day: 2, Hour: 8, Gender: ganzhi.Female})
	if err != nil {
		t.Fatalf("chart.New() error: %v", err)
	}
	seq, err := period.Derive(o, c)
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	entries := seq.Entries()
	if entries[0].StartYear != 1997 {
		t.Errorf("first period starts %d, want 1997", entries[0].StartYear)
	}
	// Month pillar 辛未, forward for a yin-year female.
	if got := entries[0].Pillar.String(); got != "壬申" {
		t.Errorf("first period = %s, want 壬申", got)
	}

	failing := &oracletest.Arithmetic{FailOn: func(time.Time) bool { return true }}
	if _, err := period.Derive(failing, c); !errors.Is(err, ganzhi.ErrOracle) {
		t.Errorf("expected ErrOracle, got %v", err)
	}
}
