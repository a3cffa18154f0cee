package scoring_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle/oracletest"
	"github.com/destinyclock/destinyclock/pkg/period"
	"github.com/destinyclock/destinyclock/pkg/scoring"
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

func newScorer(t *testing.T, adjusters ...scoring.Adjuster) *scoring.AdditiveScorer {
	t.Helper()
	s, err := scoring.NewAdditiveScorer(&oracletest.Arithmetic{}, scoring.DemoPointTable(), decades(t), adjusters...)
	if err != nil {
		t.Fatalf("NewAdditiveScorer() error: %v", err)
	}
	return s
}

func TestAdditiveScoreKnownDate(t *testing.T) {
	s := newScorer(t)
	rec, err := s.Score(time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	checks := []struct {
		layer  scoring.Layer
		pillar string
		score  int
	}{
		{scoring.PeriodLayer, "己卯", 7},
		{scoring.YearLayer, "乙巳", 9},
		{scoring.MonthLayer, "壬午", 14},
		{scoring.DayLayer, "辛亥", 14},
	}
	for _, c := range checks {
		if got := rec.Pillar(c.layer).String(); got != c.pillar {
			t.Errorf("%s pillar = %s, want %s", c.layer, got, c.pillar)
		}
		if got := rec.LayerScore(c.layer); got != c.score {
			t.Errorf("%s score = %d, want %d", c.layer, got, c.score)
		}
	}
	if rec.FinalScore != 44 {
		t.Errorf("final score = %d, want 44", rec.FinalScore)
	}
	if len(rec.Adjustments) != 0 {
		t.Errorf("expected no adjustments, got %v", rec.Adjustments)
	}
}

func TestAdditiveInvariant(t *testing.T) {
	s := newScorer(t)
	start := time.Date(1995, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() < 1998; d = d.AddDate(0, 0, 1) {
		rec, err := s.Score(d)
		if err != nil {
			t.Fatalf("Score(%s) error: %v", d.Format(time.DateOnly), err)
		}
		if rec.FinalScore != rec.PeriodScore+rec.YearScore+rec.MonthScore+rec.DayScore {
			t.Fatalf("%s: final %d != layer sum %d", d.Format(time.DateOnly), rec.FinalScore, rec.BaseScore())
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := newScorer(t, scoring.NewRelationAdjuster(scoring.DefaultRelationBonuses()))
	d := time.Date(2031, time.November, 20, 0, 0, 0, 0, time.UTC)
	a, err := s.Score(d)
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}
	b, err := s.Score(d.Add(15 * time.Hour))
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated scores differ (-first +second):\n%s", diff)
	}
}

func TestScoreOracleFailure(t *testing.T) {
	bad := time.Date(2040, time.February, 29, 0, 0, 0, 0, time.UTC)
	o := &oracletest.Arithmetic{FailOn: func(d time.Time) bool { return d.Equal(bad) }}
	s, err := scoring.NewAdditiveScorer(o, scoring.DemoPointTable(), decades(t))
	if err != nil {
		t.Fatalf("NewAdditiveScorer() error: %v", err)
	}

	_, err = s.Score(bad)
	if err == nil {
		t.Fatal("expected error for failing date")
	}
	if !errors.Is(err, ganzhi.ErrOracle) {
		t.Errorf("expected ErrOracle, got %v", err)
	}
	var ce *scoring.ComputeError
	if !errors.As(err, &ce) || !ce.Date.Equal(bad) {
		t.Errorf("expected ComputeError for %s, got %v", bad.Format(time.DateOnly), err)
	}
	if !scoring.IsComputeFailure(err) {
		t.Error("IsComputeFailure() = false")
	}
}

func TestNewAdditiveScorerRequiresInputs(t *testing.T) {
	seq := decades(t)
	pts := scoring.DemoPointTable()
	o := &oracletest.Arithmetic{}

	if _, err := scoring.NewAdditiveScorer(nil, pts, seq); !errors.Is(err, ganzhi.ErrConfiguration) {
		t.Errorf("nil oracle: expected ErrConfiguration, got %v", err)
	}
	if _, err := scoring.NewAdditiveScorer(o, nil, seq); !errors.Is(err, ganzhi.ErrConfiguration) {
		t.Errorf("nil points: expected ErrConfiguration, got %v", err)
	}
	if _, err := scoring.NewAdditiveScorer(o, pts, nil); !errors.Is(err, ganzhi.ErrConfiguration) {
		t.Errorf("nil periods: expected ErrConfiguration, got %v", err)
	}
}

func TestRelationAdjuster(t *testing.T) {
	rec := scoring.DailyRecord{
		Period: ganzhi.MustPillar("甲子"),
		Year:   ganzhi.MustPillar("己丑"),
		Month:  ganzhi.MustPillar("庚午"),
		Day:    ganzhi.MustPillar("丁卯"),
	}
	adj, err := scoring.NewRelationAdjuster(scoring.DefaultRelationBonuses()).Adjust(rec)
	if err != nil {
		t.Fatalf("Adjust() error: %v", err)
	}

	got := make(map[string]int)
	total := 0
	for _, a := range adj {
		got[a.Kind] += a.Points
		total += a.Points
	}
	want := map[string]int{
		"six_combination":  2,  // 子丑
		"stem_combination": 1,  // 甲己
		"clash":            -3, // 子午
		"punishment":       -2, // 子卯
		"harm":             -1, // 丑午
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("adjustments by kind (-want +got):\n%s", diff)
	}
	if total != -3 {
		t.Errorf("total adjustment = %d, want -3", total)
	}
}

func TestRelationAdjusterFullHarmony(t *testing.T) {
	rec := scoring.DailyRecord{
		Period: ganzhi.MustPillar("壬申"),
		Year:   ganzhi.MustPillar("甲子"),
		Month:  ganzhi.MustPillar("丙辰"),
		Day:    ganzhi.MustPillar("丁酉"),
	}
	bonuses := scoring.RelationBonuses{FullHarmony: 3}
	adj, err := scoring.NewRelationAdjuster(bonuses).Adjust(rec)
	if err != nil {
		t.Fatalf("Adjust() error: %v", err)
	}
	if len(adj) != 1 || adj[0].Kind != "full_harmony" || adj[0].Points != 3 {
		t.Fatalf("adjustments = %+v, want one full_harmony of 3", adj)
	}
	if len(adj[0].Layers) != 3 {
		t.Errorf("layers = %v, want period, year, month", adj[0].Layers)
	}
}

func TestScoreWithAdjustersKeepsInvariant(t *testing.T) {
	s := newScorer(t, scoring.NewRelationAdjuster(scoring.DefaultRelationBonuses()))
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	sawAdjustment := false
	for d := start; d.Year() < 2021; d = d.AddDate(0, 0, 1) {
		rec, err := s.Score(d)
		if err != nil {
			t.Fatalf("Score() error: %v", err)
		}
		if !rec.Consistent() {
			t.Fatalf("%s: final %d != base %d + adjustments %d", d.Format(time.DateOnly), rec.FinalScore, rec.BaseScore(), rec.AdjustmentTotal())
		}
		if len(rec.Adjustments) > 0 {
			sawAdjustment = true
		}
	}
	if !sawAdjustment {
		t.Error("expected at least one relation adjustment over a year")
	}
}

func TestParseLayer(t *testing.T) {
	for _, l := range scoring.Layers {
		got, err := scoring.ParseLayer(l.String())
		if err != nil || got != l {
			t.Errorf("ParseLayer(%q) = %v, %v", l.String(), got, err)
		}
	}
	if _, err := scoring.ParseLayer("hour"); err == nil {
		t.Error("expected error for hour layer")
	}
}
