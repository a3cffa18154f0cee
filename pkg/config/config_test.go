package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/destinyclock/destinyclock/pkg/chart"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/scoring"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Analysis.Window != 7 {
		t.Errorf("expected default window 7, got %d", cfg.Analysis.Window)
	}
	if cfg.Analysis.MinSamples != 20 {
		t.Errorf("expected default min samples 20, got %d", cfg.Analysis.MinSamples)
	}
	start, end, err := cfg.Generation.Range()
	if err != nil {
		t.Fatalf("Range() error: %v", err)
	}
	if start.Year() != 1995 || end.Year() != 2055 {
		t.Errorf("default range = %d-%d, want 1995-2055", start.Year(), end.Year())
	}
}

func TestAnalysisReportOptions(t *testing.T) {
	opts := DefaultConfig().Analysis.ReportOptions(scoring.MonthLayer)
	if opts.Window != 7 || opts.Threshold != 55 || opts.MinSamples != 20 || opts.AnomalyK != 2.5 {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.HighStreak != 60 || opts.LowStreak != 40 || opts.StreakBand != 10 {
		t.Errorf("unexpected streak options: %+v", opts)
	}
	if opts.DistributionLayer != scoring.MonthLayer {
		t.Errorf("DistributionLayer = %v, want month", opts.DistributionLayer)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		missing bool
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "non-existent file returns defaults",
			missing: true,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Analysis.Threshold != 55 {
					t.Errorf("expected default threshold 55, got %v", cfg.Analysis.Threshold)
				}
			},
		},
		{
			name: "valid YAML overrides defaults",
			yaml: `
analysis:
  window: 30
  min_samples: 5
generation:
  start: "2000-01-01"
  end: "2010-12-31"
  workers: 4
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Analysis.Window != 30 {
					t.Errorf("expected window 30, got %d", cfg.Analysis.Window)
				}
				if cfg.Analysis.MinSamples != 5 {
					t.Errorf("expected min samples 5, got %d", cfg.Analysis.MinSamples)
				}
				if cfg.Analysis.AnomalyK != 2.5 {
					t.Errorf("expected untouched anomaly_k 2.5, got %v", cfg.Analysis.AnomalyK)
				}
				if cfg.Generation.Workers != 4 {
					t.Errorf("expected 4 workers, got %d", cfg.Generation.Workers)
				}
			},
		},
		{
			name:    "inverted range returns error",
			yaml:    "generation:\n  start: \"2010-01-01\"\n  end: \"2000-01-01\"\n",
			wantErr: true,
		},
		{
			name:    "invalid YAML returns error",
			yaml:    "{{invalid yaml",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")

			if !tc.missing {
				if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
					t.Fatalf("write test config: %v", err)
				}
			}

			cfg, err := Load(path)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.check != nil {
				tc.check(t, cfg)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(nested); got != "" {
		t.Errorf("expected no config, got %q", got)
	}

	cfgDir := filepath.Join(root, ".destinyclock")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(cfgDir, "config.yaml")
	if err := os.WriteFile(want, []byte("analysis: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(nested); got != want {
		t.Errorf("FindConfigFile() = %q, want %q", got, want)
	}
}

func TestSeriesPath(t *testing.T) {
	p := SeriesPath("../../etc")
	if strings.Contains(p, "..") {
		t.Errorf("SeriesPath escaped cache dir: %q", p)
	}
	if filepath.Base(p) != "series.csv" {
		t.Errorf("unexpected file name in %q", p)
	}
}

func TestLoadProfile(t *testing.T) {
	p, err := LoadProfile(filepath.Join("testdata", "demo.yaml"))
	if err != nil {
		t.Fatalf("LoadProfile() error: %v", err)
	}
	if p.ID != "demo" || p.Mode != ModeAdditive {
		t.Errorf("unexpected id/mode %q/%q", p.ID, p.Mode)
	}
	if p.Birth.Gender != ganzhi.Female {
		t.Errorf("gender = %v, want female", p.Birth.Gender)
	}
	if len(p.Periods.Entries) != 7 {
		t.Fatalf("expected 7 periods, got %d", len(p.Periods.Entries))
	}
	if got := p.Periods.Entries[2].Pillar.String(); got != "己卯" {
		t.Errorf("third period = %s, want 己卯", got)
	}

	table, err := p.PointTable()
	if err != nil {
		t.Fatalf("PointTable() error: %v", err)
	}
	if got := table.Pillar(ganzhi.MustPillar("壬午")); got != 14 {
		t.Errorf("壬午 points = %d, want 14", got)
	}
	if p.Bonuses() != nil {
		t.Error("relations should be off by default")
	}
}

func TestLoadRelationalProfile(t *testing.T) {
	p, err := LoadProfile(filepath.Join("testdata", "relational.yaml"))
	if err != nil {
		t.Fatalf("LoadProfile() error: %v", err)
	}
	if p.Strength.WeakBelow != 0 || p.Strength.StrongFrom != 3 {
		t.Errorf("strength thresholds = %d/%d, want 0/3", p.Strength.WeakBelow, p.Strength.StrongFrom)
	}
	if p.Strength.MonthGenerates != 3 {
		t.Errorf("unset strength fields should keep defaults, got month_generates %d", p.Strength.MonthGenerates)
	}
	if len(p.Strength.Overrides) != 1 || p.Strength.Overrides[0].Strength != chart.Weak {
		t.Errorf("default override lost: %+v", p.Strength.Overrides)
	}
	if p.Weights.Bands.VeryFavorable != 8 || p.Weights.Positions.Day != 2.0 {
		t.Errorf("weights not merged over defaults: %+v", p.Weights)
	}
}

func TestParseProfileErrors(t *testing.T) {
	base := `id: x
birth: {year: 1990, month: 1, day: 1, hour: 0, gender: male}
`
	points := `points:
  stems: {甲: 1, 乙: 1, 丙: 1, 丁: 1, 戊: 1, 己: 1, 庚: 1, 辛: 1, 壬: 1, 癸: 1}
  branches: {子: 1, 丑: 1, 寅: 1, 卯: 1, 辰: 1, 巳: 1, 午: 1, 未: 1, 申: 1, 酉: 1, 戌: 1, 亥: 1}
`
	periods := `periods:
  source: explicit
  entries:
    - {pillar: 甲子, start_year: 1990, end_year: 2000}
`
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "", "empty"},
		{"unknown key", base + points + periods + "colour: red\n", "colour"},
		{"missing branch", base + strings.Replace(points, ", 亥: 1", "", 1) + periods, "missing branch 亥"},
		{"no periods", base + points, "empty"},
		{"gap in periods", base + points + periods + "    - {pillar: 乙丑, start_year: 2001, end_year: 2010}\n", "gap"},
		{"bad mode", base + points + periods + "mode: psychic\n", "unknown mode"},
		{"bad source", base + points + "periods: {source: tarot}\n", "unknown period source"},
		{"bad rule", base + points + periods + "rules:\n  - {when: \"day_score >\", points: 1}\n", "rule"},
		{"bad birth", "id: x\nbirth: {year: 1990, month: 2, day: 30, gender: male}\n" + points + periods, "day 30"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseProfile(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ganzhi.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestRelationsEnabled(t *testing.T) {
	p := DefaultProfile()
	p.Relations.Enabled = true
	p.Relations.Clash = -5
	b := p.Bonuses()
	if b == nil {
		t.Fatal("expected bonuses")
	}
	if b.Clash != -5 || b.SixCombination != 2 {
		t.Errorf("bonuses = %+v", *b)
	}
}

func TestLoadProfilesRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("testdata", "demo.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := LoadProfiles(dir); err == nil {
		t.Fatal("expected duplicate id error")
	}

	if err := os.Remove(filepath.Join(dir, "b.yml")); err != nil {
		t.Fatal(err)
	}
	ps, err := LoadProfiles(dir)
	if err != nil {
		t.Fatalf("LoadProfiles() error: %v", err)
	}
	if len(ps) != 1 || ps[0].ID != "demo" {
		t.Errorf("unexpected profiles %+v", ps)
	}
}
