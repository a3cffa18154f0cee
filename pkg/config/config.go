// Package config handles loading subject profiles and analysis defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/destinyclock/destinyclock/pkg/scoring"
	"github.com/destinyclock/destinyclock/pkg/series"
)

// Config is the top-level analysis configuration.
type Config struct {
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Generation GenerationConfig `yaml:"generation"`
}

// AnalysisConfig holds the defaults of the series analytics.
type AnalysisConfig struct {
	Window          int     `yaml:"window"`           // rolling window, days
	Threshold       float64 `yaml:"threshold"`        // golden window mean
	BadThreshold    float64 `yaml:"bad_threshold"`    // bad window mean
	MinWindows      int     `yaml:"min_windows"`      // consecutive qualifying windows
	HighStreak      int     `yaml:"high_streak"` // fixed high streak score
	LowStreak       int     `yaml:"low_streak"`  // fixed low streak score
	StreakBand      float64 `yaml:"streak_band"` // streaks at mean ± band; 0 uses the fixed scores
	MinSamples      int     `yaml:"min_samples"`      // smallest ranked group
	ShiftThreshold  float64 `yaml:"shift_threshold"`
	AnomalyK        float64 `yaml:"anomaly_k"`
}

// ReportOptions converts the defaults for a series report grouped by layer.
func (a AnalysisConfig) ReportOptions(layer scoring.Layer) series.ReportOptions {
	return series.ReportOptions{
		Window:            a.Window,
		Threshold:         a.Threshold,
		BadThreshold:      a.BadThreshold,
		MinWindows:        a.MinWindows,
		HighStreak:        a.HighStreak,
		LowStreak:         a.LowStreak,
		StreakBand:        a.StreakBand,
		MinSamples:        a.MinSamples,
		ShiftThreshold:    a.ShiftThreshold,
		AnomalyK:          a.AnomalyK,
		DistributionLayer: layer,
	}
}

// GenerationConfig controls batch series generation.
type GenerationConfig struct {
	Start     string `yaml:"start"` // YYYY-MM-DD
	End       string `yaml:"end"`
	Workers   int    `yaml:"workers"`
	ChunkSize int    `yaml:"chunk_size"`
}

// Range parses the configured start and end dates.
func (g GenerationConfig) Range() (start, end time.Time, err error) {
	start, err = time.Parse(time.DateOnly, g.Start)
	if err != nil {
		return start, end, fmt.Errorf("parsing generation start: %w", err)
	}
	end, err = time.Parse(time.DateOnly, g.End)
	if err != nil {
		return start, end, fmt.Errorf("parsing generation end: %w", err)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("generation end %s before start %s", g.End, g.Start)
	}
	return start, end, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Window:          7,
			Threshold:       55,
			BadThreshold:    25,
			MinWindows:      5,
			HighStreak:      60,
			LowStreak:       40,
			StreakBand:      10,
			MinSamples:      20,
			ShiftThreshold:  15,
			AnomalyK:        2.5,
		},
		Generation: GenerationConfig{
			Start: "1995-01-01",
			End:   "2055-12-31",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, _, err := cfg.Generation.Range(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile looks for .destinyclock/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".destinyclock", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// CacheDir returns the cache directory for a subject.
// Uses ~/.cache/destinyclock/<subject>/.
func CacheDir(subjectID string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "destinyclock", slug(subjectID))
}

// SeriesPath returns where a subject's generated series is cached.
func SeriesPath(subjectID string) string {
	return filepath.Join(CacheDir(subjectID), "series.csv")
}

// slug makes a subject id filesystem-safe.
func slug(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
