package main

import (
	"fmt"
	"os"
	"time"

	"github.com/destinyclock/destinyclock/pkg/config"
	"github.com/destinyclock/destinyclock/pkg/engine"
	"github.com/destinyclock/destinyclock/pkg/oracle"
)

// newOracle is swapped in tests.
var newOracle = func() oracle.Oracle { return oracle.NewLunarOracle() }

func loadConfig() *config.Config {
	wd, err := os.Getwd()
	if err != nil {
		return config.DefaultConfig()
	}
	cfgFile := config.FindConfigFile(wd)
	if cfgFile == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

func loadSubject(profilePath string) (*engine.Subject, error) {
	p, err := config.LoadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	return engine.NewSubject(p, newOracle())
}

// parseDate parses a YYYY-MM-DD flag; empty means def.
func parseDate(flag, value string, def time.Time) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, value)
	}
	return d, nil
}

// dateRange resolves --start/--end against the configured generation range.
func dateRange(cfg *config.Config, startFlag, endFlag string) (time.Time, time.Time, error) {
	defStart, defEnd, err := cfg.Generation.Range()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := parseDate("start", startFlag, defStart)
	if err != nil {
		return start, start, err
	}
	end, err := parseDate("end", endFlag, defEnd)
	if err != nil {
		return start, end, err
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("--end %s is before --start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return start, end, nil
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
