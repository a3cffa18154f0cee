package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/destinyclock/destinyclock/pkg/config"
	"github.com/destinyclock/destinyclock/pkg/period"
	"github.com/destinyclock/destinyclock/pkg/scoring"
	"github.com/destinyclock/destinyclock/pkg/series"
	"github.com/destinyclock/destinyclock/pkg/surface"
)

type analyzeOpts struct {
	seriesPath string
	profile    string
	start      string
	end        string
	layer      string
	outputFmt  string
	maxRows    int
	report     series.ReportOptions
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse a generated series",
		Long: `Reads a series CSV and reports extremes, streaks, golden and bad windows,
sudden shifts, anomalies, per-pillar distributions and, with --profile, the
ranking of major periods. Thresholds default to the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyAnalysisDefaults(cmd.Flags(), loadConfig().Analysis, &opts.report)
			return runAnalyze(cmd.OutOrStdout(), opts)
		},
	}

	d := config.DefaultConfig().Analysis
	f := cmd.Flags()
	f.StringVar(&opts.seriesPath, "series", "", "Series CSV (default: the profile's cached series)")
	f.StringVar(&opts.profile, "profile", "", "Subject profile YAML, enables the period ranking")
	f.StringVar(&opts.start, "start", "", "Only analyse days from YYYY-MM-DD")
	f.StringVar(&opts.end, "end", "", "Only analyse days up to YYYY-MM-DD")
	f.StringVar(&opts.layer, "layer", "day", "Pillar layer for the distribution: period, year, month or day")
	f.StringVar(&opts.outputFmt, "output", "text", "Output format: text, markdown or json")
	f.IntVar(&opts.maxRows, "max-rows", 10, "Rows per listing in text output")
	f.IntVar(&opts.report.Window, "window", d.Window, "Rolling window in days")
	f.Float64Var(&opts.report.Threshold, "threshold", d.Threshold, "Golden window mean threshold")
	f.Float64Var(&opts.report.BadThreshold, "bad-threshold", d.BadThreshold, "Bad window mean threshold")
	f.IntVar(&opts.report.MinWindows, "min-days", d.MinWindows, "Consecutive qualifying windows")
	f.IntVar(&opts.report.HighStreak, "high-streak", d.HighStreak, "Score for high streaks when --streak-band is 0")
	f.IntVar(&opts.report.LowStreak, "low-streak", d.LowStreak, "Score for low streaks when --streak-band is 0")
	f.Float64Var(&opts.report.StreakBand, "streak-band", d.StreakBand, "Measure high/low streaks at the mean plus/minus this many points")
	f.IntVar(&opts.report.MinSamples, "min-samples", d.MinSamples, "Smallest group that is ranked")
	f.Float64Var(&opts.report.ShiftThreshold, "shift-threshold", d.ShiftThreshold, "Window mean change that counts as a shift")
	f.Float64Var(&opts.report.AnomalyK, "anomaly-k", d.AnomalyK, "Standard deviations for an anomaly")
	return cmd
}

// applyAnalysisDefaults fills every threshold the user did not set from cfg.
func applyAnalysisDefaults(f *pflag.FlagSet, cfg config.AnalysisConfig, r *series.ReportOptions) {
	base := cfg.ReportOptions(r.DistributionLayer)
	if !f.Changed("window") {
		r.Window = base.Window
	}
	if !f.Changed("threshold") {
		r.Threshold = base.Threshold
	}
	if !f.Changed("bad-threshold") {
		r.BadThreshold = base.BadThreshold
	}
	if !f.Changed("min-days") {
		r.MinWindows = base.MinWindows
	}
	if !f.Changed("high-streak") {
		r.HighStreak = base.HighStreak
	}
	if !f.Changed("low-streak") {
		r.LowStreak = base.LowStreak
	}
	if !f.Changed("streak-band") {
		r.StreakBand = base.StreakBand
	}
	if !f.Changed("min-samples") {
		r.MinSamples = base.MinSamples
	}
	if !f.Changed("shift-threshold") {
		r.ShiftThreshold = base.ShiftThreshold
	}
	if !f.Changed("anomaly-k") {
		r.AnomalyK = base.AnomalyK
	}
}

func runAnalyze(w io.Writer, opts analyzeOpts) error {
	r, err := newRenderer(opts.outputFmt, opts.maxRows)
	if err != nil {
		return err
	}
	layer, err := scoring.ParseLayer(opts.layer)
	if err != nil {
		return fmt.Errorf("--layer: %w", err)
	}
	opts.report.DistributionLayer = layer

	var seq *period.Sequence
	path := opts.seriesPath
	if opts.profile != "" {
		sub, err := loadSubject(opts.profile)
		if err != nil {
			return err
		}
		seq = sub.Periods
		path = firstNonEmpty(path, config.SeriesPath(sub.ID))
	}
	if path == "" {
		return fmt.Errorf("--series or --profile is required")
	}

	s, err := surface.LoadCSV(path)
	if err != nil {
		return err
	}
	if opts.start != "" || opts.end != "" {
		start, err := parseDate("start", opts.start, s.Start())
		if err != nil {
			return err
		}
		end, err := parseDate("end", opts.end, s.End())
		if err != nil {
			return err
		}
		s = s.Slice(start, end)
	}

	rep := s.Report(opts.report, seq)
	if err := r.RenderReport(w, rep); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return nil
}

// newRenderer applies the row limit to terminal output.
func newRenderer(outputFmt string, maxRows int) (surface.Renderer, error) {
	r, err := surface.NewRenderer(outputFmt)
	if err != nil {
		return nil, err
	}
	if tr, ok := r.(*surface.TerminalRenderer); ok {
		tr.MaxRows = maxRows
	}
	return r, nil
}
