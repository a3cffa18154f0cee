package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/destinyclock/destinyclock/pkg/series"
	"github.com/destinyclock/destinyclock/pkg/surface"
)

type periodsOpts struct {
	profile    string
	seriesPath string
	start, end string
	minSamples int
	outputFmt  string
}

func newPeriodsCmd() *cobra.Command {
	var opts periodsOpts

	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Rank the subject's major periods by mean score",
		Long: `Groups a series by major period and ranks the periods with at least
--min-samples days. Without --series the days are scored in memory over
--start..--end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("min-samples") {
				opts.minSamples = loadConfig().Analysis.MinSamples
			}
			return runPeriods(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.profile, "profile", "", "Subject profile YAML (required)")
	f.StringVar(&opts.seriesPath, "series", "", "Series CSV to group instead of scoring afresh")
	f.StringVar(&opts.start, "start", "", "First day YYYY-MM-DD (default from config)")
	f.StringVar(&opts.end, "end", "", "Last day YYYY-MM-DD (default from config)")
	f.IntVar(&opts.minSamples, "min-samples", series.DefaultMinSamples, "Smallest period that is ranked, in days")
	f.StringVar(&opts.outputFmt, "output", "text", "Output format: text, markdown or json")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func runPeriods(ctx context.Context, w io.Writer, opts periodsOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r, err := surface.NewRenderer(opts.outputFmt)
	if err != nil {
		return err
	}
	sub, err := loadSubject(opts.profile)
	if err != nil {
		return err
	}

	var s *series.Series
	if opts.seriesPath != "" {
		if s, err = surface.LoadCSV(opts.seriesPath); err != nil {
			return err
		}
	} else {
		start, end, err := dateRange(loadConfig(), opts.start, opts.end)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Scoring %s from %s to %s...\n", sub.ID, start.Format("2006-01-02"), end.Format("2006-01-02"))
		res, err := sub.Series(ctx, start, end)
		if err != nil {
			return err
		}
		s = res.Series
	}

	if err := r.RenderBreakdown(w, sub.PeriodBreakdown(s, opts.minSamples)); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return nil
}
