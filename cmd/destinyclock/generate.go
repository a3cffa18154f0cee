package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/destinyclock/destinyclock/internal/logging"
	"github.com/destinyclock/destinyclock/pkg/config"
	"github.com/destinyclock/destinyclock/pkg/series"
	"github.com/destinyclock/destinyclock/pkg/surface"
)

type generateOpts struct {
	profile   string
	start     string
	end       string
	out       string
	workers   int
	chunkSize int
	quiet     bool
}

func newGenerateCmd() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Score every day in a range and write the series CSV",
		Long: `Scores every day between --start and --end in parallel chunks and writes
one CSV row per day in date order. Rows are flushed as they are written, so an
interrupted run leaves a valid, shorter file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runGenerate(cmd.Context(), os.Stderr, opts)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.profile, "profile", "", "Subject profile YAML (required)")
	f.StringVar(&opts.start, "start", "", "First day YYYY-MM-DD (default from config)")
	f.StringVar(&opts.end, "end", "", "Last day YYYY-MM-DD, inclusive (default from config)")
	f.StringVar(&opts.out, "out", "", "Output CSV (default: ~/.cache/destinyclock/<subject>/series.csv)")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent chunks (default: number of CPUs)")
	f.IntVar(&opts.chunkSize, "chunk-size", 0, "Days per chunk (default: 366)")
	f.BoolVar(&opts.quiet, "quiet", false, "Suppress progress output")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

// runGenerate returns the path written.
func runGenerate(ctx context.Context, stderr io.Writer, opts generateOpts) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := loadConfig()

	fmt.Fprintf(stderr, "Step 1/3: Loading subject...\n")
	sub, err := loadSubject(opts.profile)
	if err != nil {
		return "", err
	}
	sub.SetLogger(logging.New("generate"))
	fmt.Fprintf(stderr, "  %s: %s, %s mode, %d major periods\n", sub.ID, sub.Chart, sub.Mode, sub.Periods.Len())

	start, end, err := dateRange(cfg, opts.start, opts.end)
	if err != nil {
		return "", err
	}
	out := firstNonEmpty(opts.out, config.SeriesPath(sub.ID))
	workers := opts.workers
	if workers == 0 {
		workers = cfg.Generation.Workers
	}
	chunkSize := opts.chunkSize
	if chunkSize == 0 {
		chunkSize = cfg.Generation.ChunkSize
	}

	w, err := surface.CreateCSV(out)
	if err != nil {
		return "", err
	}
	if err := w.WriteHeader(); err != nil {
		w.Close()
		return "", fmt.Errorf("writing header: %w", err)
	}

	days := int(end.Sub(start).Hours()/24) + 1
	fmt.Fprintf(stderr, "Step 2/3: Scoring %d days (%s to %s)...\n", days, start.Format(time.DateOnly), end.Format(time.DateOnly))
	progress := func(done, total int) {
		if !opts.quiet {
			fmt.Fprintf(stderr, "\r  %d/%d days", done, total)
		}
	}
	res, genErr := sub.Generate(ctx, series.Options{
		Start:     start,
		End:       end,
		Workers:   workers,
		ChunkSize: chunkSize,
		Sink:      w,
		Progress:  progress,
	})
	if !opts.quiet {
		fmt.Fprintln(stderr)
	}
	if err := w.Close(); err != nil && genErr == nil {
		genErr = fmt.Errorf("closing %s: %w", out, err)
	}
	if genErr != nil {
		if res != nil && res.Cancelled {
			fmt.Fprintf(stderr, "Interrupted: %s holds %d of %d days\n", out, res.Series.Len(), res.Total)
		}
		return out, genErr
	}

	if err := surface.SaveFailures(out, res.Failures); err != nil {
		return out, err
	}
	if n := len(res.Failures); n > 0 {
		fmt.Fprintf(stderr, "  Warning: %d days could not be scored (listed in %s):\n", n, surface.FailuresPath(out))
		for _, f := range res.Failures {
			fmt.Fprintf(stderr, "    %s: %s\n", f.Date.Format(time.DateOnly), f.Err)
		}
	}
	fmt.Fprintf(stderr, "Step 3/3: Wrote %d records to %s\n", res.Series.Len(), out)
	return out, nil
}
