// Package main provides the destinyclock CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/destinyclock/destinyclock/internal/logging"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
		logFile   string
		logCloser io.Closer
	)

	rootCmd := &cobra.Command{
		Use:   "destinyclock",
		Short: "Layered daily fortune scores over decades",
		Long: `destinyclock scores every day of a subject's life by layering the
major period, year, month and day pillars against their natal chart, and
analyses the resulting series: streaks, golden windows, period rankings and
cross-subject comparison.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			var w io.Writer = os.Stderr
			if logFile != "" {
				rf := logging.RotatingFile(logging.FileConfig{Path: logFile, Compress: true})
				logCloser, w = rf, rf
			}
			logging.Init(level, logFormat, w)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&logFile, "log-file", "", "Write logs to a size-rotated file instead of stderr")

	rootCmd.AddCommand(
		newDayCmd(),
		newReadingCmd(),
		newGenerateCmd(),
		newAnalyzeCmd(),
		newCompareCmd(),
		newPeriodsCmd(),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
