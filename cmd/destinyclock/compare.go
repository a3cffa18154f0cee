package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/destinyclock/destinyclock/pkg/engine"
	"github.com/destinyclock/destinyclock/pkg/surface"
)

type compareOpts struct {
	a, b       string
	start, end string
	outputFmt  string
	maxRows    int
}

func newCompareCmd() *cobra.Command {
	var opts compareOpts

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two subjects' series day by day",
		Long: `Aligns two series CSVs on their shared dates and reports mean difference,
correlation, who leads how often, and every day the lead changes hands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.a, "a", "", "First series CSV (required)")
	f.StringVar(&opts.b, "b", "", "Second series CSV (required)")
	f.StringVar(&opts.start, "start", "", "Only compare days from YYYY-MM-DD")
	f.StringVar(&opts.end, "end", "", "Only compare days up to YYYY-MM-DD")
	f.StringVar(&opts.outputFmt, "output", "text", "Output format: text, markdown or json")
	f.IntVar(&opts.maxRows, "max-rows", 10, "Rows per listing in text output")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}

func runCompare(w io.Writer, opts compareOpts) error {
	r, err := newRenderer(opts.outputFmt, opts.maxRows)
	if err != nil {
		return err
	}
	a, err := surface.LoadCSV(opts.a)
	if err != nil {
		return err
	}
	b, err := surface.LoadCSV(opts.b)
	if err != nil {
		return err
	}
	if opts.start != "" || opts.end != "" {
		start, err := parseDate("start", opts.start, a.Start())
		if err != nil {
			return err
		}
		end, err := parseDate("end", opts.end, a.End())
		if err != nil {
			return err
		}
		a, b = a.Slice(start, end), b.Slice(start, end)
	}

	if err := r.RenderComparison(w, engine.Compare(a, b)); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return nil
}
