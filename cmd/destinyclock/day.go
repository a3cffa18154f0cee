package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/destinyclock/destinyclock/pkg/surface"
)

func newDayCmd() *cobra.Command {
	var profile, date, outputFmt string

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Score a single day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDay(cmd.OutOrStdout(), profile, date, outputFmt)
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "Subject profile YAML (required)")
	cmd.Flags().StringVar(&date, "date", "", "Date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text, markdown or json")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func runDay(w io.Writer, profile, date, outputFmt string) error {
	r, err := surface.NewRenderer(outputFmt)
	if err != nil {
		return err
	}
	sub, err := loadSubject(profile)
	if err != nil {
		return err
	}
	d, err := parseDate("date", date, today())
	if err != nil {
		return err
	}
	rec, err := sub.DailyRecord(d)
	if err != nil {
		return err
	}
	if err := r.RenderRecord(w, rec); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return nil
}

func newReadingCmd() *cobra.Command {
	var profile, date, outputFmt string

	cmd := &cobra.Command{
		Use:   "reading",
		Short: "Explain a day against the natal chart's favorable elements",
		Long: `Scores each layer's pillar against the favorable and unfavorable elements
of the natal chart and lists the evidence behind every point.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReading(cmd.OutOrStdout(), profile, date, outputFmt)
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "Subject profile YAML (required)")
	cmd.Flags().StringVar(&date, "date", "", "Date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text, markdown or json")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func runReading(w io.Writer, profile, date, outputFmt string) error {
	r, err := surface.NewRenderer(outputFmt)
	if err != nil {
		return err
	}
	sub, err := loadSubject(profile)
	if err != nil {
		return err
	}
	d, err := parseDate("date", date, today())
	if err != nil {
		return err
	}
	rd, err := sub.Reading(d)
	if err != nil {
		return err
	}
	if err := r.RenderReading(w, rd); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return nil
}
