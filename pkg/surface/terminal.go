package surface

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/destinyclock/destinyclock/pkg/scoring"
	"github.com/destinyclock/destinyclock/pkg/series"
)

// TerminalRenderer renders results as colored terminal text and tables.
// With Markdown set it emits GitHub-flavoured Markdown tables and no color.
type TerminalRenderer struct {
	Markdown bool
	// MaxRows caps long listings (windows, shifts, anomalies). Zero means 10.
	MaxRows int
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func (r *TerminalRenderer) plain() bool {
	if r.Markdown {
		return true
	}
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func (r *TerminalRenderer) bold(s string) string {
	if r.plain() {
		return s
	}
	return colorBold + s + colorReset
}

func (r *TerminalRenderer) dim(s string) string {
	if r.plain() {
		return s
	}
	return colorDim + s + colorReset
}

func (r *TerminalRenderer) colored(s, color string) string {
	if r.plain() || color == "" {
		return s
	}
	return color + s + colorReset
}

func bandColor(b scoring.Band) string {
	switch b {
	case scoring.BandVeryFavorable, scoring.BandFavorable:
		return colorGreen
	case scoring.BandNeutral:
		return colorYellow
	default:
		return colorRed
	}
}

func (r *TerminalRenderer) heading(w io.Writer, s string) {
	if r.Markdown {
		fmt.Fprintf(w, "## %s\n\n", s)
		return
	}
	fmt.Fprintf(w, "%s\n", r.bold(s))
}

func (r *TerminalRenderer) newTable() table.Writer {
	t := table.NewWriter()
	if !r.Markdown {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func (r *TerminalRenderer) flush(w io.Writer, t table.Writer) {
	if r.Markdown {
		fmt.Fprintf(w, "%s\n\n", t.RenderMarkdown())
		return
	}
	fmt.Fprintf(w, "%s\n\n", t.Render())
}

func (r *TerminalRenderer) maxRows() int {
	if r.MaxRows <= 0 {
		return 10
	}
	return r.MaxRows
}

func date(t time.Time) string { return t.Format(time.DateOnly) }

func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

func (r *TerminalRenderer) RenderRecord(w io.Writer, rec scoring.DailyRecord) error {
	r.heading(w, fmt.Sprintf("Score for %s: %d", date(rec.Date), rec.FinalScore))

	t := r.newTable()
	t.AppendHeader(table.Row{"Layer", "Pillar", "Score", "Running total"})
	running := 0
	for _, l := range scoring.Layers {
		running += rec.LayerScore(l)
		t.AppendRow(table.Row{l.String(), rec.Pillar(l).String(), rec.LayerScore(l), running})
	}
	for _, a := range rec.Adjustments {
		running += a.Points
		t.AppendRow(table.Row{a.Source, a.Summary, signed(a.Points), running})
	}
	t.AppendFooter(table.Row{"", "", "Final", rec.FinalScore})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	r.flush(w, t)
	return nil
}

func (r *TerminalRenderer) RenderReading(w io.Writer, rd scoring.Reading) error {
	a := rd.Analysis
	r.heading(w, fmt.Sprintf("Reading for %s: %s (%s)",
		date(rd.Date), r.colored(string(rd.Band), bandColor(rd.Band)), signed(rd.Total)))
	fmt.Fprintf(w, "Day master %s, %s (support %d). Favorable: %s. Unfavorable: %s.\n\n",
		a.Element.Name(), a.Strength, a.Score, a.Favorable, a.Unfavorable)

	for _, ps := range rd.Layers {
		fmt.Fprintf(w, "  %-6s %s  %s  %s\n",
			ps.Layer, r.bold(ps.Pillar.String()), signed(ps.Score), r.dim(fmt.Sprintf("(cumulative %d)", ps.Cumulative)))
		for _, ev := range ps.Evidence {
			fmt.Fprintf(w, "         %s %s\n", signed(ev.Points), r.dim(ev.Summary))
		}
	}
	fmt.Fprintln(w)
	return nil
}

func (r *TerminalRenderer) RenderReport(w io.Writer, rep series.Report) error {
	s := rep.Summary
	r.heading(w, fmt.Sprintf("Series %s to %s (%d days)", date(s.Start), date(s.End), s.Count))
	if s.Count == 0 {
		fmt.Fprintln(w, "No data.")
		return nil
	}
	fmt.Fprintf(w, "Mean %.2f, std %.2f, min %d, max %d, p10 %.0f, p50 %.0f, p90 %.0f\n\n",
		s.Mean, s.StdDev, s.Min, s.Max, s.P10, s.P50, s.P90)

	fmt.Fprintf(w, "Highest %d on %s\n", rep.Maxima.Value, r.dates(rep.Maxima.Dates))
	fmt.Fprintf(w, "Lowest  %d on %s\n\n", rep.Minima.Value, r.dates(rep.Minima.Dates))

	t := r.newTable()
	t.AppendHeader(table.Row{"Longest streak", "Start", "End", "Days", "Mean"})
	for _, st := range []struct {
		name string
		s    *series.Streak
	}{
		{fmt.Sprintf("at or above %d", rep.HighStreakAt), rep.LongestAbove},
		{fmt.Sprintf("at or below %d", rep.LowStreakAt), rep.LongestBelow},
		{"rising", rep.LongestRising},
		{"falling", rep.LongestFalling},
	} {
		if st.s == nil {
			t.AppendRow(table.Row{st.name, "-", "-", 0, "-"})
			continue
		}
		t.AppendRow(table.Row{st.name, date(st.s.Start), date(st.s.End), st.s.Length, fmt.Sprintf("%.1f", st.s.Mean)})
	}
	r.flush(w, t)

	r.windows(w, fmt.Sprintf("Golden windows (%d-day mean >= %.1f)", rep.Options.Window, rep.Options.Threshold), rep.GoldenWindows)
	r.windows(w, fmt.Sprintf("Bad windows (%d-day mean <= %.1f)", rep.Options.Window, rep.Options.BadThreshold), rep.BadWindows)

	if len(rep.Shifts) > 0 {
		r.heading(w, "Sudden shifts")
		t := r.newTable()
		t.AppendHeader(table.Row{"Date", "Kind", "Before", "After", "Delta"})
		for i, sh := range rep.Shifts {
			if i == r.maxRows() {
				t.AppendFooter(table.Row{fmt.Sprintf("... and %d more", len(rep.Shifts)-i)})
				break
			}
			t.AppendRow(table.Row{date(sh.Date), sh.Kind, fmt.Sprintf("%.1f", sh.Before), fmt.Sprintf("%.1f", sh.After), fmt.Sprintf("%+.1f", sh.Delta)})
		}
		r.flush(w, t)
	}

	if len(rep.Anomalies) > 0 {
		r.heading(w, fmt.Sprintf("Anomalies (|z| > %.1f)", rep.Options.AnomalyK))
		t := r.newTable()
		t.AppendHeader(table.Row{"Date", "Score", "z"})
		for i, a := range rep.Anomalies {
			if i == r.maxRows() {
				t.AppendFooter(table.Row{fmt.Sprintf("... and %d more", len(rep.Anomalies)-i)})
				break
			}
			t.AppendRow(table.Row{date(a.Date), a.Score, fmt.Sprintf("%+.2f", a.Z)})
		}
		r.flush(w, t)
	}

	d := rep.Distribution
	r.heading(w, fmt.Sprintf("By %s pillar (min %d samples)", d.Layer, d.MinSamples))
	if len(d.Groups) == 0 {
		fmt.Fprintln(w, "No group has enough samples.")
	} else {
		t := r.newTable()
		t.AppendHeader(table.Row{"Pillar", "Days", "Mean", "Std", "Min", "Max"})
		for _, g := range d.Groups {
			t.AppendRow(table.Row{g.Pillar.String(), g.Count, fmt.Sprintf("%.2f", g.Mean), fmt.Sprintf("%.2f", g.StdDev), g.Min, g.Max})
		}
		r.flush(w, t)
	}
	if len(d.Excluded) > 0 {
		fmt.Fprintf(w, "%s\n\n", r.dim(fmt.Sprintf("%d groups excluded for too few samples", len(d.Excluded))))
	}

	if rep.Periods != nil {
		if err := r.RenderBreakdown(w, *rep.Periods); err != nil {
			return err
		}
	}

	if len(rep.Yearly) > 0 {
		r.heading(w, "Yearly means")
		t := r.newTable()
		t.AppendHeader(table.Row{"Year", "Days", "Mean", "Min", "Max"})
		for _, b := range rep.Yearly {
			t.AppendRow(table.Row{b.Year, b.Count, fmt.Sprintf("%.2f", b.Mean), b.Min, b.Max})
		}
		r.flush(w, t)
	}
	return nil
}

func (r *TerminalRenderer) windows(w io.Writer, title string, ws []series.Window) {
	r.heading(w, title)
	if len(ws) == 0 {
		fmt.Fprintf(w, "None.\n\n")
		return
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"Start", "End", "Days", "Mean"})
	for i, win := range ws {
		if i == r.maxRows() {
			t.AppendFooter(table.Row{fmt.Sprintf("... and %d more", len(ws)-i)})
			break
		}
		t.AppendRow(table.Row{date(win.Start), date(win.End), win.Days, fmt.Sprintf("%.2f", win.Mean)})
	}
	r.flush(w, t)
}

func (r *TerminalRenderer) dates(ds []time.Time) string {
	limit := r.maxRows()
	parts := make([]string, 0, min(len(ds), limit))
	for i, d := range ds {
		if i == limit {
			parts = append(parts, fmt.Sprintf("and %d more", len(ds)-i))
			break
		}
		parts = append(parts, date(d))
	}
	return strings.Join(parts, ", ")
}

func (r *TerminalRenderer) RenderBreakdown(w io.Writer, b series.PeriodBreakdown) error {
	r.heading(w, fmt.Sprintf("Major periods (min %d days)", b.MinSamples))
	if len(b.Ranked) == 0 {
		fmt.Fprintln(w, "No period has enough days.")
	} else {
		t := r.newTable()
		t.AppendHeader(table.Row{"Rank", "Period", "Years", "Days", "Mean", "Std", "Min", "Max"})
		for i, p := range b.Ranked {
			t.AppendRow(table.Row{
				i + 1, p.Period.Pillar.String(),
				fmt.Sprintf("%d-%d", p.Period.StartYear, p.Period.EndYear),
				p.Count, fmt.Sprintf("%.2f", p.Mean), fmt.Sprintf("%.2f", p.StdDev), p.Min, p.Max,
			})
		}
		r.flush(w, t)
	}
	for _, p := range b.Excluded {
		if p.Count > 0 {
			fmt.Fprintf(w, "%s\n", r.dim(fmt.Sprintf("%s excluded: only %d days", p.Period, p.Count)))
		}
	}
	fmt.Fprintln(w)
	return nil
}

func (r *TerminalRenderer) RenderComparison(w io.Writer, c series.Comparison) error {
	r.heading(w, fmt.Sprintf("Comparison over %d shared days", len(c.Points)))
	fmt.Fprintf(w, "Mean A %.2f, mean B %.2f, difference %+.2f, correlation %.3f\n",
		c.MeanA, c.MeanB, c.MeanDifference, c.Correlation)
	fmt.Fprintf(w, "A leads %d days, B leads %d days, tied %d days\n\n", c.DaysALeads, c.DaysBLeads, c.DaysTied)

	if len(c.Crossovers) == 0 {
		fmt.Fprintf(w, "No crossovers.\n\n")
		return nil
	}
	r.heading(w, fmt.Sprintf("Crossovers (%d)", len(c.Crossovers)))
	t := r.newTable()
	t.AppendHeader(table.Row{"Date", "New leader", "Before", "After"})
	for i, x := range c.Crossovers {
		if i == r.maxRows() {
			t.AppendFooter(table.Row{fmt.Sprintf("... and %d more", len(c.Crossovers)-i)})
			break
		}
		t.AppendRow(table.Row{date(x.Date), strings.ToUpper(x.Leader), signed(x.Before), signed(x.After)})
	}
	r.flush(w, t)
	return nil
}
