// Package surface defines output rendering for destinyclock results.
// Implementations handle different output targets: terminal, Markdown, JSON.
// The CSV series format also lives here.
package surface

import (
	"fmt"
	"io"

	"github.com/destinyclock/destinyclock/pkg/scoring"
	"github.com/destinyclock/destinyclock/pkg/series"
)

// Renderer produces formatted output for each query result.
type Renderer interface {
	RenderRecord(w io.Writer, rec scoring.DailyRecord) error
	RenderReading(w io.Writer, r scoring.Reading) error
	RenderReport(w io.Writer, r series.Report) error
	RenderBreakdown(w io.Writer, b series.PeriodBreakdown) error
	RenderComparison(w io.Writer, c series.Comparison) error
}

// NewRenderer returns the renderer for an output name: "text", "markdown"
// or "json".
func NewRenderer(output string) (Renderer, error) {
	switch output {
	case "", "text":
		return &TerminalRenderer{}, nil
	case "markdown", "md":
		return &TerminalRenderer{Markdown: true}, nil
	case "json":
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want text, markdown or json)", output)
}
