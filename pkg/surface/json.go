package surface

import (
	"encoding/json"
	"io"

	"github.com/destinyclock/destinyclock/pkg/scoring"
	"github.com/destinyclock/destinyclock/pkg/series"
)

// JSONRenderer marshals results to indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) RenderRecord(w io.Writer, rec scoring.DailyRecord) error {
	return encode(w, rec)
}

func (r *JSONRenderer) RenderReading(w io.Writer, rd scoring.Reading) error {
	return encode(w, rd)
}

func (r *JSONRenderer) RenderReport(w io.Writer, rep series.Report) error {
	return encode(w, rep)
}

func (r *JSONRenderer) RenderBreakdown(w io.Writer, b series.PeriodBreakdown) error {
	return encode(w, b)
}

func (r *JSONRenderer) RenderComparison(w io.Writer, c series.Comparison) error {
	return encode(w, c)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
