// Package scoring implements the layered fortune scorer. It turns a calendar
// date into per-layer scores (major period, year, month, day) and an
// accumulated total, either additively from a subject's point table or
// relationally against the natal chart.
package scoring

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
)

// Layer is one temporal layer of a record.
type Layer int

const (
	PeriodLayer Layer = iota
	YearLayer
	MonthLayer
	DayLayer
)

// Layers in accumulation order, outermost first.
var Layers = [4]Layer{PeriodLayer, YearLayer, MonthLayer, DayLayer}

var layerNames = [4]string{"period", "year", "month", "day"}

func (l Layer) String() string {
	if l < PeriodLayer || l > DayLayer {
		return fmt.Sprintf("Layer(%d)", int(l))
	}
	return layerNames[l]
}

func (l Layer) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Layer) UnmarshalText(b []byte) error {
	v, err := ParseLayer(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLayer parses "period", "year", "month" or "day".
func ParseLayer(s string) (Layer, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range layerNames {
		if n == s {
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layer %q", s)
}

// DailyRecord is the result of scoring one calendar date. Immutable once
// computed.
type DailyRecord struct {
	Date        time.Time     `json:"date"`
	Period      ganzhi.Pillar `json:"period"`
	Year        ganzhi.Pillar `json:"year"`
	Month       ganzhi.Pillar `json:"month"`
	Day         ganzhi.Pillar `json:"day"`
	PeriodScore int           `json:"period_score"`
	YearScore   int           `json:"year_score"`
	MonthScore  int           `json:"month_score"`
	DayScore    int           `json:"day_score"`
	Adjustments []Adjustment  `json:"adjustments,omitempty"`
	FinalScore  int           `json:"final_score"`
}

// Pillar returns the record's pillar for a layer.
func (r DailyRecord) Pillar(l Layer) ganzhi.Pillar {
	switch l {
	case PeriodLayer:
		return r.Period
	case YearLayer:
		return r.Year
	case MonthLayer:
		return r.Month
	default:
		return r.Day
	}
}

// LayerScore returns the record's score for a layer.
func (r DailyRecord) LayerScore(l Layer) int {
	switch l {
	case PeriodLayer:
		return r.PeriodScore
	case YearLayer:
		return r.YearScore
	case MonthLayer:
		return r.MonthScore
	default:
		return r.DayScore
	}
}

// BaseScore is the plain sum of the four layer scores.
func (r DailyRecord) BaseScore() int {
	return r.PeriodScore + r.YearScore + r.MonthScore + r.DayScore
}

// AdjustmentTotal sums all relation and rule adjustments.
func (r DailyRecord) AdjustmentTotal() int {
	total := 0
	for _, a := range r.Adjustments {
		total += a.Points
	}
	return total
}

// Consistent reports whether FinalScore equals the base sum plus adjustments.
func (r DailyRecord) Consistent() bool {
	return r.FinalScore == r.BaseScore()+r.AdjustmentTotal()
}

// Adjustment is one bonus or penalty applied on top of the layer sum.
type Adjustment struct {
	Source  string  `json:"source"` // adjuster key: "relations" or "rules"
	Kind    string  `json:"kind"`   // relation kind or rule name
	Layers  []Layer `json:"layers,omitempty"`
	Summary string  `json:"summary"`
	Points  int     `json:"points"`
}

// ComputeError reports that a date could not be scored. It is never folded
// into a zero score.
type ComputeError struct {
	Date time.Time
	Err  error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("scoring %s: %v", e.Date.Format(time.DateOnly), e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// IsComputeFailure reports whether err is a per-date failure a batch may
// record and skip past.
func IsComputeFailure(err error) bool {
	var ce *ComputeError
	return errors.As(err, &ce)
}
