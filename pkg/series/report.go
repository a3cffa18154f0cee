package series

import (
	"math"

	"github.com/destinyclock/destinyclock/pkg/period"
	"github.com/destinyclock/destinyclock/pkg/scoring"
)

// ReportOptions parameterize a full analysis report.
type ReportOptions struct {
	Window            int
	Threshold         float64 // golden window mean
	BadThreshold      float64 // bad window mean
	MinWindows        int
	HighStreak        int     // score for the longest high streak
	LowStreak         int     // score for the longest low streak
	StreakBand        float64 // when > 0, streaks are measured against mean ± band instead
	MinSamples        int
	ShiftThreshold    float64
	AnomalyK          float64
	DistributionLayer scoring.Layer
}

// Report gathers every analytic over one series.
type Report struct {
	Summary        Summary          `json:"summary"`
	Maxima         Extremum         `json:"maxima"`
	Minima         Extremum         `json:"minima"`
	HighStreakAt   int              `json:"high_streak_threshold"`
	LowStreakAt    int              `json:"low_streak_threshold"`
	LongestAbove   *Streak          `json:"longest_above,omitempty"`
	LongestBelow   *Streak          `json:"longest_below,omitempty"`
	LongestRising  *Streak          `json:"longest_rising,omitempty"`
	LongestFalling *Streak          `json:"longest_falling,omitempty"`
	GoldenWindows  []Window         `json:"golden_windows"`
	BadWindows     []Window         `json:"bad_windows"`
	Shifts         []Shift          `json:"shifts"`
	Anomalies      []Anomaly        `json:"anomalies"`
	Distribution   Distribution     `json:"distribution"`
	Periods        *PeriodBreakdown `json:"periods,omitempty"`
	Yearly         []Bucket         `json:"yearly"`
	Options        ReportOptions    `json:"-"`
}

// Report runs the analytics. seq may be nil, in which case the period
// breakdown is omitted.
func (s *Series) Report(opts ReportOptions, seq *period.Sequence) Report {
	r := Report{
		Summary:       s.Summary(),
		GoldenWindows: s.GoldenWindows(opts.Window, opts.Threshold, opts.MinWindows),
		BadWindows:    s.BadWindows(opts.Window, opts.BadThreshold, opts.MinWindows),
		Shifts:        s.Shifts(opts.Window, opts.ShiftThreshold),
		Anomalies:     s.Anomalies(opts.AnomalyK),
		Distribution:  s.DistributionBy(opts.DistributionLayer, opts.MinSamples),
		Yearly:        s.YearlyMeans(),
		Options:       opts,
	}
	r.Maxima, _ = s.Maxima()
	r.Minima, _ = s.Minima()
	r.HighStreakAt, r.LowStreakAt = opts.StreakThresholds(r.Summary.Mean)
	r.LongestAbove = longest(s, Above, r.HighStreakAt)
	r.LongestBelow = longest(s, Below, r.LowStreakAt)
	r.LongestRising = longest(s, Rising, 0)
	r.LongestFalling = longest(s, Falling, 0)
	if seq != nil {
		b := s.PeriodBreakdown(seq, opts.MinSamples)
		r.Periods = &b
	}
	return r
}

func longest(s *Series, kind StreakKind, threshold int) *Streak {
	st, ok := s.LongestStreak(kind, threshold)
	if !ok {
		return nil
	}
	return &st
}

// StreakThresholds returns the scores a high streak must reach and a low
// streak must not exceed. With a band they sit band points either side of
// mean, rounded outwards to whole scores.
func (o ReportOptions) StreakThresholds(mean float64) (high, low int) {
	if o.StreakBand <= 0 {
		return o.HighStreak, o.LowStreak
	}
	return int(math.Ceil(mean + o.StreakBand)), int(math.Floor(mean - o.StreakBand))
}
