package scoring

import (
	"fmt"
	"time"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle"
	"github.com/destinyclock/destinyclock/pkg/period"
)

// Scorer produces the record of one calendar date. Implementations are safe
// for concurrent use.
type Scorer interface {
	Score(date time.Time) (DailyRecord, error)
}

// Adjuster contributes bonuses or penalties on top of the layer sum.
type Adjuster interface {
	// Key returns the machine-readable adjuster identifier.
	Key() string
	// Adjust inspects a record whose layer scores are set and returns the
	// adjustments it earns.
	Adjust(rec DailyRecord) ([]Adjustment, error)
}

// AdditiveScorer is the point-table scorer: each layer scores the sum of its
// stem and branch points and the final score is the sum of the layers plus
// any adjustments.
type AdditiveScorer struct {
	oracle    oracle.Oracle
	points    *PointTable
	periods   *period.Sequence
	adjusters []Adjuster
}

// NewAdditiveScorer creates a scorer. Without adjusters the final score is
// the pure layer sum.
func NewAdditiveScorer(o oracle.Oracle, points *PointTable, periods *period.Sequence, adjusters ...Adjuster) (*AdditiveScorer, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: oracle is required", ganzhi.ErrConfiguration)
	}
	if points == nil {
		return nil, fmt.Errorf("%w: point table is required", ganzhi.ErrConfiguration)
	}
	if periods == nil || periods.Len() == 0 {
		return nil, fmt.Errorf("%w: period sequence is required", ganzhi.ErrConfiguration)
	}
	return &AdditiveScorer{oracle: o, points: points, periods: periods, adjusters: adjusters}, nil
}

// Score evaluates the date at the oracle's reference hour.
func (s *AdditiveScorer) Score(date time.Time) (DailyRecord, error) {
	day := oracle.Day(date)
	dp, err := s.oracle.DatePillars(day)
	if err != nil {
		return DailyRecord{}, &ComputeError{Date: day, Err: err}
	}

	rec := DailyRecord{
		Date:   day,
		Period: s.periods.Resolve(day.Year()).Pillar,
		Year:   dp.Year,
		Month:  dp.Month,
		Day:    dp.Day,
	}
	rec.PeriodScore = s.points.Pillar(rec.Period)
	rec.YearScore = s.points.Pillar(rec.Year)
	rec.MonthScore = s.points.Pillar(rec.Month)
	rec.DayScore = s.points.Pillar(rec.Day)
	rec.FinalScore = rec.BaseScore()

	for _, a := range s.adjusters {
		adj, err := a.Adjust(rec)
		if err != nil {
			return DailyRecord{}, &ComputeError{Date: day, Err: fmt.Errorf("%s: %w", a.Key(), err)}
		}
		for _, x := range adj {
			rec.Adjustments = append(rec.Adjustments, x)
			rec.FinalScore += x.Points
		}
	}
	return rec, nil
}

// Periods returns the scorer's period sequence.
func (s *AdditiveScorer) Periods() *period.Sequence { return s.periods }

// Points returns the scorer's point table.
func (s *AdditiveScorer) Points() *PointTable { return s.points }
