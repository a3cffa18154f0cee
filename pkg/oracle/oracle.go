// Package oracle converts civil dates into sexagenary pillars. Solar-term
// boundaries and calendar astronomy are the oracle's business; the scoring
// packages only see typed pillars.
package oracle

import (
	"time"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
)

// DefaultReferenceHour is the hour at which a calendar date is evaluated, so
// that each civil date maps to exactly one set of pillars.
const DefaultReferenceHour = 12

// DatePillars are the year, month and day pillars of one civil date.
type DatePillars struct {
	Year  ganzhi.Pillar `json:"year"`
	Month ganzhi.Pillar `json:"month"`
	Day   ganzhi.Pillar `json:"day"`
}

// FourPillars are the natal pillars of a birth instant.
type FourPillars struct {
	Year  ganzhi.Pillar `json:"year"`
	Month ganzhi.Pillar `json:"month"`
	Day   ganzhi.Pillar `json:"day"`
	Hour  ganzhi.Pillar `json:"hour"`
}

// Oracle resolves pillars. Implementations must be safe for concurrent use
// and return errors wrapping ganzhi.ErrOracle for dates they cannot resolve.
type Oracle interface {
	// DatePillars evaluates the date at the oracle's reference hour; only the
	// year, month and day of date are used.
	DatePillars(date time.Time) (DatePillars, error)
	// FourPillars evaluates the exact birth instant.
	FourPillars(birth time.Time) (FourPillars, error)
}

// MajorPeriod is one decade pillar with its half-open [StartYear, EndYear) span.
type MajorPeriod struct {
	Pillar    ganzhi.Pillar
	StartYear int
	EndYear   int
}

// PeriodSource computes a subject's major periods.
type PeriodSource interface {
	MajorPeriods(birth time.Time, gender ganzhi.Gender) ([]MajorPeriod, error)
}

// DateKey formats a date the way the rest of the system keys days.
func DateKey(t time.Time) string { return t.Format(time.DateOnly) }

// Day truncates t to its civil date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
