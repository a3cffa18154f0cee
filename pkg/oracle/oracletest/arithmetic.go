// Package oracletest provides a deterministic oracle for tests. Day and hour
// pillars are exact; solar terms are approximated by fixed calendar days, which
// is accurate for most dates but not within a day of a term boundary.
package oracletest

import (
	"fmt"
	"time"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle"
)

// 2000-01-01 is 戊午, position 54 of the sixty-cycle.
var (
	epoch      = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	epochIndex = 54
)

// jieDays[m-1] is the approximate day of month m on which a new solar month begins.
var jieDays = [12]int{6, 4, 6, 5, 6, 6, 7, 8, 8, 8, 7, 7}

// Arithmetic is an oracle computed from calendar arithmetic alone.
type Arithmetic struct {
	// FailOn, when set, makes the oracle fail for matching dates.
	FailOn func(time.Time) bool
	// StartAge is the age at which the first major period begins. Zero means 8.
	StartAge int
}

var _ oracle.Oracle = (*Arithmetic)(nil)
var _ oracle.PeriodSource = (*Arithmetic)(nil)

func (a *Arithmetic) DatePillars(date time.Time) (oracle.DatePillars, error) {
	if a.FailOn != nil && a.FailOn(date) {
		return oracle.DatePillars{}, fmt.Errorf("%w: no pillars for %s", ganzhi.ErrOracle, oracle.DateKey(date))
	}
	year, month := YearMonth(date)
	return oracle.DatePillars{Year: year, Month: month, Day: DayPillar(date)}, nil
}

func (a *Arithmetic) FourPillars(birth time.Time) (oracle.FourPillars, error) {
	dp, err := a.DatePillars(birth)
	if err != nil {
		return oracle.FourPillars{}, err
	}
	return oracle.FourPillars{Year: dp.Year, Month: dp.Month, Day: dp.Day, Hour: HourPillar(dp.Day.Stem, birth.Hour())}, nil
}

// MajorPeriods steps from the month pillar through the sixty-cycle: forward
// for a yang-year male or yin-year female, backward otherwise.
func (a *Arithmetic) MajorPeriods(birth time.Time, gender ganzhi.Gender) ([]oracle.MajorPeriod, error) {
	fp, err := a.FourPillars(birth)
	if err != nil {
		return nil, err
	}
	forward := (fp.Year.Stem.Polarity() == ganzhi.Yang) == (gender == ganzhi.Male)
	startAge := a.StartAge
	if startAge == 0 {
		startAge = 8
	}

	periods := make([]oracle.MajorPeriod, 0, 9)
	p := fp.Month
	start := birth.Year() + startAge
	for i := 0; i < 9; i++ {
		if forward {
			p = p.Next()
		} else {
			p = p.Prev()
		}
		periods = append(periods, oracle.MajorPeriod{Pillar: p, StartYear: start, EndYear: start + 10})
		start += 10
	}
	return periods, nil
}

// DayPillar returns the exact day pillar of the civil date.
func DayPillar(date time.Time) ganzhi.Pillar {
	days := int(oracle.Day(date).Sub(epoch).Hours() / 24)
	return ganzhi.PillarAt(epochIndex + days)
}

// YearMonth returns the year and month pillars using fixed solar-term days.
func YearMonth(date time.Time) (ganzhi.Pillar, ganzhi.Pillar) {
	y, m, d := date.Year(), int(date.Month()), date.Day()

	// Solar month branch: 寅 starts around Feb 4, 丑 around Jan 6.
	branch := m % 12
	if d < jieDays[m-1] {
		branch = (m + 11) % 12
	}

	// The sexagenary year turns at the start of 寅.
	if m < 2 || (m == 2 && d < jieDays[1]) {
		y--
	}
	year := ganzhi.PillarAt(y - 4)

	first := (int(year.Stem)%5)*2 + 2
	n := (branch - 2 + 12) % 12
	month := ganzhi.Pillar{Stem: ganzhi.Stem((first + n) % 10), Branch: ganzhi.Branch(branch)}
	return year, month
}

// HourPillar returns the double-hour pillar for a day stem and clock hour.
func HourPillar(dayStem ganzhi.Stem, hour int) ganzhi.Pillar {
	branch := ((hour + 1) / 2) % 12
	first := (int(dayStem) % 5) * 2
	return ganzhi.Pillar{Stem: ganzhi.Stem((first + branch) % 10), Branch: ganzhi.Branch(branch)}
}
