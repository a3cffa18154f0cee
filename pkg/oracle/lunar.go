package oracle

import (
	"fmt"
	"time"

	"github.com/6tail/lunar-go/calendar"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
)

const (
	defaultMinYear = 1900
	defaultMaxYear = 2100
)

// LunarOracle resolves pillars with the lunar-go calendar library.
type LunarOracle struct {
	ReferenceHour int
	MinYear       int
	MaxYear       int
}

// NewLunarOracle returns an oracle evaluating dates at noon over 1900-2100.
func NewLunarOracle() *LunarOracle {
	return &LunarOracle{
		ReferenceHour: DefaultReferenceHour,
		MinYear:       defaultMinYear,
		MaxYear:       defaultMaxYear,
	}
}

func (o *LunarOracle) DatePillars(date time.Time) (DatePillars, error) {
	at := time.Date(date.Year(), date.Month(), date.Day(), o.ReferenceHour, 0, 0, 0, time.UTC)
	ec, err := o.eightChar(at)
	if err != nil {
		return DatePillars{}, err
	}
	var dp DatePillars
	if dp.Year, err = parse(at, "year", ec.GetYear()); err != nil {
		return DatePillars{}, err
	}
	if dp.Month, err = parse(at, "month", ec.GetMonth()); err != nil {
		return DatePillars{}, err
	}
	if dp.Day, err = parse(at, "day", ec.GetDay()); err != nil {
		return DatePillars{}, err
	}
	return dp, nil
}

func (o *LunarOracle) FourPillars(birth time.Time) (FourPillars, error) {
	ec, err := o.eightChar(birth)
	if err != nil {
		return FourPillars{}, err
	}
	var fp FourPillars
	if fp.Year, err = parse(birth, "year", ec.GetYear()); err != nil {
		return FourPillars{}, err
	}
	if fp.Month, err = parse(birth, "month", ec.GetMonth()); err != nil {
		return FourPillars{}, err
	}
	if fp.Day, err = parse(birth, "day", ec.GetDay()); err != nil {
		return FourPillars{}, err
	}
	if fp.Hour, err = parse(birth, "hour", ec.GetTime()); err != nil {
		return FourPillars{}, err
	}
	return fp, nil
}

// MajorPeriods returns the decade pillars the library tabulates. Its childhood
// entry has no pillar and is skipped.
func (o *LunarOracle) MajorPeriods(birth time.Time, gender ganzhi.Gender) (periods []MajorPeriod, err error) {
	ec, err := o.eightChar(birth)
	if err != nil {
		return nil, err
	}
	g := 0
	if gender == ganzhi.Male {
		g = 1
	}

	defer func() {
		if r := recover(); r != nil {
			periods = nil
			err = fmt.Errorf("%w: major periods for %s: %v", ganzhi.ErrOracle, DateKey(birth), r)
		}
	}()

	for _, dy := range ec.GetYun(g).GetDaYun() {
		label := dy.GetGanZhi()
		if label == "" {
			continue
		}
		p, err := parse(birth, "major period", label)
		if err != nil {
			return nil, err
		}
		periods = append(periods, MajorPeriod{
			Pillar:    p,
			StartYear: dy.GetStartYear(),
			EndYear:   dy.GetEndYear() + 1,
		})
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: no major periods for %s", ganzhi.ErrOracle, DateKey(birth))
	}
	return periods, nil
}

func (o *LunarOracle) eightChar(t time.Time) (ec *calendar.EightChar, err error) {
	if y := t.Year(); y < o.MinYear || y > o.MaxYear {
		return nil, fmt.Errorf("%w: year %d outside supported range %d-%d", ganzhi.ErrOracle, y, o.MinYear, o.MaxYear)
	}
	defer func() {
		if r := recover(); r != nil {
			ec = nil
			err = fmt.Errorf("%w: converting %s: %v", ganzhi.ErrOracle, t.Format(time.DateTime), r)
		}
	}()
	solar := calendar.NewSolar(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	return solar.GetLunar().GetEightChar(), nil
}

func parse(t time.Time, what, label string) (ganzhi.Pillar, error) {
	p, err := ganzhi.ParsePillar(label)
	if err != nil {
		return ganzhi.Pillar{}, fmt.Errorf("%w: %s pillar for %s: %v", ganzhi.ErrOracle, what, DateKey(t), err)
	}
	return p, nil
}
