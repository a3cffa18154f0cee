package oracletest_test

import (
	"errors"
	"testing"
	"time"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle/oracletest"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDatePillars(t *testing.T) {
	tests := []struct {
		date              time.Time
		year, month, day string
	}{
		{date(2025, time.June, 11), "乙巳", "壬午", "辛亥"},
		{date(2025, time.January, 29), "甲辰", "丁丑", "戊戌"},
		{date(2000, time.January, 1), "己卯", "丙子", "戊午"},
		{date(2024, time.February, 3), "癸卯", "乙丑", "丁酉"},
		{date(2024, time.February, 4), "甲辰", "丙寅", "戊戌"},
	}
	o := &oracletest.Arithmetic{}
	for _, tt := range tests {
		t.Run(tt.date.Format(time.DateOnly), func(t *testing.T) {
			dp, err := o.DatePillars(tt.date)
			if err != nil {
				t.Fatalf("DatePillars() error: %v", err)
			}
			if dp.Year.String() != tt.year || dp.Month.String() != tt.month || dp.Day.String() != tt.day {
				t.Errorf("got %s %s %s, want %s %s %s", dp.Year, dp.Month, dp.Day, tt.year, tt.month, tt.day)
			}
		})
	}
}

func TestHourPillar(t *testing.T) {
	jia := ganzhi.MustPillar("甲子").Stem
	if got := oracletest.HourPillar(jia, 0).String(); got != "甲子" {
		t.Errorf("甲 day, 00h = %s, want 甲子", got)
	}
	if got := oracletest.HourPillar(jia, 12).String(); got != "庚午" {
		t.Errorf("甲 day, 12h = %s, want 庚午", got)
	}
}

func TestFailOn(t *testing.T) {
	bad := date(2030, time.March, 3)
	o := &oracletest.Arithmetic{FailOn: func(d time.Time) bool { return d.Equal(bad) }}
	if _, err := o.DatePillars(bad); !errors.Is(err, ganzhi.ErrOracle) {
		t.Errorf("expected ErrOracle, got %v", err)
	}
	if _, err := o.DatePillars(bad.AddDate(0, 0, 1)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMajorPeriodsContiguous(t *testing.T) {
	o := &oracletest.Arithmetic{}
	birth := time.Date(1989, time.September, 2, 8, 0, 0, 0, time.UTC)
	for _, g := range []ganzhi.Gender{ganzhi.Male, ganzhi.Female} {
		periods, err := o.MajorPeriods(birth, g)
		if err != nil {
			t.Fatalf("MajorPeriods(%s) error: %v", g, err)
		}
		for i := 1; i < len(periods); i++ {
			if periods[i].StartYear != periods[i-1].EndYear {
				t.Errorf("%s: gap between %d and %d", g, periods[i-1].EndYear, periods[i].StartYear)
			}
		}
	}

	// 1989 is a yin (己) year, so a female subject runs forward from the month pillar.
	fp, _ := o.FourPillars(birth)
	periods, _ := o.MajorPeriods(birth, ganzhi.Female)
	if periods[0].Pillar != fp.Month.Next() {
		t.Errorf("first period = %s, want %s", periods[0].Pillar, fp.Month.Next())
	}
}
