package oracle_test

import (
	"errors"
	"testing"
	"time"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle"
)

func TestLunarOracleKnownDate(t *testing.T) {
	o := oracle.NewLunarOracle()
	dp, err := o.DatePillars(time.Date(2025, time.June, 11, 3, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DatePillars() error: %v", err)
	}
	if got := dp.Year.String() + dp.Month.String() + dp.Day.String(); got != "乙巳壬午辛亥" {
		t.Errorf("2025-06-11 = %s, want 乙巳壬午辛亥", got)
	}
}

func TestLunarOracleOutOfRange(t *testing.T) {
	o := oracle.NewLunarOracle()
	_, err := o.DatePillars(time.Date(1850, time.January, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ganzhi.ErrOracle) {
		t.Errorf("expected ErrOracle for 1850, got %v", err)
	}
}

func TestLunarOracleMajorPeriods(t *testing.T) {
	o := oracle.NewLunarOracle()
	periods, err := o.MajorPeriods(time.Date(1990, time.March, 15, 10, 0, 0, 0, time.UTC), ganzhi.Male)
	if err != nil {
		t.Fatalf("MajorPeriods() error: %v", err)
	}
	if len(periods) == 0 {
		t.Fatal("expected major periods")
	}
	for i, p := range periods {
		if p.StartYear >= p.EndYear {
			t.Errorf("period %d (%s): start %d >= end %d", i, p.Pillar, p.StartYear, p.EndYear)
		}
		if i > 0 && p.StartYear != periods[i-1].EndYear {
			t.Errorf("period %d (%s) not contiguous with previous", i, p.Pillar)
		}
	}
}
