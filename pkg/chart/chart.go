// Package chart builds a subject's natal chart and classifies its elemental
// balance.
package chart

import (
	"fmt"
	"time"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle"
)

// BirthInput is the raw birth data of a subject. Times are civil local time.
type BirthInput struct {
	Year     int           `yaml:"year" json:"year"`
	Month    int           `yaml:"month" json:"month"`
	Day      int           `yaml:"day" json:"day"`
	Hour     int           `yaml:"hour" json:"hour"`
	Minute   int           `yaml:"minute" json:"minute"`
	Gender   ganzhi.Gender `yaml:"gender" json:"gender"`
	Location string        `yaml:"location,omitempty" json:"location,omitempty"`
}

// Validate rejects impossible calendar values and a missing gender.
func (b BirthInput) Validate() error {
	if b.Month < 1 || b.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ganzhi.ErrInvalidInput, b.Month)
	}
	if b.Day < 1 || b.Day > daysIn(b.Year, b.Month) {
		return fmt.Errorf("%w: day %d out of range for %04d-%02d", ganzhi.ErrInvalidInput, b.Day, b.Year, b.Month)
	}
	if b.Hour < 0 || b.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ganzhi.ErrInvalidInput, b.Hour)
	}
	if b.Minute < 0 || b.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", ganzhi.ErrInvalidInput, b.Minute)
	}
	if b.Gender != ganzhi.Male && b.Gender != ganzhi.Female {
		return fmt.Errorf("%w: gender is required", ganzhi.ErrInvalidInput)
	}
	return nil
}

// Time returns the birth instant. The location is carried as a label only, so
// the instant is expressed in UTC with the civil fields unchanged.
func (b BirthInput) Time() time.Time {
	return time.Date(b.Year, time.Month(b.Month), b.Day, b.Hour, b.Minute, 0, 0, time.UTC)
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Position identifies one of the four natal pillars.
type Position int

const (
	YearPosition Position = iota
	MonthPosition
	DayPosition
	HourPosition
)

// Positions in natal order.
var Positions = [4]Position{YearPosition, MonthPosition, DayPosition, HourPosition}

func (p Position) String() string {
	switch p {
	case YearPosition:
		return "year"
	case MonthPosition:
		return "month"
	case DayPosition:
		return "day"
	case HourPosition:
		return "hour"
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// NatalChart is the four birth pillars of one subject. It is a value; copies
// are independent and nothing mutates it after New.
type NatalChart struct {
	Birth   time.Time          `json:"birth"`
	Gender  ganzhi.Gender      `json:"gender"`
	Pillars oracle.FourPillars `json:"pillars"`
}

// New validates the input and resolves the natal pillars.
func New(o oracle.Oracle, in BirthInput) (NatalChart, error) {
	if err := in.Validate(); err != nil {
		return NatalChart{}, err
	}
	birth := in.Time()
	fp, err := o.FourPillars(birth)
	if err != nil {
		return NatalChart{}, fmt.Errorf("natal pillars for %s: %w", birth.Format(time.DateTime), err)
	}
	return NatalChart{Birth: birth, Gender: in.Gender, Pillars: fp}, nil
}

// Pillar returns the pillar at the given position.
func (c NatalChart) Pillar(pos Position) ganzhi.Pillar {
	switch pos {
	case YearPosition:
		return c.Pillars.Year
	case MonthPosition:
		return c.Pillars.Month
	case DayPosition:
		return c.Pillars.Day
	default:
		return c.Pillars.Hour
	}
}

// DayMaster is the day stem, the reference point of every balance judgement.
func (c NatalChart) DayMaster() ganzhi.Stem { return c.Pillars.Day.Stem }

func (c NatalChart) String() string {
	return fmt.Sprintf("%s %s %s %s", c.Pillars.Year, c.Pillars.Month, c.Pillars.Day, c.Pillars.Hour)
}
