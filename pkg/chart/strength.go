package chart

import (
	"fmt"
	"strings"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
)

// Strength is the day master's overall balance.
type Strength int

const (
	Weak Strength = iota
	Balanced
	Strong
)

func (s Strength) String() string {
	switch s {
	case Weak:
		return "weak"
	case Balanced:
		return "balanced"
	case Strong:
		return "strong"
	}
	return fmt.Sprintf("Strength(%d)", int(s))
}

func (s Strength) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Strength) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "weak":
		*s = Weak
	case "balanced":
		*s = Balanced
	case "strong":
		*s = Strong
	default:
		return fmt.Errorf("unknown strength %q", string(b))
	}
	return nil
}

// Override forces a classification for a day-master element and month-branch
// element pair, regardless of the computed score.
type Override struct {
	DayElement   ganzhi.Element `yaml:"day_element" json:"day_element"`
	MonthElement ganzhi.Element `yaml:"month_element" json:"month_element"`
	Strength     Strength       `yaml:"strength" json:"strength"`
}

// StrengthRule holds the weights of the balance classification.
type StrengthRule struct {
	// Month-branch support for the day master.
	MonthGenerates int `yaml:"month_generates" json:"month_generates"`
	MonthSame      int `yaml:"month_same" json:"month_same"`
	MonthDestroys  int `yaml:"month_destroys" json:"month_destroys"`

	// Per-label weights of the draining and attacking elements.
	DrainWeight  int `yaml:"drain_weight" json:"drain_weight"`
	AttackWeight int `yaml:"attack_weight" json:"attack_weight"`
	WealthWeight int `yaml:"wealth_weight" json:"wealth_weight"`

	// Scores below WeakBelow are weak, scores at or above StrongFrom are
	// strong, anything between is balanced.
	WeakBelow  int `yaml:"weak_below" json:"weak_below"`
	StrongFrom int `yaml:"strong_from" json:"strong_from"`

	Overrides []Override `yaml:"overrides" json:"overrides"`
}

// DefaultStrengthRule returns the standard weights. With WeakBelow equal to
// StrongFrom the classification is two-way.
func DefaultStrengthRule() StrengthRule {
	return StrengthRule{
		MonthGenerates: 3,
		MonthSame:      2,
		MonthDestroys:  -4,
		DrainWeight:    2,
		AttackWeight:   2,
		WealthWeight:   0,
		WeakBelow:      1,
		StrongFrom:     1,
		Overrides: []Override{
			{DayElement: ganzhi.Water, MonthElement: ganzhi.Fire, Strength: Weak},
		},
	}
}

// Validate checks the thresholds are ordered.
func (r StrengthRule) Validate() error {
	if r.StrongFrom < r.WeakBelow {
		return fmt.Errorf("%w: strong_from %d below weak_below %d", ganzhi.ErrConfiguration, r.StrongFrom, r.WeakBelow)
	}
	return nil
}

// Analysis is the balance classification of a natal chart.
type Analysis struct {
	DayMaster    ganzhi.Stem       `json:"-"`
	Element      ganzhi.Element    `json:"element"`
	Counts       [5]int            `json:"counts"`
	MonthSupport int               `json:"month_support"`
	Score        int               `json:"score"`
	Strength     Strength          `json:"strength"`
	Overridden   bool              `json:"overridden"`
	Favorable    ganzhi.ElementSet `json:"favorable"`
	Unfavorable  ganzhi.ElementSet `json:"unfavorable"`
}

// Analyze counts the elements of all eight natal labels, weighs the month
// branch, and derives the favorable and unfavorable elements.
func Analyze(c NatalChart, rule StrengthRule) Analysis {
	dm := c.DayMaster().Element()
	a := Analysis{DayMaster: c.DayMaster(), Element: dm}

	for _, pos := range Positions {
		p := c.Pillar(pos)
		a.Counts[p.Stem.Element()]++
		a.Counts[p.Branch.Element()]++
	}

	month := c.Pillars.Month.Branch.Element()
	switch month {
	case dm.GeneratedBy():
		a.MonthSupport = rule.MonthGenerates
	case dm:
		a.MonthSupport = rule.MonthSame
	case dm.DestroyedBy():
		a.MonthSupport = rule.MonthDestroys
	}

	support := a.Counts[dm] + a.Counts[dm.GeneratedBy()]
	drain := a.Counts[dm.Generates()] * rule.DrainWeight
	attack := a.Counts[dm.DestroyedBy()] * rule.AttackWeight
	wealth := a.Counts[dm.Destroys()] * rule.WealthWeight
	a.Score = a.MonthSupport + support - drain - attack - wealth

	switch {
	case a.Score < rule.WeakBelow:
		a.Strength = Weak
	case a.Score >= rule.StrongFrom:
		a.Strength = Strong
	default:
		a.Strength = Balanced
	}
	for _, o := range rule.Overrides {
		if o.DayElement == dm && o.MonthElement == month {
			a.Strength = o.Strength
			a.Overridden = true
			break
		}
	}

	a.Favorable, a.Unfavorable = Preferences(dm, a.Strength)
	return a
}

// Preferences returns the favorable and unfavorable elements for a day-master
// element of the given strength. A weak day master wants support; a strong one
// wants to be drained and controlled.
func Preferences(dm ganzhi.Element, s Strength) (favorable, unfavorable ganzhi.ElementSet) {
	support := ganzhi.NewElementSet(dm, dm.GeneratedBy())
	pressure := ganzhi.NewElementSet(dm.DestroyedBy(), dm.Generates(), dm.Destroys())
	switch s {
	case Weak:
		return support, pressure
	case Strong:
		return pressure, support
	default:
		return ganzhi.NewElementSet(dm.Generates()), ganzhi.NewElementSet(dm.DestroyedBy())
	}
}
