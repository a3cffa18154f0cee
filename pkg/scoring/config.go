package scoring

import (
	"fmt"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
)

// RelationBonuses holds the points applied when the pillars of one day's
// layers interact with each other. Negative values are penalties.
type RelationBonuses struct {
	SixCombination  int `yaml:"six_combination" json:"six_combination"`
	HalfHarmony     int `yaml:"half_harmony" json:"half_harmony"`
	FullHarmony     int `yaml:"full_harmony" json:"full_harmony"`
	Clash           int `yaml:"clash" json:"clash"`
	Punishment      int `yaml:"punishment" json:"punishment"`
	Harm            int `yaml:"harm" json:"harm"`
	StemCombination int `yaml:"stem_combination" json:"stem_combination"`
}

// DefaultRelationBonuses returns the standard relation magnitudes.
func DefaultRelationBonuses() RelationBonuses {
	return RelationBonuses{
		SixCombination:  2,
		HalfHarmony:     1,
		FullHarmony:     3,
		Clash:           -3,
		Punishment:      -2,
		Harm:            -1,
		StemCombination: 1,
	}
}

// points returns the configured magnitude for a branch or stem relation.
func (b RelationBonuses) points(kind ganzhi.RelationKind) int {
	switch kind {
	case ganzhi.SixCombination:
		return b.SixCombination
	case ganzhi.ThreeHarmony:
		return b.HalfHarmony
	case ganzhi.Clash:
		return b.Clash
	case ganzhi.Punishment:
		return b.Punishment
	case ganzhi.Harm:
		return b.Harm
	case ganzhi.StemCombination:
		return b.StemCombination
	}
	return 0
}

// PositionWeights scale relations to each natal pillar.
type PositionWeights struct {
	Year  float64 `yaml:"year" json:"year"`
	Month float64 `yaml:"month" json:"month"`
	Day   float64 `yaml:"day" json:"day"`
	Hour  float64 `yaml:"hour" json:"hour"`
}

// ElementRelations scores one element acting on another, by whether the
// actor and the target are favorable (F) or unfavorable (U).
type ElementRelations struct {
	// Actor generates target.
	GenerateFF int `yaml:"generate_ff" json:"generate_ff"`
	GenerateFU int `yaml:"generate_fu" json:"generate_fu"`
	GenerateUF int `yaml:"generate_uf" json:"generate_uf"`
	GenerateUU int `yaml:"generate_uu" json:"generate_uu"`

	// Actor controls target.
	ControlFF int `yaml:"control_ff" json:"control_ff"`
	ControlFU int `yaml:"control_fu" json:"control_fu"`
	ControlUF int `yaml:"control_uf" json:"control_uf"`
	ControlUU int `yaml:"control_uu" json:"control_uu"`
}

// BranchRelations scores six-combinations and clashes by the favorability of
// the two branch elements. A clash between a favorable and an unfavorable
// branch suppresses the unfavorable one.
type BranchRelations struct {
	CombineFF  int `yaml:"combine_ff" json:"combine_ff"`
	CombineUU  int `yaml:"combine_uu" json:"combine_uu"`
	ClashMixed int `yaml:"clash_mixed" json:"clash_mixed"`
	ClashFF    int `yaml:"clash_ff" json:"clash_ff"`
	ClashUU    int `yaml:"clash_uu" json:"clash_uu"`
}

// Bands are the thresholds of the qualitative reading. A score above
// VeryFavorable is very favorable, above zero favorable, zero neutral, above
// VeryUnfavorable unfavorable, anything lower very unfavorable.
type Bands struct {
	VeryFavorable   int `yaml:"very_favorable" json:"very_favorable"`
	VeryUnfavorable int `yaml:"very_unfavorable" json:"very_unfavorable"`
}

// RelationalWeights configures the relational scorer.
type RelationalWeights struct {
	ElementMatch int              `yaml:"element_match" json:"element_match"`
	Positions    PositionWeights  `yaml:"positions" json:"positions"`
	Elements     ElementRelations `yaml:"elements" json:"elements"`
	Branches     BranchRelations  `yaml:"branches" json:"branches"`
	Bands        Bands            `yaml:"bands" json:"bands"`
}

// DefaultRelationalWeights returns the standard relational weights. The day
// pillar weighs most, then month, hour and year.
func DefaultRelationalWeights() RelationalWeights {
	return RelationalWeights{
		ElementMatch: 2,
		Positions: PositionWeights{
			Year:  1.0,
			Month: 1.5,
			Day:   2.0,
			Hour:  1.2,
		},
		Elements: ElementRelations{
			GenerateFF: 1,
			GenerateFU: -1,
			GenerateUF: -1,
			GenerateUU: -2,

			ControlFU: 2,
			ControlUF: -2,
			ControlFF: -1,
			ControlUU: 1,
		},
		Branches: BranchRelations{
			CombineFF:  1,
			CombineUU:  -1,
			ClashMixed: 2,
			ClashFF:    -1,
			ClashUU:    1,
		},
		Bands: Bands{
			VeryFavorable:   5,
			VeryUnfavorable: -5,
		},
	}
}

// Validate checks weights that would make the reading meaningless.
func (w RelationalWeights) Validate() error {
	p := w.Positions
	if p.Year < 0 || p.Month < 0 || p.Day < 0 || p.Hour < 0 {
		return fmt.Errorf("%w: position weights must be non-negative", ganzhi.ErrConfiguration)
	}
	if w.Bands.VeryFavorable < 0 || w.Bands.VeryUnfavorable > 0 {
		return fmt.Errorf("%w: bands must straddle zero (very_favorable %d, very_unfavorable %d)",
			ganzhi.ErrConfiguration, w.Bands.VeryFavorable, w.Bands.VeryUnfavorable)
	}
	return nil
}
