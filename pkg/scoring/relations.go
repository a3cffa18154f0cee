package scoring

import (
	"fmt"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
)

const fullHarmony ganzhi.RelationKind = "full_harmony"

// RelationAdjuster applies bonuses for relations between the four layer
// pillars of the same day.
type RelationAdjuster struct {
	Bonuses   RelationBonuses
	Relations *ganzhi.RelationTable
}

// NewRelationAdjuster uses the traditional relation tables.
func NewRelationAdjuster(b RelationBonuses) *RelationAdjuster {
	return &RelationAdjuster{Bonuses: b, Relations: ganzhi.DefaultRelations()}
}

func (r *RelationAdjuster) Key() string { return "relations" }

func (r *RelationAdjuster) Adjust(rec DailyRecord) ([]Adjustment, error) {
	var out []Adjustment
	add := func(kind ganzhi.RelationKind, points int, summary string, layers ...Layer) {
		if points == 0 {
			return
		}
		out = append(out, Adjustment{
			Source:  r.Key(),
			Kind:    string(kind),
			Layers:  layers,
			Summary: summary,
			Points:  points,
		})
	}

	for i := 0; i < len(Layers); i++ {
		for j := i + 1; j < len(Layers); j++ {
			li, lj := Layers[i], Layers[j]
			pi, pj := rec.Pillar(li), rec.Pillar(lj)

			for _, kind := range r.Relations.Branches(pi.Branch, pj.Branch) {
				add(kind, r.Bonuses.points(kind),
					fmt.Sprintf("%s %s / %s %s %s", li, pi.Branch, lj, pj.Branch, kind), li, lj)
			}
			if e, ok := r.Relations.Stems(pi.Stem, pj.Stem); ok {
				add(ganzhi.StemCombination, r.Bonuses.StemCombination,
					fmt.Sprintf("%s %s / %s %s combine into %s", li, pi.Stem, lj, pj.Stem, e), li, lj)
			}
		}
	}

	// A complete harmony frame across any three layers.
	for skip := len(Layers) - 1; skip >= 0; skip-- {
		var ls []Layer
		for _, l := range Layers {
			if int(l) != skip {
				ls = append(ls, l)
			}
		}
		a, b, c := rec.Pillar(ls[0]).Branch, rec.Pillar(ls[1]).Branch, rec.Pillar(ls[2]).Branch
		if e, ok := r.Relations.FullHarmony(a, b, c); ok {
			add(fullHarmony, r.Bonuses.FullHarmony,
				fmt.Sprintf("%s%s%s form a %s frame", a, b, c, e), ls...)
		}
	}
	return out, nil
}
