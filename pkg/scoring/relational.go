package scoring

import (
	"fmt"
	"time"

	"github.com/destinyclock/destinyclock/pkg/chart"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle"
	"github.com/destinyclock/destinyclock/pkg/period"
)

// Band is the qualitative reading of a relational score.
type Band string

const (
	BandVeryFavorable   Band = "VERY_FAVORABLE"
	BandFavorable       Band = "FAVORABLE"
	BandNeutral         Band = "NEUTRAL"
	BandUnfavorable     Band = "UNFAVORABLE"
	BandVeryUnfavorable Band = "VERY_UNFAVORABLE"
)

// BandFor maps a score to its band.
func BandFor(score int, b Bands) Band {
	switch {
	case score > b.VeryFavorable:
		return BandVeryFavorable
	case score > 0:
		return BandFavorable
	case score == 0:
		return BandNeutral
	case score > b.VeryUnfavorable:
		return BandUnfavorable
	default:
		return BandVeryUnfavorable
	}
}

// EvidenceType classifies a relational contribution.
type EvidenceType string

const (
	EvidenceElement        EvidenceType = "ELEMENT"
	EvidenceStemRelation   EvidenceType = "STEM_RELATION"
	EvidenceBranchRelation EvidenceType = "BRANCH_RELATION"
	EvidenceCombination    EvidenceType = "SIX_COMBINATION"
	EvidenceClash          EvidenceType = "CLASH"
)

// EvidenceItem is one concrete contribution to a pillar's relational score.
type EvidenceItem struct {
	Type     EvidenceType `json:"type"`
	Summary  string       `json:"summary"`
	Position string       `json:"position,omitempty"` // natal pillar involved
	Points   int          `json:"points"`
}

// PillarScore is the relational score of one layer pillar.
type PillarScore struct {
	Layer      Layer          `json:"layer"`
	Pillar     ganzhi.Pillar  `json:"pillar"`
	Score      int            `json:"score"`
	Cumulative int            `json:"cumulative"`
	Evidence   []EvidenceItem `json:"evidence"`
}

// Reading is the relational assessment of one date.
type Reading struct {
	Date     time.Time      `json:"date"`
	Analysis chart.Analysis `json:"analysis"`
	Layers   []PillarScore  `json:"layers"`
	Total    int            `json:"total"`
	Band     Band           `json:"band"`
}

// RelationalScorer scores dates against a natal chart's favorable and
// unfavorable elements.
type RelationalScorer struct {
	oracle    oracle.Oracle
	periods   *period.Sequence
	chart     chart.NatalChart
	analysis  chart.Analysis
	weights   RelationalWeights
	relations *ganzhi.RelationTable
}

// NewRelationalScorer analyzes the chart once and returns a scorer bound to it.
func NewRelationalScorer(o oracle.Oracle, periods *period.Sequence, c chart.NatalChart, rule chart.StrengthRule, w RelationalWeights) (*RelationalScorer, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: oracle is required", ganzhi.ErrConfiguration)
	}
	if periods == nil || periods.Len() == 0 {
		return nil, fmt.Errorf("%w: period sequence is required", ganzhi.ErrConfiguration)
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &RelationalScorer{
		oracle:    o,
		periods:   periods,
		chart:     c,
		analysis:  chart.Analyze(c, rule),
		weights:   w,
		relations: ganzhi.DefaultRelations(),
	}, nil
}

// Analysis returns the natal balance the scorer judges against.
func (s *RelationalScorer) Analysis() chart.Analysis { return s.analysis }

// Reading scores the period, year, month and day pillars of the date and
// accumulates them outermost first.
func (s *RelationalScorer) Reading(date time.Time) (Reading, error) {
	day := oracle.Day(date)
	dp, err := s.oracle.DatePillars(day)
	if err != nil {
		return Reading{}, &ComputeError{Date: day, Err: err}
	}
	pillars := [4]ganzhi.Pillar{s.periods.Resolve(day.Year()).Pillar, dp.Year, dp.Month, dp.Day}

	r := Reading{Date: day, Analysis: s.analysis, Layers: make([]PillarScore, 0, 4)}
	for _, l := range Layers {
		ps := s.ScorePillar(l, pillars[l])
		r.Total += ps.Score
		ps.Cumulative = r.Total
		r.Layers = append(r.Layers, ps)
	}
	r.Band = BandFor(r.Total, s.weights.Bands)
	return r, nil
}

// Score adapts a reading to a daily record so relational scores can feed the
// same series analytics as additive ones.
func (s *RelationalScorer) Score(date time.Time) (DailyRecord, error) {
	r, err := s.Reading(date)
	if err != nil {
		return DailyRecord{}, err
	}
	rec := DailyRecord{
		Date:        r.Date,
		Period:      r.Layers[PeriodLayer].Pillar,
		Year:        r.Layers[YearLayer].Pillar,
		Month:       r.Layers[MonthLayer].Pillar,
		Day:         r.Layers[DayLayer].Pillar,
		PeriodScore: r.Layers[PeriodLayer].Score,
		YearScore:   r.Layers[YearLayer].Score,
		MonthScore:  r.Layers[MonthLayer].Score,
		DayScore:    r.Layers[DayLayer].Score,
	}
	rec.FinalScore = rec.BaseScore()
	return rec, nil
}

// ScorePillar scores one candidate pillar: its own elements, then its
// relations to every natal pillar weighted by position.
func (s *RelationalScorer) ScorePillar(l Layer, p ganzhi.Pillar) PillarScore {
	ps := PillarScore{Layer: l, Pillar: p}
	add := func(item EvidenceItem) {
		if item.Points == 0 {
			return
		}
		ps.Evidence = append(ps.Evidence, item)
		ps.Score += item.Points
	}

	fav, unfav := s.analysis.Favorable, s.analysis.Unfavorable
	match := func(label string, e ganzhi.Element) {
		switch {
		case fav.Has(e):
			add(EvidenceItem{Type: EvidenceElement, Summary: fmt.Sprintf("%s (%s) favorable", label, e), Points: s.weights.ElementMatch})
		case unfav.Has(e):
			add(EvidenceItem{Type: EvidenceElement, Summary: fmt.Sprintf("%s (%s) unfavorable", label, e), Points: -s.weights.ElementMatch})
		}
	}
	match(p.Stem.String(), p.Stem.Element())
	match(p.Branch.String(), p.Branch.Element())

	for _, pos := range chart.Positions {
		natal := s.chart.Pillar(pos)
		w := s.positionWeight(pos)

		if rel := s.elementRelation(p.Stem.Element(), natal.Stem.Element()); rel != 0 {
			add(EvidenceItem{
				Type:     EvidenceStemRelation,
				Summary:  fmt.Sprintf("%s(%s) acts on %s %s(%s)", p.Stem, p.Stem.Element(), pos, natal.Stem, natal.Stem.Element()),
				Position: pos.String(),
				Points:   int(float64(rel) * w),
			})
		}
		if rel := s.elementRelation(p.Branch.Element(), natal.Branch.Element()); rel != 0 {
			add(EvidenceItem{
				Type:     EvidenceBranchRelation,
				Summary:  fmt.Sprintf("%s(%s) acts on %s %s(%s)", p.Branch, p.Branch.Element(), pos, natal.Branch, natal.Branch.Element()),
				Position: pos.String(),
				Points:   int(float64(rel) * w),
			})
		}
		if item, ok := s.branchRelation(p.Branch, natal.Branch, w); ok {
			item.Position = pos.String()
			add(item)
		}
	}
	return ps
}

func (s *RelationalScorer) positionWeight(pos chart.Position) float64 {
	pw := s.weights.Positions
	switch pos {
	case chart.YearPosition:
		return pw.Year
	case chart.MonthPosition:
		return pw.Month
	case chart.DayPosition:
		return pw.Day
	default:
		return pw.Hour
	}
}

// elementRelation scores actor acting on target by generation or control.
func (s *RelationalScorer) elementRelation(actor, target ganzhi.Element) int {
	fav, unfav := s.analysis.Favorable, s.analysis.Unfavorable
	er := s.weights.Elements
	switch {
	case actor.Generates() == target:
		switch {
		case fav.Has(actor) && fav.Has(target):
			return er.GenerateFF
		case fav.Has(actor) && unfav.Has(target):
			return er.GenerateFU
		case unfav.Has(actor) && fav.Has(target):
			return er.GenerateUF
		case unfav.Has(actor) && unfav.Has(target):
			return er.GenerateUU
		}
	case actor.Destroys() == target:
		switch {
		case fav.Has(actor) && unfav.Has(target):
			return er.ControlFU
		case unfav.Has(actor) && fav.Has(target):
			return er.ControlUF
		case fav.Has(actor) && fav.Has(target):
			return er.ControlFF
		case unfav.Has(actor) && unfav.Has(target):
			return er.ControlUU
		}
	}
	return 0
}

// branchRelation scores a six-combination or clash by favorability.
func (s *RelationalScorer) branchRelation(a, b ganzhi.Branch, w float64) (EvidenceItem, bool) {
	fav, unfav := s.analysis.Favorable, s.analysis.Unfavorable
	ea, eb := a.Element(), b.Element()
	br := s.weights.Branches

	var pts int
	var typ EvidenceType
	var note string
	switch {
	case s.relations.Has(ganzhi.SixCombination, a, b):
		typ = EvidenceCombination
		switch {
		case fav.Has(ea) && fav.Has(eb):
			pts, note = br.CombineFF, "favorable elements combine"
		case unfav.Has(ea) && unfav.Has(eb):
			pts, note = br.CombineUU, "unfavorable elements combine"
		}
	case s.relations.Has(ganzhi.Clash, a, b):
		typ = EvidenceClash
		switch {
		case (fav.Has(ea) && unfav.Has(eb)) || (unfav.Has(ea) && fav.Has(eb)):
			pts, note = br.ClashMixed, "favorable suppresses unfavorable"
		case fav.Has(ea) && fav.Has(eb):
			pts, note = br.ClashFF, "favorable elements clash"
		case unfav.Has(ea) && unfav.Has(eb):
			pts, note = br.ClashUU, "unfavorable elements clash"
		}
	}
	if pts == 0 {
		return EvidenceItem{}, false
	}
	return EvidenceItem{
		Type:    typ,
		Summary: fmt.Sprintf("%s %s %s: %s", a, typ, b, note),
		Points:  int(float64(pts) * w),
	}, true
}
