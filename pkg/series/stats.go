package series

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/period"
	"github.com/destinyclock/destinyclock/pkg/scoring"
)

// DefaultMinSamples is the smallest group reported in ranked output.
const DefaultMinSamples = 20

// Stats are descriptive statistics of a set of final scores.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

func describe(scores []int) Stats {
	if len(scores) == 0 {
		return Stats{}
	}
	xs := make([]float64, len(scores))
	st := Stats{Count: len(scores), Min: scores[0], Max: scores[0]}
	for i, v := range scores {
		xs[i] = float64(v)
		st.Min = min(st.Min, v)
		st.Max = max(st.Max, v)
	}
	if len(xs) < 2 {
		st.Mean = xs[0]
		return st
	}
	st.Mean, st.StdDev = stat.MeanStdDev(xs, nil)
	return st
}

// LabelStats are the statistics of all days sharing one pillar.
type LabelStats struct {
	Pillar ganzhi.Pillar `json:"pillar"`
	Stats
}

// Distribution groups days by one layer's pillar. Groups holds the groups with
// at least the minimum sample count, best mean first; smaller groups are
// listed in Excluded in cycle order and never ranked.
type Distribution struct {
	Layer      scoring.Layer `json:"layer"`
	MinSamples int           `json:"min_samples"`
	Groups     []LabelStats  `json:"groups"`
	Excluded   []LabelStats  `json:"excluded"`
}

// DistributionBy groups days by the pillar of the given layer.
func (s *Series) DistributionBy(layer scoring.Layer, minSamples int) Distribution {
	byLabel := make(map[ganzhi.Pillar][]int)
	for _, r := range s.records {
		p := r.Pillar(layer)
		byLabel[p] = append(byLabel[p], r.FinalScore)
	}

	d := Distribution{Layer: layer, MinSamples: minSamples, Groups: []LabelStats{}, Excluded: []LabelStats{}}
	for i := 0; i < 60; i++ {
		p := ganzhi.PillarAt(i)
		scores, ok := byLabel[p]
		if !ok {
			continue
		}
		ls := LabelStats{Pillar: p, Stats: describe(scores)}
		if ls.Count < minSamples {
			d.Excluded = append(d.Excluded, ls)
			continue
		}
		d.Groups = append(d.Groups, ls)
	}
	sort.SliceStable(d.Groups, func(i, j int) bool { return d.Groups[i].Mean > d.Groups[j].Mean })
	return d
}

// PeriodStats are the statistics of the days inside one major period.
type PeriodStats struct {
	Period period.Entry `json:"period"`
	Stats
}

// PeriodBreakdown is the per-period summary of a series. Periods lists every
// period with enough days in chronological order; Ranked orders the same
// periods by mean, best first. Periods with fewer than MinSamples days are
// only listed in Excluded.
type PeriodBreakdown struct {
	MinSamples int           `json:"min_samples"`
	Periods    []PeriodStats `json:"periods"`
	Ranked     []PeriodStats `json:"ranked"`
	Excluded   []PeriodStats `json:"excluded"`
}

// PeriodBreakdown aggregates the series by major period. Days are assigned
// with the same clamped resolution the scorer uses.
func (s *Series) PeriodBreakdown(seq *period.Sequence, minSamples int) PeriodBreakdown {
	entries := seq.Entries()
	scores := make([][]int, len(entries))
	for _, r := range s.records {
		e := seq.Resolve(r.Date.Year())
		for i := range entries {
			if entries[i] == e {
				scores[i] = append(scores[i], r.FinalScore)
				break
			}
		}
	}

	b := PeriodBreakdown{MinSamples: minSamples, Periods: []PeriodStats{}, Ranked: []PeriodStats{}, Excluded: []PeriodStats{}}
	for i, e := range entries {
		ps := PeriodStats{Period: e, Stats: describe(scores[i])}
		if ps.Count < minSamples {
			b.Excluded = append(b.Excluded, ps)
			continue
		}
		b.Periods = append(b.Periods, ps)
	}
	b.Ranked = append(b.Ranked, b.Periods...)
	sort.SliceStable(b.Ranked, func(i, j int) bool { return b.Ranked[i].Mean > b.Ranked[j].Mean })
	return b
}

// Summary describes the whole series, with the 10th, 50th and 90th
// percentiles of the final score.
type Summary struct {
	Stats
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	P10   float64   `json:"p10"`
	P50   float64   `json:"p50"`
	P90   float64   `json:"p90"`
}

// Summary returns the overall statistics; zero for an empty series.
func (s *Series) Summary() Summary {
	if len(s.records) == 0 {
		return Summary{}
	}
	scores := make([]int, len(s.records))
	for i, r := range s.records {
		scores[i] = r.FinalScore
	}
	sorted := s.Values()
	sort.Float64s(sorted)
	return Summary{
		Stats: describe(scores),
		Start: s.Start(),
		End:   s.End(),
		P10:   stat.Quantile(0.1, stat.Empirical, sorted, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
}

// Anomaly is a day whose score lies more than k standard deviations from the
// series mean.
type Anomaly struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
	Z     float64   `json:"z"`
}

// Anomalies returns the days with |z| > k, chronologically.
func (s *Series) Anomalies(k float64) []Anomaly {
	sum := s.Summary()
	if sum.Count < 2 || sum.StdDev == 0 {
		return nil
	}
	var out []Anomaly
	for _, r := range s.records {
		z := (float64(r.FinalScore) - sum.Mean) / sum.StdDev
		if math.Abs(z) > k {
			out = append(out, Anomaly{Date: r.Date, Score: r.FinalScore, Z: z})
		}
	}
	return out
}

// Bucket is the mean score over a calendar span keyed by its first year.
type Bucket struct {
	Year int `json:"year"`
	Stats
}

// YearlyMeans groups by calendar year.
func (s *Series) YearlyMeans() []Bucket { return s.buckets(1) }

// DecadeMeans groups by calendar decade (1990, 2000, ...).
func (s *Series) DecadeMeans() []Bucket { return s.buckets(10) }

func (s *Series) buckets(span int) []Bucket {
	var out []Bucket
	var scores []int
	key := 0
	flush := func() {
		if len(scores) > 0 {
			out = append(out, Bucket{Year: key, Stats: describe(scores)})
		}
		scores = nil
	}
	for _, r := range s.records {
		y := r.Date.Year()
		k := y - ((y%span)+span)%span
		if len(scores) > 0 && k != key {
			flush()
		}
		key = k
		scores = append(scores, r.FinalScore)
	}
	flush()
	return out
}
