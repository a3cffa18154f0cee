package series

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ComparePoint pairs two subjects' scores on one date.
type ComparePoint struct {
	Date       time.Time `json:"date"`
	A          int       `json:"a"`
	B          int       `json:"b"`
	Average    float64   `json:"average"`
	Difference int       `json:"difference"` // A - B
}

// Crossover is a date on which the leading subject changes.
type Crossover struct {
	Date   time.Time `json:"date"`
	Leader string    `json:"leader"` // "a" or "b", from this date on
	Before int       `json:"before"` // last nonzero difference before the crossing
	After  int       `json:"after"`
}

// Comparison is the date-aligned comparison of two series.
type Comparison struct {
	Points         []ComparePoint `json:"points"`
	Crossovers     []Crossover    `json:"crossovers"`
	MeanA          float64        `json:"mean_a"`
	MeanB          float64        `json:"mean_b"`
	MeanDifference float64        `json:"mean_difference"`
	Correlation    float64        `json:"correlation"`
	DaysALeads     int            `json:"days_a_leads"`
	DaysBLeads     int            `json:"days_b_leads"`
	DaysTied       int            `json:"days_tied"`
}

// Compare aligns two series on the dates both contain. A crossover is
// reported where the sign of A - B flips relative to the last nonzero
// difference, so ties do not count as crossings.
func Compare(a, b *Series) Comparison {
	c := Comparison{Points: []ComparePoint{}, Crossovers: []Crossover{}}
	var xs, ys []float64
	lastDiff := 0

	i, j := 0, 0
	for i < len(a.records) && j < len(b.records) {
		ra, rb := a.records[i], b.records[j]
		switch {
		case ra.Date.Before(rb.Date):
			i++
			continue
		case rb.Date.Before(ra.Date):
			j++
			continue
		}
		i++
		j++

		diff := ra.FinalScore - rb.FinalScore
		c.Points = append(c.Points, ComparePoint{
			Date:       ra.Date,
			A:          ra.FinalScore,
			B:          rb.FinalScore,
			Average:    float64(ra.FinalScore+rb.FinalScore) / 2,
			Difference: diff,
		})
		xs = append(xs, float64(ra.FinalScore))
		ys = append(ys, float64(rb.FinalScore))

		switch {
		case diff > 0:
			c.DaysALeads++
		case diff < 0:
			c.DaysBLeads++
		default:
			c.DaysTied++
			continue
		}
		if lastDiff != 0 && (lastDiff > 0) != (diff > 0) {
			leader := "a"
			if diff < 0 {
				leader = "b"
			}
			c.Crossovers = append(c.Crossovers, Crossover{Date: ra.Date, Leader: leader, Before: lastDiff, After: diff})
		}
		lastDiff = diff
	}

	if n := len(xs); n > 0 {
		c.MeanA = stat.Mean(xs, nil)
		c.MeanB = stat.Mean(ys, nil)
		c.MeanDifference = c.MeanA - c.MeanB
	}
	if len(xs) >= 2 {
		if r := stat.Correlation(xs, ys, nil); !math.IsNaN(r) {
			c.Correlation = r
		}
	}
	return c
}

// AverageSeries returns the pairwise average score per aligned date.
func (c Comparison) AverageSeries() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Average
	}
	return out
}

// DifferenceSeries returns A - B per aligned date.
func (c Comparison) DifferenceSeries() []int {
	out := make([]int, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Difference
	}
	return out
}
