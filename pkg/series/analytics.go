package series

import (
	"fmt"
	"time"
)

// StreakKind selects the condition a streak maintains.
type StreakKind int

const (
	Above   StreakKind = iota // final score >= threshold
	Below                     // final score <= threshold
	Rising                    // strictly higher than the previous day
	Falling                   // strictly lower than the previous day
)

func (k StreakKind) String() string {
	switch k {
	case Above:
		return "above"
	case Below:
		return "below"
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	}
	return fmt.Sprintf("StreakKind(%d)", int(k))
}

// ParseStreakKind parses "above", "below", "rising" or "falling".
func ParseStreakKind(s string) (StreakKind, error) {
	for _, k := range []StreakKind{Above, Below, Rising, Falling} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown streak kind %q", s)
}

// Streak is a run of consecutive calendar days.
type Streak struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Length int       `json:"length"`
	Mean   float64   `json:"mean"`
}

// Streaks returns every maximal run of at least minLength days satisfying the
// condition, in chronological order. A missing day breaks a run. For Rising
// and Falling the first day of a run is the day the movement starts from.
func (s *Series) Streaks(kind StreakKind, threshold int, minLength int) []Streak {
	if minLength < 1 {
		minLength = 1
	}
	var out []Streak
	runStart, sum := -1, 0

	closeRun := func(end int) {
		if runStart < 0 {
			return
		}
		n := end - runStart + 1
		if n >= minLength {
			out = append(out, Streak{
				Start:  s.records[runStart].Date,
				End:    s.records[end].Date,
				Length: n,
				Mean:   float64(sum) / float64(n),
			})
		}
		runStart, sum = -1, 0
	}

	for i, r := range s.records {
		contiguous := i > 0 && consecutive(s.records[i-1].Date, r.Date)
		if runStart >= 0 && !contiguous {
			closeRun(i - 1)
		}

		switch kind {
		case Above, Below:
			ok := r.FinalScore >= threshold
			if kind == Below {
				ok = r.FinalScore <= threshold
			}
			if !ok {
				closeRun(i - 1)
				continue
			}
			if runStart < 0 {
				runStart = i
			}
			sum += r.FinalScore

		case Rising, Falling:
			moved := false
			if contiguous {
				prev := s.records[i-1].FinalScore
				moved = r.FinalScore > prev
				if kind == Falling {
					moved = r.FinalScore < prev
				}
			}
			if !moved {
				closeRun(i - 1)
				continue
			}
			if runStart < 0 {
				runStart = i - 1
				sum = s.records[i-1].FinalScore
			}
			sum += r.FinalScore
		}
	}
	closeRun(len(s.records) - 1)
	return out
}

// LongestStreak returns the longest run. Among runs of equal length the
// earliest wins.
func (s *Series) LongestStreak(kind StreakKind, threshold int) (Streak, bool) {
	var best Streak
	found := false
	for _, st := range s.Streaks(kind, threshold, 1) {
		if !found || st.Length > best.Length {
			best, found = st, true
		}
	}
	return best, found
}

// Extremum is an extreme score and every date attaining it.
type Extremum struct {
	Value int         `json:"value"`
	Dates []time.Time `json:"dates"`
}

// Maxima returns the maximum final score and all dates it occurs on.
func (s *Series) Maxima() (Extremum, bool) {
	return s.extremum(func(a, b int) bool { return a > b })
}

// Minima returns the minimum final score and all dates it occurs on.
func (s *Series) Minima() (Extremum, bool) {
	return s.extremum(func(a, b int) bool { return a < b })
}

func (s *Series) extremum(better func(a, b int) bool) (Extremum, bool) {
	if len(s.records) == 0 {
		return Extremum{}, false
	}
	ex := Extremum{Value: s.records[0].FinalScore}
	for _, r := range s.records {
		switch {
		case better(r.FinalScore, ex.Value):
			ex.Value = r.FinalScore
			ex.Dates = []time.Time{r.Date}
		case r.FinalScore == ex.Value:
			ex.Dates = append(ex.Dates, r.Date)
		}
	}
	return ex, true
}

// WindowMean is the trailing mean of the window ending on Date.
type WindowMean struct {
	Date time.Time `json:"date"`
	Mean float64   `json:"mean"`
}

// RollingMean returns the trailing mean over every full window of size
// consecutive days, oldest first. A window never spans a missing day.
func (s *Series) RollingMean(size int) []WindowMean {
	pos := s.rolling(size)
	if len(pos) == 0 {
		return nil
	}
	out := make([]WindowMean, len(pos))
	for i, p := range pos {
		out[i] = p.WindowMean
	}
	return out
}

// windowPos is a rolling mean together with the index of its first record.
type windowPos struct {
	WindowMean
	first int
}

func (s *Series) rolling(size int) []windowPos {
	if size < 1 || len(s.records) < size {
		return nil
	}
	var out []windowPos
	sum := 0
	for i, r := range s.records {
		sum += r.FinalScore
		if i >= size {
			sum -= s.records[i-size].FinalScore
		}
		if i >= size-1 && s.contiguous(i-size+1, i) {
			out = append(out, windowPos{
				WindowMean: WindowMean{Date: r.Date, Mean: float64(sum) / float64(size)},
				first:      i - size + 1,
			})
		}
	}
	return out
}

// contiguous reports whether records first..last cover consecutive days.
// Dates are unique and ascending, so it is enough to compare the span.
func (s *Series) contiguous(first, last int) bool {
	want := s.records[first].Date.AddDate(0, 0, last-first)
	return s.records[last].Date.Equal(want)
}

// Window is a span during which the rolling mean stayed on one side of a
// threshold.
type Window struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Days    int       `json:"days"`
	Mean    float64   `json:"mean"`    // mean score over Start..End
	Windows int       `json:"windows"` // qualifying window positions
}

// GoldenWindows returns spans where the trailing mean of size days is at
// least threshold for at least minWindows consecutive positions. A window
// whose mean equals the threshold qualifies.
func (s *Series) GoldenWindows(size int, threshold float64, minWindows int) []Window {
	return s.windows(size, minWindows, func(m float64) bool { return m >= threshold })
}

// BadWindows is GoldenWindows with the mean at most threshold.
func (s *Series) BadWindows(size int, threshold float64, minWindows int) []Window {
	return s.windows(size, minWindows, func(m float64) bool { return m <= threshold })
}

func (s *Series) windows(size, minWindows int, ok func(float64) bool) []Window {
	if minWindows < 1 {
		minWindows = 1
	}
	pos := s.rolling(size)
	var out []Window
	runStart := -1

	closeRun := func(end int) {
		if runStart < 0 {
			return
		}
		if n := end - runStart + 1; n >= minWindows {
			first, last := pos[runStart].first, pos[end].first+size-1
			sum := 0
			for _, r := range s.records[first : last+1] {
				sum += r.FinalScore
			}
			days := last - first + 1
			out = append(out, Window{
				Start:   s.records[first].Date,
				End:     s.records[last].Date,
				Days:    days,
				Mean:    float64(sum) / float64(days),
				Windows: n,
			})
		}
		runStart = -1
	}

	for j, p := range pos {
		if runStart >= 0 && !consecutive(s.records[pos[j-1].first].Date, s.records[p.first].Date) {
			closeRun(j - 1)
		}
		if ok(p.Mean) {
			if runStart < 0 {
				runStart = j
			}
			continue
		}
		closeRun(j - 1)
	}
	closeRun(len(pos) - 1)
	return out
}

// ShiftKind is the direction of a sudden change.
type ShiftKind string

const (
	ShiftRise ShiftKind = "RISE"
	ShiftDrop ShiftKind = "DROP"
)

// Shift is a sudden change between the window before a date and the window
// starting on it.
type Shift struct {
	Date   time.Time `json:"date"`
	Kind   ShiftKind `json:"kind"`
	Before float64   `json:"before"`
	After  float64   `json:"after"`
	Delta  float64   `json:"delta"`
}

// Shifts compares the mean of the size days before each date with the mean
// of the size days from it, reporting changes of at least threshold. Pairs of
// windows that span a missing day are skipped. After a shift the scan resumes
// past its after-window.
func (s *Series) Shifts(size int, threshold float64) []Shift {
	if size < 1 {
		return nil
	}
	var out []Shift
	for i := size; i+size <= len(s.records); i++ {
		if !s.contiguous(i-size, i+size-1) {
			continue
		}
		before, after := 0, 0
		for _, r := range s.records[i-size : i] {
			before += r.FinalScore
		}
		for _, r := range s.records[i : i+size] {
			after += r.FinalScore
		}
		b, a := float64(before)/float64(size), float64(after)/float64(size)
		delta := a - b
		if delta >= threshold || -delta >= threshold {
			kind := ShiftRise
			if delta < 0 {
				kind = ShiftDrop
			}
			out = append(out, Shift{Date: s.records[i].Date, Kind: kind, Before: b, After: a, Delta: delta})
			i += size - 1
		}
	}
	return out
}
