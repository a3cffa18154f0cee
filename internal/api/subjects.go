package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/destinyclock/destinyclock/pkg/chart"
	"github.com/destinyclock/destinyclock/pkg/engine"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/period"
	"github.com/destinyclock/destinyclock/pkg/scoring"
	"github.com/destinyclock/destinyclock/pkg/series"
	"github.com/destinyclock/destinyclock/pkg/surface"
)

type subjectResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Mode       string         `json:"mode"`
	NatalChart string         `json:"natal_chart"`
	Analysis   chart.Analysis `json:"analysis"`
	Periods    []period.Entry `json:"periods"`

	// StoredAt is when the subject was last written to the database.
	StoredAt *time.Time `json:"stored_at,omitempty"`
}

type seriesResponse struct {
	Subject string                `json:"subject"`
	Start   string                `json:"start"`
	End     string                `json:"end"`
	Records []scoring.DailyRecord `json:"records"`
	Report  *series.Report        `json:"report,omitempty"`

	// Failures lists the days in range that could not be scored.
	Failures []series.Failure `json:"failures"`
}

type periodsResponse struct {
	series.PeriodBreakdown
	Failures []series.Failure `json:"failures"`
}

type compareResponse struct {
	series.Comparison
	FailuresA []series.Failure `json:"failures_a"`
	FailuresB []series.Failure `json:"failures_b"`
}

// failedDaysHeader carries the failure count on CSV responses.
const failedDaysHeader = "X-Failed-Days"

func failuresOf(res *series.Result) []series.Failure {
	if res.Failures == nil {
		return []series.Failure{}
	}
	return res.Failures
}

func parseDate(name, value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", ganzhi.ErrInvalidInput, name, value)
	}
	return d, nil
}

// parseRange reads start and end, falling back to the configured generation
// range for whichever is missing.
func (h *Handler) parseRange(r *http.Request) (start, end time.Time, err error) {
	start, end, err = h.defaults.Generation.Range()
	if err != nil {
		return start, end, err
	}
	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		if start, err = parseDate("start", v); err != nil {
			return start, end, err
		}
	}
	if v := q.Get("end"); v != "" {
		if end, err = parseDate("end", v); err != nil {
			return start, end, err
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: end before start", ganzhi.ErrInvalidInput)
	}
	return start, end, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ganzhi.ErrInvalidInput, name)
	}
	return n, nil
}

// loadSeries returns a subject's generation result for the range, checking
// the cache first.
func (h *Handler) loadSeries(ctx context.Context, sub *engine.Subject, start, end time.Time) (*series.Result, error) {
	key := sub.ID + "|" + start.Format(time.DateOnly) + "|" + end.Format(time.DateOnly)
	if res := h.cache.Get(key); res != nil {
		return res, nil
	}
	res, err := sub.Series(ctx, start, end)
	if err != nil {
		return nil, err
	}
	h.cache.Put(key, res)
	return res, nil
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	stored := map[string]time.Time{}
	if h.runs != nil {
		subs, err := h.runs.ListSubjects(r.Context())
		if err != nil {
			h.writeFailure(w, r, err)
			return
		}
		for _, s := range subs {
			stored[s.ID] = s.UpdatedAt
		}
	}

	result := []subjectResponse{}
	for _, s := range h.subjects.List() {
		resp := subjectResponse{
			ID:         s.ID,
			Name:       s.Name,
			Mode:       s.Mode,
			NatalChart: s.Chart.String(),
			Analysis:   s.Analysis(),
			Periods:    s.Periods.Entries(),
		}
		if at, ok := stored[s.ID]; ok {
			resp.StoredAt = &at
		}
		result = append(result, resp)
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDay(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subjects.Get(r.PathValue("subjectID"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	date, err := parseDate("date", r.PathValue("date"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	rec, err := sub.DailyRecord(date)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleReading(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subjects.Get(r.PathValue("subjectID"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if v := r.URL.Query().Get("date"); v != "" {
		if date, err = parseDate("date", v); err != nil {
			h.writeFailure(w, r, err)
			return
		}
	}
	rd, err := sub.Reading(date)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rd)
}

// handleSeries serves records as JSON (optionally with an analysis report)
// or as the CSV series file when format=csv.
func (h *Handler) handleSeries(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subjects.Get(r.PathValue("subjectID"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	start, end, err := h.parseRange(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	res, err := h.loadSeries(r.Context(), sub, start, end)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	s := res.Series

	q := r.URL.Query()
	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set(failedDaysHeader, strconv.Itoa(len(res.Failures)))
		w.WriteHeader(http.StatusOK)
		if err := surface.WriteCSV(w, s); err != nil {
			h.log.Error("writing csv", "error", err)
		}
		return
	}

	resp := seriesResponse{
		Subject:  sub.ID,
		Start:    start.Format(time.DateOnly),
		End:      end.Format(time.DateOnly),
		Records:  s.Records(),
		Failures: failuresOf(res),
	}
	if q.Get("report") == "true" {
		layer := scoring.DayLayer
		if v := q.Get("layer"); v != "" {
			if layer, err = scoring.ParseLayer(v); err != nil {
				h.writeFailure(w, r, fmt.Errorf("%w: %v", ganzhi.ErrInvalidInput, err))
				return
			}
		}
		rep := s.Report(h.defaults.Analysis.ReportOptions(layer), sub.Periods)
		resp.Report = &rep
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePeriods(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subjects.Get(r.PathValue("subjectID"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	minSamples, err := intParam(r, "min_samples", h.defaults.Analysis.MinSamples)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	start, end, err := h.parseRange(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	res, err := h.loadSeries(r.Context(), sub, start, end)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, periodsResponse{
		PeriodBreakdown: sub.PeriodBreakdown(res.Series, minSamples),
		Failures:        failuresOf(res),
	})
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("a") == "" || q.Get("b") == "" {
		writeError(w, http.StatusBadRequest, "a and b are required")
		return
	}
	a, err := h.subjects.Get(q.Get("a"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	b, err := h.subjects.Get(q.Get("b"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	start, end, err := h.parseRange(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	sa, err := h.loadSeries(r.Context(), a, start, end)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	sb, err := h.loadSeries(r.Context(), b, start, end)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{
		Comparison: engine.Compare(sa.Series, sb.Series),
		FailuresA:  failuresOf(sa),
		FailuresB:  failuresOf(sb),
	})
}
