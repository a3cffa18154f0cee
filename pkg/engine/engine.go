// Package engine assembles a subject from its profile and answers the query
// surface: single-day records, series, period breakdowns, readings and
// cross-subject comparison.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/destinyclock/destinyclock/pkg/chart"
	"github.com/destinyclock/destinyclock/pkg/config"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/oracle"
	"github.com/destinyclock/destinyclock/pkg/period"
	"github.com/destinyclock/destinyclock/pkg/scoring"
	"github.com/destinyclock/destinyclock/pkg/series"
)

// ErrUnknownSubject is returned for a subject id no profile defines.
var ErrUnknownSubject = errors.New("unknown subject")

// Subject is one configured person: natal chart, period sequence and scorer.
// All of it is built once and read-only afterwards, so a Subject is safe for
// concurrent use.
type Subject struct {
	ID      string
	Name    string
	Mode    string
	Chart   chart.NatalChart
	Periods *period.Sequence

	scorer     scoring.Scorer
	relational *scoring.RelationalScorer
	logger     *slog.Logger
}

// NewSubject builds a subject. Any missing or invalid piece of the profile
// fails here, never at query time.
func NewSubject(p *config.Profile, o oracle.Oracle) (*Subject, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: oracle is required", ganzhi.ErrConfiguration)
	}

	c, err := chart.New(o, p.Birth)
	if err != nil {
		return nil, fmt.Errorf("subject %s: natal chart: %w", p.ID, err)
	}
	seq, err := periods(p, o, c)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", p.ID, err)
	}

	s := &Subject{
		ID:      p.ID,
		Name:    p.Name,
		Mode:    p.Mode,
		Chart:   c,
		Periods: seq,
		logger:  slog.Default().With(slog.String("subject", p.ID)),
	}

	s.relational, err = scoring.NewRelationalScorer(o, seq, c, p.Strength, p.Weights)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", p.ID, err)
	}

	switch p.Mode {
	case config.ModeRelational:
		s.scorer = s.relational
	default:
		points, err := p.PointTable()
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", p.ID, err)
		}
		adjusters, err := scoring.Adjusters(p.Bonuses(), p.Rules)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", p.ID, err)
		}
		s.scorer, err = scoring.NewAdditiveScorer(o, points, seq, adjusters...)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", p.ID, err)
		}
	}
	return s, nil
}

func periods(p *config.Profile, o oracle.Oracle, c chart.NatalChart) (*period.Sequence, error) {
	switch p.Periods.Source {
	case config.PeriodsAges:
		return period.FromAges(p.Birth.Year, p.Periods.Ages)
	case config.PeriodsDerive:
		src, ok := o.(oracle.PeriodSource)
		if !ok {
			return nil, fmt.Errorf("%w: oracle cannot derive major periods", ganzhi.ErrConfiguration)
		}
		return period.Derive(src, c)
	default:
		return period.NewSequence(p.Periods.Entries)
	}
}

// SetLogger replaces the subject's logger.
func (s *Subject) SetLogger(l *slog.Logger) { s.logger = l.With(slog.String("subject", s.ID)) }

// Scorer returns the subject's configured scorer.
func (s *Subject) Scorer() scoring.Scorer { return s.scorer }

// Analysis returns the natal balance used by readings.
func (s *Subject) Analysis() chart.Analysis { return s.relational.Analysis() }

// DailyRecord scores a single date.
func (s *Subject) DailyRecord(date time.Time) (scoring.DailyRecord, error) {
	return s.scorer.Score(date)
}

// Reading returns the relational layer-by-layer reading of a date,
// independent of the subject's scoring mode.
func (s *Subject) Reading(date time.Time) (scoring.Reading, error) {
	return s.relational.Reading(date)
}

// Series scores every day between start and end inclusive.
func (s *Subject) Series(ctx context.Context, start, end time.Time) (*series.Result, error) {
	return s.Generate(ctx, series.Options{Start: start, End: end})
}

// Generate runs a batch with full control over workers and sinks.
func (s *Subject) Generate(ctx context.Context, opts series.Options) (*series.Result, error) {
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	return series.Generate(ctx, s.scorer, opts)
}

// PeriodBreakdown aggregates a series of this subject by major period.
func (s *Subject) PeriodBreakdown(ser *series.Series, minSamples int) series.PeriodBreakdown {
	return ser.PeriodBreakdown(s.Periods, minSamples)
}

// Compare aligns two subjects' series by date.
func Compare(a, b *series.Series) series.Comparison {
	return series.Compare(a, b)
}

// Registry holds the configured subjects by id.
type Registry struct {
	subjects map[string]*Subject
}

// NewRegistry builds every profile. One bad profile fails the whole set.
func NewRegistry(profiles []*config.Profile, o oracle.Oracle) (*Registry, error) {
	r := &Registry{subjects: make(map[string]*Subject, len(profiles))}
	for _, p := range profiles {
		if _, dup := r.subjects[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate subject %q", ganzhi.ErrConfiguration, p.ID)
		}
		s, err := NewSubject(p, o)
		if err != nil {
			return nil, err
		}
		r.subjects[p.ID] = s
	}
	return r, nil
}

// Get returns a subject by id.
func (r *Registry) Get(id string) (*Subject, error) {
	s, ok := r.subjects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, id)
	}
	return s, nil
}

// List returns all subjects sorted by id.
func (r *Registry) List() []*Subject {
	out := make([]*Subject, 0, len(r.subjects))
	for _, s := range r.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
