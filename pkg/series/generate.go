package series

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/destinyclock/destinyclock/pkg/scoring"
)

const defaultChunkSize = 366

// Sink receives records in ascending date order as they are produced.
type Sink interface {
	WriteRecord(rec scoring.DailyRecord) error
}

// Options control a batch run.
type Options struct {
	Start, End time.Time // inclusive
	Workers    int       // concurrent chunks; zero means GOMAXPROCS
	ChunkSize  int       // days per chunk; zero means one year
	Sink       Sink
	Progress   func(done, total int)
	Logger     *slog.Logger
}

// Failure is a date the scorer could not resolve.
type Failure struct {
	Date time.Time `json:"date"`
	Err  string    `json:"error"`
}

// Result is the outcome of a batch run. On cancellation it holds the
// contiguous prefix that was completed and emitted.
type Result struct {
	Series    *Series
	Failures  []Failure
	Total     int
	Cancelled bool
}

type chunk struct {
	dates    []time.Time
	records  []scoring.DailyRecord
	failures []Failure
	done     int // dates processed, in order
}

// Generate scores every day in the range. Chunks of days are scored
// concurrently, one wave of Workers chunks at a time, and emitted to the sink
// in date order after each wave. A date that fails is recorded and skipped;
// only a sink error or cancellation stops the run.
func Generate(ctx context.Context, scorer scoring.Scorer, opts Options) (*Result, error) {
	start, end := day(opts.Start), day(opts.End)
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	size := opts.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var chunks []*chunk
	total := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if total%size == 0 {
			chunks = append(chunks, &chunk{})
		}
		c := chunks[len(chunks)-1]
		c.dates = append(c.dates, d)
		total++
	}

	res := &Result{Total: total}
	var records []scoring.DailyRecord
	processed := 0

	logger.Info("generating series",
		slog.String("start", start.Format(time.DateOnly)),
		slog.String("end", end.Format(time.DateOnly)),
		slog.Int("days", total),
		slog.Int("workers", workers))

	for lo := 0; lo < len(chunks); lo += workers {
		hi := min(lo+workers, len(chunks))
		wave := chunks[lo:hi]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, c := range wave {
			g.Go(func() error { return scoreChunk(gctx, scorer, c) })
		}
		waitErr := g.Wait()

		// Emit the completed prefix of the wave in order.
		for _, c := range wave {
			for _, rec := range c.records {
				if opts.Sink != nil {
					if err := opts.Sink.WriteRecord(rec); err != nil {
						return nil, fmt.Errorf("writing %s: %w", rec.Date.Format(time.DateOnly), err)
					}
				}
				records = append(records, rec)
			}
			for _, f := range c.failures {
				logger.Warn("date failed", slog.String("date", f.Date.Format(time.DateOnly)), slog.String("error", f.Err))
			}
			res.Failures = append(res.Failures, c.failures...)
			processed += c.done
			if c.done < len(c.dates) {
				break
			}
		}
		if opts.Progress != nil {
			opts.Progress(processed, total)
		}

		if waitErr != nil || (ctx.Err() != nil && hi < len(chunks)) {
			res.Cancelled = true
			s, _ := New(records)
			res.Series = s
			logger.Warn("generation cancelled", slog.Int("completed", processed), slog.Int("days", total))
			if waitErr == nil {
				waitErr = ctx.Err()
			}
			return res, fmt.Errorf("generation cancelled after %d of %d days: %w", processed, total, waitErr)
		}
	}

	s, err := New(records)
	if err != nil {
		return nil, err
	}
	res.Series = s
	logger.Info("series generated", slog.Int("records", s.Len()), slog.Int("failures", len(res.Failures)))
	return res, nil
}

// scoreChunk scores a chunk's dates in order, stopping at the first date
// after cancellation.
func scoreChunk(ctx context.Context, scorer scoring.Scorer, c *chunk) error {
	for _, d := range c.dates {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := scorer.Score(d)
		if err != nil {
			c.failures = append(c.failures, Failure{Date: d, Err: err.Error()})
		} else {
			c.records = append(c.records, rec)
		}
		c.done++
	}
	return nil
}
