package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/destinyclock/destinyclock/internal/publish"
	"github.com/destinyclock/destinyclock/internal/subject"
	"github.com/destinyclock/destinyclock/pkg/engine"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/scoring"
	"github.com/destinyclock/destinyclock/pkg/series"
	"github.com/destinyclock/destinyclock/pkg/surface"
)

// RunRequest asks for a subject's series over an inclusive date range.
type RunRequest struct {
	SubjectID string    `json:"subject_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Validate rejects empty and inverted requests.
func (r RunRequest) Validate() error {
	if r.SubjectID == "" {
		return fmt.Errorf("%w: subject_id is required", ganzhi.ErrInvalidInput)
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ganzhi.ErrInvalidInput)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: end before start", ganzhi.ErrInvalidInput)
	}
	return nil
}

// RunStore is the persistence the pipeline needs. *subject.Service
// implements it.
type RunStore interface {
	UpsertSubject(ctx context.Context, id, name, mode, natalChart string) (*subject.Subject, error)
	CreateRun(ctx context.Context, subjectID string, start, end time.Time) (*subject.Run, error)
	UpdateRunStatus(ctx context.Context, runID, status, errMsg string) error
	CompleteRun(ctx context.Context, runID string, records, failures int, storageRef string) error
	InsertRecords(ctx context.Context, runID string, recs []scoring.DailyRecord) error
}

// Subjects resolves configured subjects. *engine.Registry implements it.
type Subjects interface {
	Get(id string) (*engine.Subject, error)
}

// Options size the batch runs.
type Options struct {
	Workers   int
	ChunkSize int
}

// Service orchestrates the generation pipeline.
type Service struct {
	store     RunStore
	subjects  Subjects
	storage   StorageClient
	publisher publish.Publisher
	opts      Options
	log       *slog.Logger
}

// NewService creates a new ingestion Service. A nil publisher disables
// record publication.
func NewService(store RunStore, subjects Subjects, storage StorageClient, publisher publish.Publisher, opts Options, log *slog.Logger) *Service {
	if publisher == nil {
		publisher = publish.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:     store,
		subjects:  subjects,
		storage:   storage,
		publisher: publisher,
		opts:      opts,
		log:       log,
	}
}

// Storage returns the blob storage client.
func (s *Service) Storage() StorageClient { return s.storage }

// Process runs the full pipeline for one request: register the subject,
// create the run, generate the series, store the CSV blob, bulk load the
// records, publish them and mark the run completed. Any failure after the
// run exists marks it FAILED.
func (s *Service) Process(ctx context.Context, req RunRequest) (run *subject.Run, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sub, err := s.subjects.Get(req.SubjectID)
	if err != nil {
		return nil, err
	}

	// 1. Register subject and create the run record
	if _, err := s.store.UpsertSubject(ctx, sub.ID, sub.Name, sub.Mode, sub.Chart.String()); err != nil {
		return nil, err
	}
	run, err = s.store.CreateRun(ctx, sub.ID, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	log := s.log.With(slog.String("subject", sub.ID), slog.String("run", run.ID))

	defer func() {
		if err != nil {
			// The request context may be the reason for failure.
			if updateErr := s.store.UpdateRunStatus(context.WithoutCancel(ctx), run.ID, subject.StatusFailed, err.Error()); updateErr != nil {
				log.Error("failed to update run status", slog.Any("error", updateErr))
			}
			run.Status = subject.StatusFailed
		}
	}()

	if err = s.store.UpdateRunStatus(ctx, run.ID, subject.StatusRunning, ""); err != nil {
		return run, fmt.Errorf("update status to running: %w", err)
	}
	run.Status = subject.StatusRunning

	// 2. Generate, writing CSV as records arrive
	var buf bytes.Buffer
	csvw := surface.NewCSVWriter(&buf)
	if err = csvw.WriteHeader(); err != nil {
		return run, fmt.Errorf("write header: %w", err)
	}
	res, err := sub.Generate(ctx, series.Options{
		Start:     req.Start,
		End:       req.End,
		Workers:   s.opts.Workers,
		ChunkSize: s.opts.ChunkSize,
		Sink:      csvw,
		Logger:    log,
	})
	if err != nil {
		return run, fmt.Errorf("generate: %w", err)
	}
	if err = csvw.Close(); err != nil {
		return run, fmt.Errorf("flush series: %w", err)
	}
	recs := res.Series.Records()
	if len(recs) == 0 {
		err = errors.New("no day in range could be scored")
		return run, err
	}

	// 3. Store the series file
	if err = s.storage.PutSeries(ctx, sub.ID, run.ID, buf.Bytes()); err != nil {
		return run, fmt.Errorf("put series blob: %w", err)
	}
	ref := SeriesKey(sub.ID, run.ID)

	// 4. Bulk load records
	if err = s.store.InsertRecords(ctx, run.ID, recs); err != nil {
		return run, fmt.Errorf("insert records: %w", err)
	}

	// 5. Publish
	if err = s.publisher.Publish(ctx, sub.ID, run.ID, recs); err != nil {
		return run, fmt.Errorf("publish records: %w", err)
	}

	// 6. Finalize
	if err = s.store.CompleteRun(ctx, run.ID, len(recs), len(res.Failures), ref); err != nil {
		return run, fmt.Errorf("finalize run: %w", err)
	}
	run.Status = subject.StatusCompleted
	run.Records = len(recs)
	run.Failures = len(res.Failures)
	run.StorageRef = &ref

	log.Info("run completed", slog.Int("records", len(recs)), slog.Int("failures", len(res.Failures)), slog.String("storage_ref", ref))
	return run, nil
}
