// Package subject persists subjects, generation runs and their daily records
// in Postgres.
package subject

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/scoring"
)

// Run statuses.
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// ErrNotFound is returned when a subject or run does not exist.
var ErrNotFound = errors.New("not found")

// Service provides subject and run storage backed by Postgres.
type Service struct {
	db *sql.DB
}

// Subject is the stored form of a configured subject.
type Subject struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Mode       string    `json:"mode"`
	NatalChart string    `json:"natal_chart"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Run is one generation of a subject's series over a date range.
type Run struct {
	ID          string     `json:"id"`
	SubjectID   string     `json:"subject_id"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Status      string     `json:"status"`
	Records     int        `json:"records"`
	Failures    int        `json:"failures"`
	StorageRef  *string    `json:"storage_ref,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewService creates a new subject Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// UpsertSubject creates or refreshes a subject record.
func (s *Service) UpsertSubject(ctx context.Context, id, name, mode, natalChart string) (*Subject, error) {
	sub := &Subject{}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO subjects (id, name, mode, natal_chart)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		   SET name = EXCLUDED.name,
		       mode = EXCLUDED.mode,
		       natal_chart = EXCLUDED.natal_chart,
		       updated_at = now()
		 RETURNING id, name, mode, natal_chart, created_at, updated_at`,
		id, name, mode, natalChart,
	).Scan(&sub.ID, &sub.Name, &sub.Mode, &sub.NatalChart, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert subject %s: %w", id, err)
	}
	return sub, nil
}

// ListSubjects returns all stored subjects ordered by id.
func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, mode, natal_chart, created_at, updated_at
		 FROM subjects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subs []Subject
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Mode, &sub.NatalChart, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

const runColumns = `id, subject_id, start_date, end_date, status, records, failures,
	storage_ref, error, created_at, completed_at`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	err := row.Scan(&r.ID, &r.SubjectID, &r.Start, &r.End, &r.Status, &r.Records, &r.Failures,
		&r.StorageRef, &r.Error, &r.CreatedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRun records a queued run for a subject.
func (s *Service) CreateRun(ctx context.Context, subjectID string, start, end time.Time) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`INSERT INTO runs (id, subject_id, start_date, end_date, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+runColumns,
		uuid.NewString(), subjectID, start, end, StatusQueued,
	))
	if err != nil {
		return nil, fmt.Errorf("create run for %s: %w", subjectID, err)
	}
	return r, nil
}

// UpdateRunStatus moves a run to status. A non-empty errMsg is stored with it.
func (s *Service) UpdateRunStatus(ctx context.Context, runID, status, errMsg string) error {
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = $2, error = $3,
		   completed_at = CASE WHEN $2 IN ('COMPLETED', 'FAILED') THEN now() ELSE completed_at END
		 WHERE id = $1`,
		runID, status, msg,
	)
	if err != nil {
		return fmt.Errorf("update run %s status: %w", runID, err)
	}
	return expectOne(res, "run "+runID)
}

// CompleteRun stores the outcome of a finished run.
func (s *Service) CompleteRun(ctx context.Context, runID string, records, failures int, storageRef string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = $2, records = $3, failures = $4, storage_ref = $5, completed_at = now()
		 WHERE id = $1`,
		runID, StatusCompleted, records, failures, storageRef,
	)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	return expectOne(res, "run "+runID)
}

// GetRun retrieves a run by id.
func (s *Service) GetRun(ctx context.Context, runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// LatestRun returns the subject's most recent completed run.
func (s *Service) LatestRun(ctx context.Context, subjectID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE subject_id = $1 AND status = $2
		 ORDER BY created_at DESC LIMIT 1`,
		subjectID, StatusCompleted))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest run for %s: %w", subjectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest run for %s: %w", subjectID, err)
	}
	return r, nil
}

// ListRuns returns a subject's runs, newest first.
func (s *Service) ListRuns(ctx context.Context, subjectID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE subject_id = $1 ORDER BY created_at DESC LIMIT $2`,
		subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

var recordColumns = []string{
	"run_id", "date", "period", "year", "month", "day",
	"period_score", "year_score", "month_score", "day_score", "final_score",
}

func copyRow(runID string, rec scoring.DailyRecord) []any {
	return []any{
		runID, rec.Date.Format(time.DateOnly),
		rec.Period.String(), rec.Year.String(), rec.Month.String(), rec.Day.String(),
		rec.PeriodScore, rec.YearScore, rec.MonthScore, rec.DayScore, rec.FinalScore,
	}
}

// InsertRecords bulk loads a run's records with COPY in one transaction.
func (s *Service) InsertRecords(ctx context.Context, runID string, recs []scoring.DailyRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin copy: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("daily_records", recordColumns...))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}
	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, copyRow(runID, rec)...); err != nil {
			stmt.Close()
			return fmt.Errorf("copy record %s: %w", rec.Date.Format(time.DateOnly), err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

// Records returns a run's stored records in [start, end], ascending. Zero
// bounds are open.
func (s *Service) Records(ctx context.Context, runID string, start, end time.Time) ([]scoring.DailyRecord, error) {
	var lo, hi *string
	if !start.IsZero() {
		v := start.Format(time.DateOnly)
		lo = &v
	}
	if !end.IsZero() {
		v := end.Format(time.DateOnly)
		hi = &v
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, period, year, month, day,
		        period_score, year_score, month_score, day_score, final_score
		 FROM daily_records
		 WHERE run_id = $1
		   AND ($2::date IS NULL OR date >= $2::date)
		   AND ($3::date IS NULL OR date <= $3::date)
		 ORDER BY date`,
		runID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var recs []scoring.DailyRecord
	for rows.Next() {
		var (
			rec    scoring.DailyRecord
			labels [4]string
		)
		if err := rows.Scan(&rec.Date, &labels[0], &labels[1], &labels[2], &labels[3],
			&rec.PeriodScore, &rec.YearScore, &rec.MonthScore, &rec.DayScore, &rec.FinalScore); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := parseLabels(&rec, labels); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.Date.Format(time.DateOnly), err)
		}
		rec.Date = rec.Date.UTC()
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func parseLabels(rec *scoring.DailyRecord, labels [4]string) error {
	targets := []*ganzhi.Pillar{&rec.Period, &rec.Year, &rec.Month, &rec.Day}
	for i, label := range labels {
		p, err := ganzhi.ParsePillar(label)
		if err != nil {
			return err
		}
		*targets[i] = p
	}
	return nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
