package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/postimport/internal/domain/model"
	"github.com/ericfisherdev/postimport/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HistoryStore = (*HistoryRepo)(nil)

// HistoryRepo is the SQLite implementation of the HistoryStore port interface.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new HistoryRepo backed by the given DB.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// StartRun inserts a new run. StartedAt defaults to now when zero.
func (r *HistoryRepo) StartRun(ctx context.Context, run model.ImportRun) error {
	const query = `INSERT INTO import_runs (id, source_path, status, submitted, error, started_at) VALUES (?, ?, ?, ?, ?, ?)`

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	status := run.Status
	if status == "" {
		status = model.RunStatusRunning
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.ID, run.SourcePath, string(status), run.Submitted, run.Error, formatTime(startedAt))
	if err != nil {
		return fmt.Errorf("start run %s: %w", run.ID, err)
	}

	return nil
}

// RecordSubmission appends a submission to its run. SubmittedAt defaults to now when zero.
func (r *HistoryRepo) RecordSubmission(ctx context.Context, sub model.Submission) error {
	const query = `INSERT INTO submissions (run_id, row_number, content, status_code, outcome, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	submittedAt := sub.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		sub.RunID, sub.Row, sub.Content, sub.StatusCode, string(sub.Outcome), formatTime(submittedAt))
	if err != nil {
		return fmt.Errorf("record submission for run %s row %d: %w", sub.RunID, sub.Row, err)
	}

	return nil
}

// FinishRun sets the terminal status of a run and stamps finished_at.
func (r *HistoryRepo) FinishRun(ctx context.Context, id string, status model.RunStatus, submitted int, errText string) error {
	const query = `UPDATE import_runs SET status = ?, submitted = ?, error = ?, finished_at = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query,
		string(status), submitted, errText, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("finish run %s: %w", id, driven.ErrRunNotFound)
	}

	return nil
}

// GetRun retrieves a run by ID. Returns nil, nil if the run does not exist.
func (r *HistoryRepo) GetRun(ctx context.Context, id string) (*model.ImportRun, error) {
	const query = `SELECT id, source_path, status, submitted, error, started_at, finished_at
		FROM import_runs WHERE id = ?`

	run, err := scanRun(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	return run, nil
}

// ListRuns returns at most limit runs ordered by start time, newest first.
func (r *HistoryRepo) ListRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	const query = `SELECT id, source_path, status, submitted, error, started_at, finished_at
		FROM import_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ListSubmissions returns every submission of a run in row order.
func (r *HistoryRepo) ListSubmissions(ctx context.Context, runID string) ([]model.Submission, error) {
	const query = `SELECT id, run_id, row_number, content, status_code, outcome, submitted_at
		FROM submissions WHERE run_id = ? ORDER BY row_number, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list submissions for run %s: %w", runID, err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		var outcome, submittedAt string

		if err := rows.Scan(&sub.ID, &sub.RunID, &sub.Row, &sub.Content, &sub.StatusCode, &outcome, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Outcome = model.SubmissionOutcome(outcome)
		sub.SubmittedAt, err = parseTime(submittedAt)
		if err != nil {
			return nil, fmt.Errorf("parse submitted_at: %w", err)
		}

		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return subs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.ImportRun, error) {
	var run model.ImportRun
	var status, startedAt string
	var finishedAt sql.NullString

	err := s.Scan(&run.ID, &run.SourcePath, &status, &run.Submitted, &run.Error, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	run.Status = model.RunStatus(status)

	run.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}

	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &t
	}

	return &run, nil
}

// formatTime stores timestamps as RFC 3339 text so lexical order matches time order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05.000000000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
