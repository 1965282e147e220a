// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/postimport/internal/domain/model"
	"github.com/ericfisherdev/postimport/internal/domain/port/driven"
)

// ImportRequest describes a single import run.
type ImportRequest struct {
	Source     driven.PostSource
	SourcePath string // Recorded in history only.
	Token      string
}

// ImportResult summarizes a run that completed without error.
type ImportResult struct {
	RunID     string
	Submitted int
}

// ImportService replays every post from a source against the PostWriter, one
// at a time and in source order. The first failure of any kind ends the run.
type ImportService struct {
	writer  driven.PostWriter
	history driven.HistoryStore
	out     io.Writer
	newID   func() string
	now     func() time.Time
}

// NewImportService creates an ImportService. history may be nil to disable the
// audit ledger. Progress lines are written to out.
func NewImportService(writer driven.PostWriter, history driven.HistoryStore, out io.Writer) *ImportService {
	return &ImportService{
		writer:  writer,
		history: history,
		out:     out,
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run reads posts until the source is exhausted, printing a progress line
// before each submission. It returns the first source, output, or submit
// error unchanged in meaning; posts after the failing one are never read.
func (s *ImportService) Run(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	ledger := s.startLedger(ctx, req.SourcePath)
	submitted := 0

	for {
		post, err := req.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			err = fmt.Errorf("reading posts: %w", err)
			ledger.finish(model.RunStatusFailed, submitted, err)
			return nil, err
		}

		if _, err := fmt.Fprintf(s.out, "Inserting post: %s\n", post.Content); err != nil {
			err = fmt.Errorf("writing progress: %w", err)
			ledger.finish(model.RunStatusFailed, submitted, err)
			return nil, err
		}

		err = s.writer.CreatePost(ctx, req.Token, post.Content)
		ledger.record(post, err)
		if err != nil {
			slog.Debug("post rejected", "row", post.Row, "error", err)
			ledger.finish(model.RunStatusFailed, submitted, err)
			return nil, err
		}

		submitted++
		slog.Debug("post created", "row", post.Row)
	}

	ledger.finish(model.RunStatusSucceeded, submitted, nil)
	slog.Info("import complete", "run_id", ledger.runID, "submitted", submitted)

	return &ImportResult{RunID: ledger.runID, Submitted: submitted}, nil
}

// runLedger writes run history on a best-effort basis. Failures are logged and
// never alter the outcome of the import.
type runLedger struct {
	store driven.HistoryStore // Nil when history is disabled or StartRun failed.
	ctx   context.Context
	runID string
	now   func() time.Time
}

func (s *ImportService) startLedger(ctx context.Context, sourcePath string) *runLedger {
	l := &runLedger{
		// Detach from cancellation so an interrupted run is still closed out.
		ctx:   context.WithoutCancel(ctx),
		runID: s.newID(),
		now:   s.now,
	}
	if s.history == nil {
		return l
	}

	err := s.history.StartRun(l.ctx, model.ImportRun{
		ID:         l.runID,
		SourcePath: sourcePath,
		Status:     model.RunStatusRunning,
		StartedAt:  s.now(),
	})
	if err != nil {
		slog.Warn("history disabled for this run", "run_id", l.runID, "error", err)
		return l
	}

	l.store = s.history
	return l
}

func (l *runLedger) record(post model.Post, submitErr error) {
	if l.store == nil {
		return
	}

	sub := model.Submission{
		RunID:       l.runID,
		Row:         post.Row,
		Content:     post.Content,
		SubmittedAt: l.now(),
	}

	var statusErr *driven.UnexpectedStatusError
	switch {
	case submitErr == nil:
		sub.StatusCode = http.StatusCreated
		sub.Outcome = model.SubmissionCreated
	case errors.As(submitErr, &statusErr):
		sub.StatusCode = statusErr.StatusCode
		sub.Outcome = model.SubmissionRejected
	default:
		sub.Outcome = model.SubmissionTransportError
	}

	if err := l.store.RecordSubmission(l.ctx, sub); err != nil {
		slog.Warn("failed to record submission", "run_id", l.runID, "row", post.Row, "error", err)
	}
}

func (l *runLedger) finish(status model.RunStatus, submitted int, runErr error) {
	if l.store == nil {
		return
	}

	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	if err := l.store.FinishRun(l.ctx, l.runID, status, submitted, errText); err != nil {
		slog.Warn("failed to finish run", "run_id", l.runID, "error", err)
	}
}
