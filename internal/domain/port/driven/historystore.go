package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/postimport/internal/domain/model"
)

// ErrRunNotFound indicates the requested import run does not exist.
var ErrRunNotFound = errors.New("import run not found")

// HistoryStore defines the driven port for the import audit ledger.
// It is write-only from the importer's perspective: nothing read back from it
// influences which posts are submitted.
type HistoryStore interface {
	StartRun(ctx context.Context, run model.ImportRun) error
	RecordSubmission(ctx context.Context, sub model.Submission) error
	// FinishRun returns ErrRunNotFound if no run with the given ID exists.
	FinishRun(ctx context.Context, id string, status model.RunStatus, submitted int, errText string) error
	// GetRun returns nil, nil if the run does not exist.
	GetRun(ctx context.Context, id string) (*model.ImportRun, error)
	// ListRuns returns at most limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.ImportRun, error)
	// ListSubmissions returns the submissions of a run in row order.
	ListSubmissions(ctx context.Context, runID string) ([]model.Submission, error)
}
