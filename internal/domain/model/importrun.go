package model

import "time"

// ImportRun records one invocation of the importer against a source file.
type ImportRun struct {
	ID         string
	SourcePath string
	Status     RunStatus
	Submitted  int // Number of posts the service accepted with 201.
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time // Nil while the run is still in progress.
}

// Submission records a single POST attempt made during an import run.
type Submission struct {
	ID          int64
	RunID       string
	Row         int
	Content     string
	StatusCode  int // 0 when the request never produced a response.
	Outcome     SubmissionOutcome
	SubmittedAt time.Time
}
