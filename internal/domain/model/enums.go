// Package model defines the domain types for the post importer.
package model

// RunStatus is the lifecycle state of an import run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// SubmissionOutcome classifies the result of a single POST attempt.
type SubmissionOutcome string

const (
	// SubmissionCreated means the service answered 201 Created.
	SubmissionCreated SubmissionOutcome = "created"
	// SubmissionRejected means the service answered with any other status.
	SubmissionRejected SubmissionOutcome = "rejected"
	// SubmissionTransportError means no HTTP response was received.
	SubmissionTransportError SubmissionOutcome = "transport_error"
)
