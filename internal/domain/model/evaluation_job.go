package model

import (
	"time"
)

type SubmissionKind string

const (
	KindContest  SubmissionKind = "contest"
	KindPractice SubmissionKind = "practice"
)

// EvaluationJob is the queue payload. The submission row stays the source of
// truth; the job only says which table to grade from.
type EvaluationJob struct {
	Kind         SubmissionKind `json:"kind"`
	SubmissionID string         `json:"submission_id"`
	Attempts     int            `json:"attempts"`
	EnqueuedAt   time.Time      `json:"enqueued_at"`
}
