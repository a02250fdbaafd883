package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobScan     JobType = "scan"
	JobEscalate JobType = "escalate"
)

// Job is the unit of work exchanged through the queue. ScheduledAt records
// when it was enqueued, for latency visibility only; the queue stays FIFO.
type Job struct {
	ID           string    `json:"id"`
	Type         JobType   `json:"type"`
	SubmissionID string    `json:"submission_id,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	RetryCount   int       `json:"retry_count"`
}

func NewScanJob(now time.Time) Job {
	return Job{ID: uuid.NewString(), Type: JobScan, ScheduledAt: now.UTC()}
}

func NewEscalateJob(submissionID string, now time.Time) Job {
	return Job{
		ID:           uuid.NewString(),
		Type:         JobEscalate,
		SubmissionID: submissionID,
		ScheduledAt:  now.UTC(),
	}
}
