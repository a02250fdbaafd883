package domain

import "time"

// Audit event types, one per job outcome.
const (
	AuditProcessed        = "processed"
	AuditRetryScheduled   = "retry_scheduled"
	AuditRetriesExhausted = "retries_exhausted"
	AuditInvalidDropped   = "invalid_dropped"
)

type AuditEvent struct {
	Type         string    `json:"type"`
	JobType      JobType   `json:"job_type"`
	SubmissionID string    `json:"submission_id,omitempty"`
	Error        string    `json:"error,omitempty"`
	RetryCount   int       `json:"retry_count"`
	Timestamp    time.Time `json:"timestamp"`
}
