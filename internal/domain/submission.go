package domain

import "time"

type SubmissionStatus string

const (
	StatusOpen      SubmissionStatus = "open"
	StatusEscalated SubmissionStatus = "escalated"
	StatusResolved  SubmissionStatus = "resolved"
)

// Submission is a citizen request with a response deadline. The store owns
// it; this subsystem only reads it and flips open submissions to escalated.
type Submission struct {
	ID              string           `json:"id"`
	ReceivedAt      time.Time        `json:"received_at"`
	SLADays         int              `json:"sla_days"`
	Status          SubmissionStatus `json:"status"`
	EscalationCount int              `json:"escalation_count"`
}

// Deadline is the instant the submission becomes overdue. A submission
// received at any time on its calendar day (UTC) gets all of day SLADays to
// be answered, so it is overdue from 00:00 UTC of day SLADays+1 onward.
func (s Submission) Deadline() time.Time {
	day := s.ReceivedAt.UTC().Truncate(24 * time.Hour)
	return day.AddDate(0, 0, s.SLADays+1)
}

// Overdue reports whether the deadline has passed, boundary inclusive.
func (s Submission) Overdue(now time.Time) bool {
	return !now.UTC().Before(s.Deadline())
}
