package ports

import (
	"context"
	"time"

	"slawatch/internal/domain"
)

type SubmissionStore interface {
	ListOpenPastDeadline(ctx context.Context, now time.Time) ([]domain.Submission, error)
	Get(ctx context.Context, id string) (*domain.Submission, error)
	// SetEscalated flips status open->escalated and bumps the escalation
	// count, only if the submission is currently open. Returns whether the
	// transition actually happened.
	SetEscalated(ctx context.Context, id string) (bool, error)
}

type Dispatcher interface {
	Notify(ctx context.Context, s domain.Submission) error
}

// Auditor is fire-and-forget: implementations swallow their own failures so
// audit problems never block job processing.
type Auditor interface {
	Record(ctx context.Context, ev domain.AuditEvent)
}
