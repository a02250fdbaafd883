package ports

import (
	"context"
	"time"

	"slawatch/internal/domain"
)

// QueueBroker is a durable at-least-once FIFO. A popped job is already
// claimed; there is no acknowledgment handshake, so a crash between pop and
// completion loses that job at the broker.
type QueueBroker interface {
	Push(ctx context.Context, j domain.Job) error
	// PushDelayed defers the job until runAt; a Mover drains due jobs back
	// onto the ready list.
	PushDelayed(ctx context.Context, j domain.Job, runAt time.Time) error
	// BlockingPop returns (nil, nil) on timeout, not an error, so callers
	// can re-check their running flag promptly.
	BlockingPop(ctx context.Context, timeout time.Duration) (*domain.Job, error)
	// Length counts jobs awaiting processing, ready plus deferred.
	Length(ctx context.Context) (int64, error)
	// Clear is maintenance-only; returns the number of jobs removed.
	Clear(ctx context.Context) (int64, error)
}

type Mover interface {
	// moves due deferred jobs back onto the ready list
	Run(ctx context.Context) error
}
