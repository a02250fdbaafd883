package sla

import (
	"context"
	"errors"
	"time"

	"slawatch/internal/domain"
	"slawatch/internal/ports"

	"github.com/rs/zerolog/log"
)

// EscalationAction names a submission whose deadline has been breached.
type EscalationAction struct {
	SubmissionID string `json:"submission_id"`
}

// Engine holds the breach-detection and escalation logic. It keeps no state
// of its own; every call works off the store snapshot it reads.
type Engine struct {
	store    ports.SubmissionStore
	notifier ports.Dispatcher
	now      func() time.Time
}

func New(store ports.SubmissionStore, notifier ports.Dispatcher) *Engine {
	return &Engine{store: store, notifier: notifier, now: time.Now}
}

// CheckBreaches lists open submissions past their deadline. Read-only, so
// concurrent scans from several workers cannot double-escalate.
func (e *Engine) CheckBreaches(ctx context.Context) ([]EscalationAction, error) {
	subs, err := e.store.ListOpenPastDeadline(ctx, e.now().UTC())
	if err != nil {
		return nil, err
	}
	actions := make([]EscalationAction, 0, len(subs))
	for _, s := range subs {
		actions = append(actions, EscalationAction{SubmissionID: s.ID})
	}
	return actions, nil
}

// Escalate notifies first, then flips the status. Notification is
// at-least-once; the conditional transition keeps the status change
// at-most-once, which is what makes duplicate escalation jobs safe.
func (e *Engine) Escalate(ctx context.Context, submissionID string) error {
	sub, err := e.store.Get(ctx, submissionID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Ctx(ctx).Info().Str("submission", submissionID).Msg("escalation skipped: submission gone")
		return nil
	}
	if err != nil {
		return err
	}
	if sub.Status != domain.StatusOpen {
		return nil
	}

	if err := e.notifier.Notify(ctx, *sub); err != nil {
		return err
	}

	changed, err := e.store.SetEscalated(ctx, submissionID)
	if err != nil {
		return err
	}
	if !changed {
		log.Ctx(ctx).Info().Str("submission", submissionID).Msg("already escalated by a concurrent worker")
	} else {
		log.Ctx(ctx).Info().Str("submission", submissionID).Msg("submission escalated")
	}
	return nil
}

type ProcessResult struct {
	Checked   int      `json:"checked"`
	Escalated []string `json:"escalated"`
}

// ProcessEscalations runs a scan and escalates every breach in-process,
// bypassing the queue. Used by the administrative surface.
func (e *Engine) ProcessEscalations(ctx context.Context) (ProcessResult, error) {
	actions, err := e.CheckBreaches(ctx)
	if err != nil {
		return ProcessResult{}, err
	}

	res := ProcessResult{Checked: len(actions), Escalated: make([]string, 0, len(actions))}
	var errs []error
	for _, a := range actions {
		if err := e.Escalate(ctx, a.SubmissionID); err != nil {
			errs = append(errs, err)
			continue
		}
		res.Escalated = append(res.Escalated, a.SubmissionID)
	}
	return res, errors.Join(errs...)
}
