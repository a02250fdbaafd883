package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"slawatch/internal/domain"
	"slawatch/internal/ports"
	"slawatch/internal/sla"
	"slawatch/pkg/backoff"

	"github.com/rs/zerolog/log"
)

const (
	PolicyLinear      = "linear"
	PolicyExponential = "exponential"
)

// Engine is the slice of the SLA engine the worker dispatches to.
type Engine interface {
	CheckBreaches(ctx context.Context) ([]sla.EscalationAction, error)
	Escalate(ctx context.Context, submissionID string) error
}

type Config struct {
	CheckInterval  time.Duration `json:"check_interval"`
	PopTimeout     time.Duration `json:"pop_timeout"`
	MaxRetries     int           `json:"max_retries"`
	RetryBaseDelay time.Duration `json:"retry_base_delay"`
	RetryMaxDelay  time.Duration `json:"retry_max_delay"`
	BackoffPolicy  string        `json:"backoff_policy"`
}

type Status struct {
	IsRunning   bool   `json:"is_running"`
	QueueLength int64  `json:"queue_length"`
	Uptime      string `json:"uptime"`
	Config      Config `json:"config"`
}

// Worker owns the run loop: a ticker that enqueues scan jobs, a consumer
// that dispatches them, and the retry/backoff policy. Instances are
// independent; several may share one broker for horizontal scaling.
type Worker struct {
	broker ports.QueueBroker
	engine Engine
	audit  ports.Auditor
	mover  ports.Mover
	cfg    Config

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	startedAt time.Time
	wg        sync.WaitGroup
}

// New applies defaults for any zero config field. mover may be nil when the
// broker delivers deferred jobs on its own.
func New(broker ports.QueueBroker, engine Engine, audit ports.Auditor, mover ports.Mover, cfg Config) *Worker {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 15 * time.Minute
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 5 * time.Second
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 5 * time.Minute
	}
	if cfg.BackoffPolicy == "" {
		cfg.BackoffPolicy = PolicyLinear
	}
	return &Worker{broker: broker, engine: engine, audit: audit, mover: mover, cfg: cfg}
}

// Start is a logged no-op when already running.
func (w *Worker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		log.Info().Msg("worker already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.running = true
	w.cancel = cancel
	w.startedAt = time.Now()
	w.mu.Unlock()

	w.wg.Add(2)
	go w.produceScans(ctx)
	go w.consume(ctx)

	if w.mover != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.mover.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("deferred mover stopped")
			}
		}()
	}

	log.Info().Dur("check_interval", w.cfg.CheckInterval).Msg("worker started")
}

// Stop flips the running flag and waits for the in-flight job to finish.
// A logged no-op when already stopped.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		log.Info().Msg("worker already stopped")
		return
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	log.Info().Msg("worker stopped")
}

func (w *Worker) Status(ctx context.Context) Status {
	w.mu.Lock()
	running := w.running
	started := w.startedAt
	w.mu.Unlock()

	n, err := w.broker.Length(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("queue length unavailable")
		n = -1
	}

	var uptime time.Duration
	if running {
		uptime = time.Since(started)
	}
	return Status{
		IsRunning:   running,
		QueueLength: n,
		Uptime:      uptime.Round(time.Second).String(),
		Config:      w.cfg,
	}
}

// ClearQueue is maintenance-only; normal processing never drops jobs this way.
func (w *Worker) ClearQueue(ctx context.Context) (int64, error) {
	return w.broker.Clear(ctx)
}

// produceScans enqueues a scan immediately, then one per tick.
func (w *Worker) produceScans(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		if err := w.broker.Push(ctx, domain.NewScanJob(time.Now())); err != nil && ctx.Err() == nil {
			log.Ctx(ctx).Error().Err(err).Msg("scan enqueue failed, retrying next tick")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) consume(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.broker.BlockingPop(ctx, w.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Ctx(ctx).Error().Err(err).Msg("queue pop failed")
			// a broken broker can fail without blocking; don't spin hot
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.cfg.PopTimeout):
			}
			continue
		}
		if job == nil {
			continue
		}

		// Claimed without acknowledgment: a crash from here until settle
		// loses the job at the broker, so log the claim for reconciliation.
		log.Ctx(ctx).Debug().
			Str("job", job.ID).
			Str("type", string(job.Type)).
			Int("retry", job.RetryCount).
			Msg("job claimed")

		// Stop must never abort a claimed job: dispatch and settle run on a
		// context that survives the loop's cancel, so the stop signal only
		// interrupts the blocking pop. The failure path (deferred requeue,
		// terminal audit) stays reachable during shutdown for the same
		// reason.
		jobCtx := context.WithoutCancel(ctx)
		w.settle(jobCtx, *job, w.dispatch(jobCtx, *job))
	}
}

func (w *Worker) dispatch(ctx context.Context, job domain.Job) Outcome {
	switch job.Type {
	case domain.JobScan:
		return w.runScan(ctx, job)
	case domain.JobEscalate:
		return w.runEscalate(ctx, job)
	default:
		return Fatal(&domain.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown job type %q", job.Type)})
	}
}

func (w *Worker) runScan(ctx context.Context, job domain.Job) Outcome {
	actions, err := w.engine.CheckBreaches(ctx)
	if err != nil {
		return classify(err)
	}
	for _, a := range actions {
		if err := w.broker.Push(ctx, domain.NewEscalateJob(a.SubmissionID, time.Now())); err != nil {
			// escalation is idempotent, so rerunning the whole fanout is safe
			return Retry(fmt.Errorf("enqueue escalation for %s: %w", a.SubmissionID, err))
		}
	}
	if len(actions) > 0 {
		log.Ctx(ctx).Info().Int("breaches", len(actions)).Msg("breach scan queued escalations")
	}
	return Success()
}

func (w *Worker) runEscalate(ctx context.Context, job domain.Job) Outcome {
	if job.SubmissionID == "" {
		return Fatal(&domain.ValidationError{Field: "submission_id", Reason: "missing"})
	}
	if err := w.engine.Escalate(ctx, job.SubmissionID); err != nil {
		return classify(err)
	}
	return Success()
}

func classify(err error) Outcome {
	if domain.Retryable(err) {
		return Retry(err)
	}
	return Fatal(err)
}

// settle audits every outcome and requeues retryable failures with a
// deferred push, never a sleep, so the loop stays responsive.
func (w *Worker) settle(ctx context.Context, job domain.Job, out Outcome) {
	now := time.Now().UTC()
	switch out.kind {
	case outcomeSuccess:
		w.audit.Record(ctx, domain.AuditEvent{
			Type:         domain.AuditProcessed,
			JobType:      job.Type,
			SubmissionID: job.SubmissionID,
			RetryCount:   job.RetryCount,
			Timestamp:    now,
		})

	case outcomeRetry:
		if job.RetryCount < w.cfg.MaxRetries {
			next := job
			next.RetryCount++
			next.ScheduledAt = now
			delay := w.retryDelay(next.RetryCount)
			if err := w.broker.PushDelayed(ctx, next, now.Add(delay)); err != nil {
				log.Ctx(ctx).Error().Err(err).Str("job", job.ID).Msg("retry enqueue failed, dropping job")
				w.recordTerminal(ctx, job, fmt.Errorf("retry enqueue failed: %w (after: %v)", err, out.err))
				return
			}
			log.Ctx(ctx).Warn().
				Err(out.err).
				Str("job", job.ID).
				Int("retry", next.RetryCount).
				Dur("delay", delay).
				Msg("job failed, retry scheduled")
			w.audit.Record(ctx, domain.AuditEvent{
				Type:         domain.AuditRetryScheduled,
				JobType:      job.Type,
				SubmissionID: job.SubmissionID,
				Error:        out.err.Error(),
				RetryCount:   next.RetryCount,
				Timestamp:    now,
			})
			return
		}
		log.Ctx(ctx).Error().
			Err(out.err).
			Str("job", job.ID).
			Int("retry", job.RetryCount).
			Msg("retries exhausted, dropping job")
		w.recordTerminal(ctx, job, out.err)

	case outcomeFatal:
		log.Ctx(ctx).Error().Err(out.err).Str("job", job.ID).Msg("invalid job dropped")
		w.audit.Record(ctx, domain.AuditEvent{
			Type:         domain.AuditInvalidDropped,
			JobType:      job.Type,
			SubmissionID: job.SubmissionID,
			Error:        out.err.Error(),
			RetryCount:   job.RetryCount,
			Timestamp:    now,
		})
	}
}

func (w *Worker) recordTerminal(ctx context.Context, job domain.Job, err error) {
	w.audit.Record(ctx, domain.AuditEvent{
		Type:         domain.AuditRetriesExhausted,
		JobType:      job.Type,
		SubmissionID: job.SubmissionID,
		Error:        err.Error(),
		RetryCount:   job.RetryCount,
		Timestamp:    time.Now().UTC(),
	})
}

func (w *Worker) retryDelay(attempt int) time.Duration {
	if w.cfg.BackoffPolicy == PolicyExponential {
		return backoff.ExponentialJitter(w.cfg.RetryBaseDelay, w.cfg.RetryMaxDelay, attempt)
	}
	return backoff.Linear(w.cfg.RetryBaseDelay, w.cfg.RetryMaxDelay, attempt)
}
