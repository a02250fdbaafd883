package sla

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"slawatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	subs    map[string]*domain.Submission
	listErr error
	getErr  error
	setErr  error
}

func newFakeStore(subs ...domain.Submission) *fakeStore {
	f := &fakeStore{subs: map[string]*domain.Submission{}}
	for _, s := range subs {
		s := s
		f.subs[s.ID] = &s
	}
	return f
}

func (f *fakeStore) ListOpenPastDeadline(ctx context.Context, now time.Time) ([]domain.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Submission
	for _, s := range f.subs {
		if s.Status == domain.StatusOpen && s.Overdue(now) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*domain.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) SetEscalated(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	s, ok := f.subs[id]
	if !ok || s.Status != domain.StatusOpen {
		return false, nil
	}
	s.Status = domain.StatusEscalated
	s.EscalationCount++
	return true, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	notified []string
	err      error
}

func (f *fakeDispatcher) Notify(ctx context.Context, s domain.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.notified = append(f.notified, s.ID)
	return nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notified)
}

var (
	day0 = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	day3 = time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC)
)

func newEngineAt(store *fakeStore, disp *fakeDispatcher, now time.Time) *Engine {
	e := New(store, disp)
	e.now = func() time.Time { return now }
	return e
}

func TestCheckBreachesFiltersStatusAndDeadline(t *testing.T) {
	store := newFakeStore(
		domain.Submission{ID: "overdue-open", ReceivedAt: day0, SLADays: 1, Status: domain.StatusOpen},
		domain.Submission{ID: "fresh-open", ReceivedAt: day0, SLADays: 30, Status: domain.StatusOpen},
		domain.Submission{ID: "overdue-escalated", ReceivedAt: day0, SLADays: 1, Status: domain.StatusEscalated},
		domain.Submission{ID: "overdue-resolved", ReceivedAt: day0, SLADays: 1, Status: domain.StatusResolved},
	)
	e := newEngineAt(store, &fakeDispatcher{}, day3)

	actions, err := e.CheckBreaches(context.Background())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "overdue-open", actions[0].SubmissionID)
}

func TestCheckBreachesStoreUnavailable(t *testing.T) {
	store := newFakeStore()
	store.listErr = fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
	e := newEngineAt(store, &fakeDispatcher{}, day3)

	_, err := e.CheckBreaches(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestEscalateIdempotent(t *testing.T) {
	store := newFakeStore(domain.Submission{ID: "s1", ReceivedAt: day0, SLADays: 1, Status: domain.StatusOpen})
	disp := &fakeDispatcher{}
	e := newEngineAt(store, disp, day3)
	ctx := context.Background()

	require.NoError(t, e.Escalate(ctx, "s1"))
	require.NoError(t, e.Escalate(ctx, "s1"))

	sub, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEscalated, sub.Status)
	assert.Equal(t, 1, sub.EscalationCount, "exactly one transition")
	assert.Equal(t, 1, disp.count(), "second call is a no-op before the dispatcher")
}

func TestEscalateMissingSubmissionIsNoop(t *testing.T) {
	e := newEngineAt(newFakeStore(), &fakeDispatcher{}, day3)
	assert.NoError(t, e.Escalate(context.Background(), "gone"))
}

func TestEscalateNonOpenIsNoop(t *testing.T) {
	store := newFakeStore(domain.Submission{ID: "s1", ReceivedAt: day0, SLADays: 1, Status: domain.StatusResolved})
	disp := &fakeDispatcher{}
	e := newEngineAt(store, disp, day3)

	require.NoError(t, e.Escalate(context.Background(), "s1"))
	assert.Zero(t, disp.count())
}

func TestEscalateDispatchFailureLeavesSubmissionOpen(t *testing.T) {
	store := newFakeStore(domain.Submission{ID: "s1", ReceivedAt: day0, SLADays: 1, Status: domain.StatusOpen})
	disp := &fakeDispatcher{err: fmt.Errorf("%w: 502 Bad Gateway", domain.ErrDispatchFailed)}
	e := newEngineAt(store, disp, day3)
	ctx := context.Background()

	err := e.Escalate(ctx, "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDispatchFailed)

	sub, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, sub.Status, "no transition without a successful dispatch")
	assert.Zero(t, sub.EscalationCount)
}

func TestEscalateRetryAfterStoreFailure(t *testing.T) {
	// dispatch succeeded but the transition failed: the retry notifies again
	// (at-least-once) and then completes the transition exactly once
	store := newFakeStore(domain.Submission{ID: "s1", ReceivedAt: day0, SLADays: 1, Status: domain.StatusOpen})
	store.setErr = fmt.Errorf("%w: write timeout", domain.ErrStoreUnavailable)
	disp := &fakeDispatcher{}
	e := newEngineAt(store, disp, day3)
	ctx := context.Background()

	err := e.Escalate(ctx, "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 1, disp.count())

	store.mu.Lock()
	store.setErr = nil
	store.mu.Unlock()

	require.NoError(t, e.Escalate(ctx, "s1"))
	assert.Equal(t, 2, disp.count())

	sub, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEscalated, sub.Status)
	assert.Equal(t, 1, sub.EscalationCount)
}

func TestBreachCycle(t *testing.T) {
	// S1 received day 0 with slaDays=2: breached at day 3, gone after escalation
	store := newFakeStore(domain.Submission{ID: "S1", ReceivedAt: day0, SLADays: 2, Status: domain.StatusOpen})
	e := newEngineAt(store, &fakeDispatcher{}, day3)
	ctx := context.Background()

	actions, err := e.CheckBreaches(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "S1", actions[0].SubmissionID)

	require.NoError(t, e.Escalate(ctx, "S1"))

	sub, err := store.Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEscalated, sub.Status)

	actions, err = e.CheckBreaches(ctx)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestProcessEscalations(t *testing.T) {
	store := newFakeStore(
		domain.Submission{ID: "a", ReceivedAt: day0, SLADays: 1, Status: domain.StatusOpen},
		domain.Submission{ID: "b", ReceivedAt: day0, SLADays: 1, Status: domain.StatusOpen},
		domain.Submission{ID: "c", ReceivedAt: day0, SLADays: 30, Status: domain.StatusOpen},
	)
	e := newEngineAt(store, &fakeDispatcher{}, day3)
	ctx := context.Background()

	res, err := e.ProcessEscalations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.ElementsMatch(t, []string{"a", "b"}, res.Escalated)

	res, err = e.ProcessEscalations(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Checked)
	assert.Empty(t, res.Escalated)
}

func TestProcessEscalationsCollectsErrors(t *testing.T) {
	store := newFakeStore(domain.Submission{ID: "a", ReceivedAt: day0, SLADays: 1, Status: domain.StatusOpen})
	disp := &fakeDispatcher{err: domain.ErrDispatchFailed}
	e := newEngineAt(store, disp, day3)

	res, err := e.ProcessEscalations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDispatchFailed))
	assert.Equal(t, 1, res.Checked)
	assert.Empty(t, res.Escalated)
}
