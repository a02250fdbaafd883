package redisq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"slawatch/internal/domain"
	"slawatch/internal/ports"

	"github.com/redis/go-redis/v9"
)

var _ ports.SubmissionStore = (*SubmissionStore)(nil)

// SubmissionStore keeps one hash per submission plus a set of open ids so a
// scan never walks resolved or escalated submissions.
type SubmissionStore struct {
	C *Client
}

func NewSubmissionStore(c *Client) *SubmissionStore {
	return &SubmissionStore{C: c}
}

// Status literals must match domain.StatusOpen / domain.StatusEscalated.
var setEscalatedScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "status") == "open" then
  redis.call("HSET", KEYS[1], "status", "escalated")
  redis.call("HINCRBY", KEYS[1], "escalation_count", 1)
  redis.call("SREM", KEYS[2], ARGV[1])
  return 1
end
return 0
`)

func (s *SubmissionStore) key(id string) string {
	return s.C.Cfg.SubmissionPrefix + id
}

func (s *SubmissionStore) SaveSubmission(ctx context.Context, sub domain.Submission) error {
	m := map[string]any{
		"received_at":      sub.ReceivedAt.UTC().UnixMilli(),
		"sla_days":         sub.SLADays,
		"status":           string(sub.Status),
		"escalation_count": sub.EscalationCount,
	}
	pipe := s.C.Rdb.TxPipeline()
	pipe.HSet(ctx, s.key(sub.ID), m)
	if sub.Status == domain.StatusOpen {
		pipe.SAdd(ctx, s.C.Cfg.OpenSetKey, sub.ID)
	} else {
		pipe.SRem(ctx, s.C.Cfg.OpenSetKey, sub.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, id string) (*domain.Submission, error) {
	h, err := s.C.Rdb.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if len(h) == 0 {
		return nil, domain.ErrNotFound
	}
	return parseSubmission(id, h)
}

func (s *SubmissionStore) ListOpenPastDeadline(ctx context.Context, now time.Time) ([]domain.Submission, error) {
	ids, err := s.C.Rdb.SMembers(ctx, s.C.Cfg.OpenSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var out []domain.Submission
	for _, id := range ids {
		sub, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			// stale index entry
			continue
		}
		if err != nil {
			return nil, err
		}
		if sub.Status == domain.StatusOpen && sub.Overdue(now) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *SubmissionStore) SetEscalated(ctx context.Context, id string) (bool, error) {
	n, err := setEscalatedScript.Run(ctx, s.C.Rdb,
		[]string{s.key(id), s.C.Cfg.OpenSetKey}, id).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

func parseSubmission(id string, h map[string]string) (*domain.Submission, error) {
	recv, err := strconv.ParseInt(h["received_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("submission %s: bad received_at %q", id, h["received_at"])
	}
	days, err := strconv.Atoi(h["sla_days"])
	if err != nil {
		return nil, fmt.Errorf("submission %s: bad sla_days %q", id, h["sla_days"])
	}
	count, _ := strconv.Atoi(h["escalation_count"])

	return &domain.Submission{
		ID:              id,
		ReceivedAt:      time.UnixMilli(recv).UTC(),
		SLADays:         days,
		Status:          domain.SubmissionStatus(h["status"]),
		EscalationCount: count,
	}, nil
}
