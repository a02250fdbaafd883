package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slawatch/internal/domain"
	"slawatch/internal/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ ports.QueueBroker = (*Client)(nil)

func (c *Client) Push(ctx context.Context, j domain.Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now().UTC()
	}
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return c.Rdb.LPush(ctx, c.Cfg.QueueKey, b).Err()
}

// PushDelayed parks the job in the deferred ZSET scored by its due time; the
// Mover drains it back onto the list once due.
func (c *Client) PushDelayed(ctx context.Context, j domain.Job, runAt time.Time) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return c.Rdb.ZAdd(ctx, c.Cfg.DeferredKey, redis.Z{
		Score:  float64(runAt.UnixMilli()),
		Member: b,
	}).Err()
}

func (c *Client) BlockingPop(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	res, err := c.Rdb.BRPop(ctx, timeout, c.Cfg.QueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) != 2 {
		return nil, nil
	}

	var j domain.Job
	if err := json.Unmarshal([]byte(res[1]), &j); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &j, nil
}

// Length counts jobs awaiting processing, ready plus deferred, matching
// what Clear removes.
func (c *Client) Length(ctx context.Context) (int64, error) {
	ready, err := c.Rdb.LLen(ctx, c.Cfg.QueueKey).Result()
	if err != nil {
		return 0, err
	}
	deferred, err := c.Rdb.ZCard(ctx, c.Cfg.DeferredKey).Result()
	if err != nil {
		return 0, err
	}
	return ready + deferred, nil
}

// Clear empties both the ready list and the deferred set.
func (c *Client) Clear(ctx context.Context) (int64, error) {
	ready, err := c.Rdb.LLen(ctx, c.Cfg.QueueKey).Result()
	if err != nil {
		return 0, err
	}
	deferred, err := c.Rdb.ZCard(ctx, c.Cfg.DeferredKey).Result()
	if err != nil {
		return 0, err
	}
	if err := c.Rdb.Del(ctx, c.Cfg.QueueKey, c.Cfg.DeferredKey).Err(); err != nil {
		return 0, err
	}
	return ready + deferred, nil
}
