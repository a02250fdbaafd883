package redisq

import (
	"context"
	"strconv"
	"time"

	"slawatch/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var _ ports.Mover = (*Mover)(nil)

// Mover drains due deferred retries from the ZSET back onto the ready list.
type Mover struct {
	C        *Client
	Interval time.Duration
}

func NewMover(c *Client, interval time.Duration) *Mover {
	return &Mover{C: c, Interval: interval}
}

func (m *Mover) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		if err := m.moveDue(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("deferred move failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Mover) moveDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := m.C.Rdb.ZRangeByScore(ctx, m.C.Cfg.DeferredKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    now,
		Offset: 0,
		Count:  128,
	}).Result()
	if err != nil || len(members) == 0 {
		return err
	}

	pipe := m.C.Rdb.TxPipeline()
	for _, mb := range members {
		pipe.LPush(ctx, m.C.Cfg.QueueKey, mb)
		pipe.ZRem(ctx, m.C.Cfg.DeferredKey, mb)
	}
	_, err = pipe.Exec(ctx)
	return err
}
