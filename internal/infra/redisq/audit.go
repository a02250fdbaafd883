package redisq

import (
	"context"
	"encoding/json"

	"slawatch/internal/domain"
	"slawatch/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var _ ports.Auditor = (*AuditLog)(nil)

// AuditLog appends job-outcome events to a Redis stream.
type AuditLog struct {
	C *Client
}

func NewAuditLog(c *Client) *AuditLog {
	return &AuditLog{C: c}
}

// Record is fire-and-forget: failures are logged, never returned, so audit
// problems cannot block job processing.
func (a *AuditLog) Record(ctx context.Context, ev domain.AuditEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("audit event encode failed")
		return
	}
	if err := a.C.Rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: a.C.Cfg.AuditStreamKey,
		Values: map[string]interface{}{"event": b},
	}).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("type", ev.Type).Msg("audit record failed")
	}
}
