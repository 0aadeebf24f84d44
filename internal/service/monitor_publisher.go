package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/config"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

// RedisMonitorPublisher broadcasts lifecycle events on the course's monitor channel.
type RedisMonitorPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisMonitorPublisher creates a new RedisMonitorPublisher.
func NewRedisMonitorPublisher(rdb *redis.Client, log zerolog.Logger) *RedisMonitorPublisher {
	return &RedisMonitorPublisher{
		rdb: rdb,
		log: log.With().Str("component", "monitor_publisher").Logger(),
	}
}

// Publish sends ev to subscribers. Failures are logged and swallowed.
func (p *RedisMonitorPublisher) Publish(ctx context.Context, ev model.MonitorEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to encode monitor event")
		return
	}
	channel := config.CacheKey.CourseMonitorChannel(ev.Course)
	if err := p.rdb.Publish(context.WithoutCancel(ctx), channel, payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("channel", channel).Str("event", string(ev.Type)).Msg("Failed to publish monitor event")
	}
}
