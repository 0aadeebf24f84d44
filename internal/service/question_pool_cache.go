package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/config"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

// CachedQuestionPool is a read-through Redis cache in front of the active
// question pool. Session question sets are always read from the source so
// grading never sees a stale answer key.
type CachedQuestionPool struct {
	next QuestionPool
	rdb  *redis.Client
	ttl  time.Duration
	log  zerolog.Logger
}

// NewCachedQuestionPool wraps next with a cache whose entries live for ttl.
func NewCachedQuestionPool(next QuestionPool, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedQuestionPool {
	return &CachedQuestionPool{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With().Str("component", "question_pool_cache").Logger(),
	}
}

// ListActive serves the pool from Redis when present. Cache faults fall back
// to the source and are only logged.
func (c *CachedQuestionPool) ListActive(ctx context.Context, scope model.ExamScope) ([]model.Question, error) {
	key := config.CacheKey.QuestionPoolKey(scope.Course, scope.Subject, scope.Area)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var qs []model.Question
		if jerr := json.Unmarshal(raw, &qs); jerr == nil {
			return qs, nil
		}
		c.log.Warn().Str("key", key).Msg("Discarding undecodable pool cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("key", key).Msg("Pool cache read failed")
	}

	qs, err := c.next.ListActive(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return qs, nil
	}

	payload, err := json.Marshal(qs)
	if err != nil {
		return qs, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Pool cache write failed")
	}
	return qs, nil
}

// ListByIDs bypasses the cache.
func (c *CachedQuestionPool) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	return c.next.ListByIDs(ctx, ids)
}

// Invalidate drops the cached pool for a scope.
func (c *CachedQuestionPool) Invalidate(ctx context.Context, scope model.ExamScope) error {
	return c.rdb.Del(ctx, config.CacheKey.QuestionPoolKey(scope.Course, scope.Subject, scope.Area)).Err()
}
