package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/config"
	"github.com/stemsi/exstem-exam-engine/internal/response"
)

// RateLimiter is a per-user fixed-window counter kept in Redis so the limit
// holds across server instances.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewRateLimiter allows limit requests per user per window.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		now:    time.Now,
		log:    log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Allow counts one request for userID and reports whether it fits the window.
func (rl *RateLimiter) Allow(ctx context.Context, userID int) (bool, error) {
	slot := rl.now().UnixNano() / int64(rl.window)
	key := config.CacheKey.ViolationRateKey(userID, slot)

	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(rl.limit), nil
}

// Check is Allow with the limiter's policy applied: a nil limiter or a
// non-positive limit lets everything through, and Redis faults fail open.
func (rl *RateLimiter) Check(ctx context.Context, userID int) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	ok, err := rl.Allow(ctx, userID)
	if err != nil {
		rl.log.Warn().Err(err).Int("user_id", userID).Msg("Rate limit check failed, allowing request")
	}
	return ok
}

// RetryAfter is the window length in whole seconds.
func (rl *RateLimiter) RetryAfter() int {
	return int(rl.window / time.Second)
}

// Middleware rejects callers over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || rl.Check(c.Request.Context(), claims.UserID) {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(rl.RetryAfter()))
		response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
	}
}
