package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/response"
	"github.com/stemsi/exstem-exam-engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, limit int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRateLimiter(rdb, limit, time.Minute, zerolog.Nop())
	now := time.Date(2026, time.March, 10, 9, 0, 5, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, mr
}

func limitedRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.POST("/violations/:user", func(c *gin.Context) {
		userID := 1
		if c.Param("user") == "2" {
			userID = 2
		}
		c.Set(ContextKeyClaims, &service.Claims{UserID: userID, Role: model.RoleStudent})
		c.Next()
	}, rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func hit(r *gin.Engine, user string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/violations/"+user, nil))
	return rec
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	rl, mr := newLimiter(t, 2)
	r := limitedRouter(rl)

	assert.Equal(t, http.StatusNoContent, hit(r, "1").Code)
	assert.Equal(t, http.StatusNoContent, hit(r, "1").Code)

	rec := hit(r, "1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, response.ErrRateLimitExceeded, errorCode(t, rec))

	assert.Equal(t, http.StatusNoContent, hit(r, "2").Code, "limits are per user")

	keys := mr.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))

	next := rl.now().Add(time.Minute)
	rl.now = func() time.Time { return next }
	assert.Equal(t, http.StatusNoContent, hit(r, "1").Code, "a new window resets the count")
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl, mr := newLimiter(t, 1)
	r := limitedRouter(rl)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, hit(r, "1").Code)
	}

	ok, err := rl.Allow(context.Background(), 1)
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_DisabledWithZeroLimit(t *testing.T) {
	rl, mr := newLimiter(t, 0)
	r := limitedRouter(rl)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, hit(r, "1").Code)
	}
	assert.Empty(t, mr.Keys())
}

func TestRateLimiter_Check(t *testing.T) {
	ctx := context.Background()

	var unset *RateLimiter
	assert.True(t, unset.Check(ctx, 1), "nil limiter allows everything")

	rl, _ := newLimiter(t, 1)
	assert.True(t, rl.Check(ctx, 7))
	assert.False(t, rl.Check(ctx, 7))
	assert.True(t, rl.Check(ctx, 8))
	assert.Equal(t, 60, rl.RetryAfter())
}
