package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/config"
	"github.com/stemsi/exstem-exam-engine/internal/middleware"
	"github.com/stemsi/exstem-exam-engine/internal/response"
	"github.com/stemsi/exstem-exam-engine/internal/service"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second
)

// MonitorHandler streams exam lifecycle events to staff over SSE.
type MonitorHandler struct {
	rdb            *redis.Client
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorSSE godoc
// GET /api/v1/exams/monitor?course=
// Sends a snapshot of live sessions, then forwards started, violation,
// flagged and submitted events as they are published.
func (h *MonitorHandler) MonitorSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	reqCtx := c.Request.Context()

	course, err := h.monitorService.ResolveCourse(reqCtx, claims.Caller(), c.Query("course"))
	if err != nil {
		failService(c, h.log, err)
		return
	}

	fetchCtx, cancel := context.WithTimeout(reqCtx, snapshotTimeout)
	snapshot, err := h.monitorService.Snapshot(fetchCtx, course)
	cancel()
	if err != nil {
		failService(c, h.log, err)
		return
	}

	var pubsub *redis.PubSub
	if course == "" {
		pubsub = h.rdb.PSubscribe(reqCtx, config.CacheKey.AllMonitorChannel())
	} else {
		pubsub = h.rdb.Subscribe(reqCtx, config.CacheKey.CourseMonitorChannel(course))
	}
	defer pubsub.Close()
	ch := pubsub.Channel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent("snapshot", snapshot)
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	logCtx := h.log.With().Int("user_id", claims.UserID).Str("course", course).Logger()
	logCtx.Info().Msg("Monitor attached")

	for {
		select {
		case <-reqCtx.Done():
			logCtx.Info().Msg("Monitor detached")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payload is already JSON; forward as-is.
			c.Writer.Write([]byte("event: exam\ndata: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAlive.C:
			c.Writer.Write([]byte(": keep-alive\n\n"))
			c.Writer.Flush()
		}
	}
}
