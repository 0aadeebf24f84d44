package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/config"
	"github.com/stemsi/exstem-exam-engine/internal/handler"
	"github.com/stemsi/exstem-exam-engine/internal/middleware"
	"github.com/stemsi/exstem-exam-engine/internal/response"
	"github.com/stemsi/exstem-exam-engine/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam    *handler.ExamHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// violationLimiter may be nil to disable violation rate limiting.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	violationLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every envelope share it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	if handlers.System != nil {
		router.GET("/health", handlers.System.Health)
	}

	// ─── 1. Exam Group (JWT) ───────────────────────────────────────────
	exams := router.Group("/api/v1/exams")
	exams.Use(middleware.RequireJWT(authService), middleware.NoStore())
	{
		exams.GET("/eligibility", handlers.Exam.CheckEligibility)
		exams.POST("/sessions", handlers.Exam.StartExam)
		exams.PUT("/sessions/:session_id/answers", handlers.Exam.SaveAnswer)

		violations := []gin.HandlerFunc{}
		if violationLimiter != nil {
			violations = append(violations, violationLimiter.Middleware())
		}
		violations = append(violations, handlers.Exam.LogViolation)
		exams.POST("/sessions/:session_id/violations", violations...)

		exams.POST("/sessions/:session_id/submit", handlers.Exam.SubmitExam)
		exams.GET("/results/:session_id", handlers.Exam.GetResult)
		exams.GET("/history", handlers.Exam.ListHistory)

		// ─── Staff only ────────────────────────────────────────────────
		exams.GET("/statistics", middleware.RequireStaff(), handlers.Exam.GetStatistics)
		if handlers.Monitor != nil {
			exams.GET("/monitor", middleware.RequireStaff(), handlers.Monitor.MonitorSSE)
		}
	}

	// ─── 2. WebSocket Group (query token auth) ─────────────────────────
	if handlers.WS != nil {
		ws := router.Group("/ws/v1")
		ws.Use(middleware.RequireWSAuth(authService))
		{
			ws.GET("/exams/sessions/:session_id/stream", handlers.WS.ExamStream)
		}
	}

	return router
}
