package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/middleware"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/response"
	"github.com/stemsi/exstem-exam-engine/internal/service"
	"github.com/stemsi/exstem-exam-engine/internal/validator"
)

// ExamHandler handles the exam session endpoints.
type ExamHandler struct {
	sessionService *service.ExamSessionService
	gradingService *service.GradingService
	resultService  *service.ResultService
	log            zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	sessionService *service.ExamSessionService,
	gradingService *service.GradingService,
	resultService *service.ResultService,
	log zerolog.Logger,
) *ExamHandler {
	return &ExamHandler{
		sessionService: sessionService,
		gradingService: gradingService,
		resultService:  resultService,
		log:            log.With().Str("component", "exam_handler").Logger(),
	}
}

// CheckEligibility godoc
// GET /api/v1/exams/eligibility?course=&subject=&area=
func (h *ExamHandler) CheckEligibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.EligibilityQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if q.Subject == "" && q.Area == "" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrTopicRequired, map[string]string{
			"subject": "subject or area is required",
		})
		return
	}

	eligibility, err := h.sessionService.CheckEligibility(c.Request.Context(), claims.UserID, q.Course, q.Subject, q.Area)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, eligibility)
}

// StartExam godoc
// POST /api/v1/exams/sessions
func (h *ExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessionService.StartExam(c.Request.Context(), service.StartExamInput{
		UserID:  claims.UserID,
		Course:  req.Course,
		Subject: req.Subject,
		Area:    req.Area,
		Count:   req.Count,
	})
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// SaveAnswer godoc
// PUT /api/v1/exams/sessions/:session_id/answers
func (h *ExamHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessionService.SaveAnswer(c.Request.Context(), sessionID, claims.UserID, req)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// LogViolation godoc
// POST /api/v1/exams/sessions/:session_id/violations
func (h *ExamHandler) LogViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req model.LogViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessionService.LogViolation(c.Request.Context(), sessionID, claims.UserID, req)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// SubmitExam godoc
// POST /api/v1/exams/sessions/:session_id/submit
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.gradingService.Submit(c.Request.Context(), sessionID, claims.UserID, req.Answers)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetResult godoc
// GET /api/v1/exams/results/:session_id
func (h *ExamHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	result, err := h.resultService.GetResult(c.Request.Context(), claims.Caller(), sessionID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ListHistory godoc
// GET /api/v1/exams/history?user_id=&course=&page=&per_page=
func (h *ExamHandler) ListHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.HistoryQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	targetID := 0
	if q.UserID != "" {
		id, err := strconv.Atoi(q.UserID)
		if err != nil || id <= 0 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		targetID = id
	}

	history, pagination, err := h.resultService.History(c.Request.Context(), claims.Caller(), targetID, q.Course, q.Page, q.PerPage)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, history, pagination)
}

// GetStatistics godoc
// GET /api/v1/exams/statistics?course=
func (h *ExamHandler) GetStatistics(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	stats, err := h.resultService.Statistics(c.Request.Context(), claims.Caller(), c.Query("course"))
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// sessionParam parses :session_id, answering 400 itself when malformed.
func sessionParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
