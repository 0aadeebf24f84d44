package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/response"
	"github.com/stemsi/exstem-exam-engine/internal/service"
)

// classify maps a service error onto an HTTP status and response code.
// Anything unrecognized is an internal error.
func classify(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, response.ErrUserNotFound
	case errors.Is(err, service.ErrCourseMismatch):
		return http.StatusForbidden, response.ErrCourseMismatch
	case errors.Is(err, service.ErrAreaRequired):
		return http.StatusBadRequest, response.ErrAreaRequired
	case errors.Is(err, service.ErrTopicRequired):
		return http.StatusBadRequest, response.ErrTopicRequired
	case errors.Is(err, service.ErrInvalidAnswer):
		return http.StatusBadRequest, response.ErrValidation
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusNotFound, response.ErrNoQuestions
	case errors.Is(err, service.ErrAlreadyTakenToday):
		return http.StatusConflict, response.ErrAlreadyTakenToday
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, response.ErrSessionNotFound
	case errors.Is(err, service.ErrSessionGraded):
		return http.StatusConflict, response.ErrSessionSubmitted
	case errors.Is(err, service.ErrResultNotFound):
		return http.StatusNotFound, response.ErrResultNotFound
	case errors.Is(err, service.ErrForbiddenScope):
		return http.StatusForbidden, response.ErrForbidden
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failService writes the mapped error. Internal errors are logged with their
// cause and reported without detail.
func failService(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		reqID, _ := c.Get(response.ContextKeyRequestID)
		log.Error().Err(err).Interface("request_id", reqID).Str("path", c.FullPath()).Msg("Request failed")
	}
	response.Fail(c, status, code)
}
