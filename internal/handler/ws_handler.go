package handler

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/middleware"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/response"
	"github.com/stemsi/exstem-exam-engine/internal/service"
	"github.com/stemsi/exstem-exam-engine/internal/validator"
	ws "github.com/stemsi/exstem-exam-engine/internal/websocket"
)

// wsOpTimeout bounds each store round trip made on behalf of a socket message.
const wsOpTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler carries an exam attempt over a WebSocket: autosave, violation
// reports and the final submission share one connection.
type WSHandler struct {
	sessionService   *service.ExamSessionService
	gradingService   *service.GradingService
	violationLimiter *middleware.RateLimiter
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, gradingService *service.GradingService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		gradingService: gradingService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// WithViolationLimiter applies the REST violation rate limit to socket
// violation reports too.
func (h *WSHandler) WithViolationLimiter(rl *middleware.RateLimiter) *WSHandler {
	h.violationLimiter = rl
	return h
}

// ExamStream godoc
// WS /ws/v1/exams/sessions/:session_id/stream?token=
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	ws.Prepare(conn)

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Client connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, sessionID, claims.UserID, &msg)
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, sessionID, claims.UserID, &msg)
		case ws.ActionSubmit:
			if h.handleSubmit(conn, wsLog, sessionID, claims.UserID, &msg) {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "graded"),
					time.Now().Add(time.Second))
				return
			}
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, userID int, msg *ws.RequestPayload) {
	qid, err := uuid.Parse(msg.QID)
	if err != nil || msg.Answer == "" {
		ws.WriteError(conn, string(response.ErrValidation), "q_id must be a UUID and ans is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()

	res, err := h.sessionService.SaveAnswer(ctx, sessionID, userID, model.SaveAnswerRequest{QuestionID: qid, Answer: msg.Answer})
	if err != nil {
		h.writeServiceError(conn, wsLog, err)
		return
	}
	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Data: res})
}

func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, userID int, msg *ws.RequestPayload) {
	req := model.LogViolationRequest{Type: msg.Type, Timestamp: msg.Timestamp}
	if fields := validator.Struct(&req); fields != nil {
		ws.WriteError(conn, string(response.ErrValidation), firstFieldError(fields))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()

	if !h.violationLimiter.Check(ctx, userID) {
		ws.WriteError(conn, string(response.ErrRateLimitExceeded), response.GetMessage(response.ErrRateLimitExceeded))
		return
	}

	res, err := h.sessionService.LogViolation(ctx, sessionID, userID, req)
	if err != nil {
		h.writeServiceError(conn, wsLog, err)
		return
	}
	ws.WriteTyped(conn, ws.ViolationResponse{Event: ws.EventViolation, Data: res})
}

// handleSubmit reports whether the session was graded.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, userID int, msg *ws.RequestPayload) bool {
	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()

	res, err := h.gradingService.Submit(ctx, sessionID, userID, msg.Answers)
	if err != nil {
		h.writeServiceError(conn, wsLog, err)
		return false
	}
	ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Data: res})
	return true
}

func (h *WSHandler) writeServiceError(conn *websocket.Conn, wsLog zerolog.Logger, err error) {
	status, code := classify(err)
	msg := response.GetMessage(code)
	if status == http.StatusInternalServerError {
		wsLog.Error().Err(err).Msg("WebSocket operation failed")
	}
	ws.WriteError(conn, string(code), msg)
}

// firstFieldError picks a stable message out of a field error map.
func firstFieldError(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fields[keys[0]]
}
