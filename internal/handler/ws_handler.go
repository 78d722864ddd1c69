package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/middleware"
	"github.com/stemsi/exstem-adaptive/internal/response"
	"github.com/stemsi/exstem-adaptive/internal/service"
	ws "github.com/stemsi/exstem-adaptive/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams one adaptive session over a WebSocket.
type WSHandler struct {
	sessions SessionCoordinator
	limiter  *middleware.RateLimiter
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. limiter is the submit limiter of the
// HTTP answers route; nil disables limiting.
func NewWSHandler(sessions SessionCoordinator, limiter *middleware.RateLimiter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		limiter:  limiter,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket; each "answer" action is answered with a "result"
// event, or "completed" once the session ends.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// SECURITY: only the owner may stream a session.
	state, err := h.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil || state.Session.TestTakerID != claims.UserID {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
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
		Int("test_taker_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Test-taker connected")

	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			ws.WriteError(conn, response.ErrInvalidPayload)
			continue
		}

		switch env.Action {
		case ws.ActionAnswer:
			var req ws.AnswerRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				ws.WriteError(conn, response.ErrInvalidPayload)
				continue
			}
			if done := h.handleAnswer(c.Request.Context(), conn, wsLog, sessionID, claims.UserID, &req); done {
				return
			}
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			ws.WriteError(conn, response.ErrInvalidPayload)
		}
	}
}

// handleAnswer submits one answer and reports whether the session ended.
func (h *WSHandler) handleAnswer(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, testTakerID int, req *ws.AnswerRequest) bool {
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil || strings.TrimSpace(req.ChosenOption) == "" || req.TimeSpentMs < 0 {
		ws.WriteError(conn, response.ErrValidation)
		return false
	}
	if !h.limiter.Allow(middleware.TestTakerKey(testTakerID)) {
		ws.WriteError(conn, response.ErrRateLimitExceeded)
		return false
	}

	result, err := h.sessions.SubmitAnswer(ctx, service.SubmitAnswerInput{
		SessionID:    sessionID,
		QuestionID:   questionID,
		ChosenOption: req.ChosenOption,
		TimeSpentMs:  req.TimeSpentMs,
		HintsUsed:    req.HintsUsed,
		TestTakerID:  testTakerID,
	})
	if err != nil {
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			wsLog.Error().Err(err).Msg("Submit answer failed")
		}
		ws.WriteError(conn, code)
		return false
	}

	if result.Completed {
		ws.WriteTyped(conn, ws.CompletedResponse{
			Event:         ws.EventCompleted,
			Correct:       result.Correct,
			Theta:         result.Theta,
			Mastery:       result.Mastery,
			AnsweredCount: result.AnsweredCount,
			Reason:        string(result.CompletionReason),
		})
		wsLog.Info().Float64("theta", result.Theta).Msg("Session completed over WebSocket")
		return true
	}

	ws.WriteTyped(conn, ws.ResultResponse{
		Event:         ws.EventResult,
		Correct:       result.Correct,
		Theta:         result.Theta,
		StandardError: result.StandardError,
		Mastery:       result.Mastery,
		AnsweredCount: result.AnsweredCount,
		NextQuestion:  result.NextQuestion,
	})
	return false
}
