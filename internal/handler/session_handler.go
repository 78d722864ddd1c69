package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/middleware"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/response"
	"github.com/stemsi/exstem-adaptive/internal/service"
	"github.com/stemsi/exstem-adaptive/internal/validator"
)

// SessionCoordinator is the part of the adaptive engine the transport uses.
type SessionCoordinator interface {
	StartSession(ctx context.Context, testTakerID int, assessmentID uuid.UUID) (*service.StartResult, error)
	SubmitAnswer(ctx context.Context, in service.SubmitAnswerInput) (*service.SubmitResult, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*service.SessionState, error)
	ListMastery(ctx context.Context, testTakerID int) ([]model.SkillMastery, error)
}

// SessionHandler handles the adaptive session endpoints.
type SessionHandler struct {
	sessions SessionCoordinator
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionCoordinator, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/sessions
// Starts a session for the assessment, or resumes the caller's active one.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	assessmentID, _ := uuid.Parse(req.AssessmentID)

	result, err := h.sessions.StartSession(c.Request.Context(), claims.UserID, assessmentID)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
// Returns the session state so a client can recover after a reload.
func (h *SessionHandler) GetSession(c *gin.Context) {
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

	state, err := h.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	// Foreign sessions look missing.
	if state.Session.TestTakerID != claims.UserID {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:session_id/answers
// Records an answer and returns the updated estimate plus the next question.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
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

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, _ := uuid.Parse(req.QuestionID)

	result, err := h.sessions.SubmitAnswer(c.Request.Context(), service.SubmitAnswerInput{
		SessionID:    sessionID,
		QuestionID:   questionID,
		ChosenOption: req.ChosenOption,
		TimeSpentMs:  req.TimeSpentMs,
		HintsUsed:    req.HintsUsed,
		TestTakerID:  claims.UserID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ListMastery godoc
// GET /api/v1/mastery
// Returns every skill mastery record of the caller.
func (h *SessionHandler) ListMastery(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	records, err := h.sessions.ListMastery(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"mastery": records})
}

func (h *SessionHandler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.log.Error().
			Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}

// classify maps a coordinator error to an HTTP status and error code.
func classify(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrAssessmentNotFound):
		return http.StatusNotFound, response.ErrAssessmentNotFound
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, response.ErrSessionNotFound
	case errors.Is(err, service.ErrQuestionNotFound):
		return http.StatusNotFound, response.ErrQuestionNotFound
	case errors.Is(err, service.ErrSessionCompleted):
		return http.StatusConflict, response.ErrSessionCompleted
	case errors.Is(err, service.ErrQuestionNotInPool):
		return http.StatusConflict, response.ErrQuestionNotInPool
	case errors.Is(err, service.ErrQuestionAlreadyAnswered):
		return http.StatusConflict, response.ErrQuestionAlreadyAnswered
	case errors.Is(err, service.ErrSessionBusy):
		return http.StatusConflict, response.ErrSessionBusy
	case errors.Is(err, service.ErrNotSessionOwner):
		return http.StatusForbidden, response.ErrNotSessionOwner
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, response.ErrForbidden
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
