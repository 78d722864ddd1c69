package websocket

import (
	"encoding/json"

	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/response"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest submits one answer to the session the socket is bound to.
type AnswerRequest struct {
	Action       Action          `json:"action"`
	QuestionID   string          `json:"question_id"`
	ChosenOption string          `json:"chosen_option"`
	TimeSpentMs  int             `json:"time_spent_ms"`
	HintsUsed    json.RawMessage `json:"hints_used,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventResult    Event = "result"
	EventCompleted Event = "completed"
	EventPong      Event = "pong"
)

// ResultResponse carries the outcome of an answer and the next question.
type ResultResponse struct {
	Event         Event                       `json:"event"`
	Correct       bool                        `json:"correct"`
	Theta         float64                     `json:"theta"`
	StandardError *float64                    `json:"standard_error,omitempty"`
	Mastery       float64                     `json:"mastery"`
	AnsweredCount int                         `json:"answered_count"`
	NextQuestion  *model.QuestionForTestTaker `json:"next_question,omitempty"`
}

// CompletedResponse is sent once, after the answer that ended the session.
type CompletedResponse struct {
	Event         Event   `json:"event"`
	Correct       bool    `json:"correct"`
	Theta         float64 `json:"theta"`
	Mastery       float64 `json:"mastery"`
	AnsweredCount int     `json:"answered_count"`
	Reason        string  `json:"reason"`
}

type ErrorResponse struct {
	Event Event            `json:"event"`
	Code  response.ErrCode `json:"code"`
	Error string           `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
