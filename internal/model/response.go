package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Response is an answered question. It is written once and never updated.
type Response struct {
	ID          uuid.UUID       `json:"id"`
	SessionID   uuid.UUID       `json:"session_id"`
	QuestionID  uuid.UUID       `json:"question_id"`
	IsCorrect   bool            `json:"is_correct"`
	TimeSpentMs int             `json:"time_spent_ms"`
	HintsUsed   json.RawMessage `json:"hints_used"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ScoredResponse is a response joined with the calibration of its question,
// as needed to re-estimate ability.
type ScoredResponse struct {
	Response
	SkillID        uuid.UUID `json:"skill_id"`
	Difficulty     float64   `json:"difficulty"`
	Discrimination float64   `json:"discrimination"`
}

// SubmitAnswerRequest is the payload for answering the current question.
type SubmitAnswerRequest struct {
	QuestionID   string          `json:"question_id" binding:"required,uuid"`
	ChosenOption string          `json:"chosen_option" binding:"required,nonblank,max=255"`
	TimeSpentMs  int             `json:"time_spent_ms" binding:"min=0"`
	HintsUsed    json.RawMessage `json:"hints_used" binding:"omitempty"`
}
