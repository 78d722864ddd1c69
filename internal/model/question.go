package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question is an immutable calibrated item. Difficulty (b) and
// Discrimination (a) are the 2PL calibration parameters.
type Question struct {
	ID             uuid.UUID       `json:"id"`
	SkillID        uuid.UUID       `json:"skill_id"`
	Content        string          `json:"content"`
	Options        json.RawMessage `json:"options"`
	CorrectAnswer  string          `json:"correct_answer"`
	Difficulty     float64         `json:"difficulty"`
	Discrimination float64         `json:"discrimination"`
}

// QuestionForTestTaker is a question without the correct answer or
// calibration, sent to test-takers.
type QuestionForTestTaker struct {
	ID      uuid.UUID       `json:"id"`
	SkillID uuid.UUID       `json:"skill_id"`
	Content string          `json:"content"`
	Options json.RawMessage `json:"options"`
}

// ForTestTaker strips the answer key. Returns nil for a nil question.
func (q *Question) ForTestTaker() *QuestionForTestTaker {
	if q == nil {
		return nil
	}
	return &QuestionForTestTaker{
		ID:      q.ID,
		SkillID: q.SkillID,
		Content: q.Content,
		Options: q.Options,
	}
}

// QuestionImport is one calibrated item in an item bank import file.
type QuestionImport struct {
	Skill          string          `json:"skill" binding:"required,nonblank,max=255"`
	Content        string          `json:"content" binding:"required,nonblank,max=4000"`
	Options        json.RawMessage `json:"options" binding:"required"`
	CorrectAnswer  string          `json:"correct_answer" binding:"required,nonblank,max=255"`
	Difficulty     float64         `json:"difficulty" binding:"gte=-6,lte=6"`
	Discrimination float64         `json:"discrimination" binding:"gt=0,lte=4"`
}

// ItemBankImport is the payload accepted by the seed-bank tool.
type ItemBankImport struct {
	Assessment CreateAssessmentRequest `json:"assessment"`
	Questions  []QuestionImport        `json:"questions" binding:"required,min=1,dive"`
}
