package model

import (
	"time"

	"github.com/google/uuid"
)

// SkillMastery is the mastery probability of one test-taker on one skill.
type SkillMastery struct {
	TestTakerID        int       `json:"test_taker_id"`
	SkillID            uuid.UUID `json:"skill_id"`
	MasteryProbability float64   `json:"mastery_probability"`
	NextReview         time.Time `json:"next_review"`
	UpdatedAt          time.Time `json:"updated_at"`
}
