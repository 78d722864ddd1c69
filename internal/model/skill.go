package model

import (
	"time"

	"github.com/google/uuid"
)

// Skill is a unit of knowledge whose mastery is tracked per test-taker.
type Skill struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
