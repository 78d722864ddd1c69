package model

import (
	"time"

	"github.com/google/uuid"
)

// Assessment owns a pool of calibrated questions.
type Assessment struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	IsAdaptive bool      `json:"is_adaptive"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateAssessmentRequest is the payload for creating an assessment.
type CreateAssessmentRequest struct {
	Name       string `json:"name" binding:"required,min=3,max=255"`
	IsAdaptive *bool  `json:"is_adaptive" binding:"omitempty"`
}
