package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the externally visible state of an assessment session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// AssessmentSession is one test-taking episode. CurrentTheta is rewritten
// after every answer; IsCompleted and EndTime are set once on termination.
type AssessmentSession struct {
	ID           uuid.UUID  `json:"id"`
	TestTakerID  int        `json:"test_taker_id"`
	AssessmentID uuid.UUID  `json:"assessment_id"`
	CurrentTheta float64    `json:"current_theta"`
	IsCompleted  bool       `json:"is_completed"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// Status derives the session state from the completion flag.
func (s *AssessmentSession) Status() SessionStatus {
	if s.IsCompleted {
		return SessionStatusCompleted
	}
	return SessionStatusActive
}

// StartSessionRequest is the payload for starting or resuming a session.
type StartSessionRequest struct {
	AssessmentID string `json:"assessment_id" binding:"required,uuid"`
}
