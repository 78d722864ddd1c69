package service

import (
	"errors"
	"fmt"
)

// Error classes. Every domain error below wraps exactly one of them so
// callers can branch with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrForbidden          = errors.New("forbidden")
)

// Domain Errors
var (
	ErrAssessmentNotFound      = fmt.Errorf("assessment %w", ErrNotFound)
	ErrSessionNotFound         = fmt.Errorf("session %w", ErrNotFound)
	ErrQuestionNotFound        = fmt.Errorf("question %w", ErrNotFound)
	ErrSessionCompleted        = fmt.Errorf("%w: session already completed", ErrPreconditionFailed)
	ErrQuestionNotInPool       = fmt.Errorf("%w: question does not belong to the assessment", ErrPreconditionFailed)
	ErrQuestionAlreadyAnswered = fmt.Errorf("%w: question already answered in this session", ErrPreconditionFailed)
	ErrSessionBusy             = fmt.Errorf("%w: session is processing another answer", ErrPreconditionFailed)
	ErrNotSessionOwner         = fmt.Errorf("%w: session belongs to another test-taker", ErrForbidden)
)
