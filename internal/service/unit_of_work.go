package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
)

// AssessmentStore is the assessment lookup the coordinator needs.
type AssessmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
}

// QuestionStore resolves questions and pool membership.
type QuestionStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	InAssessment(ctx context.Context, assessmentID, questionID uuid.UUID) (bool, error)
}

// SessionStore persists assessment sessions.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error)
	FindActive(ctx context.Context, testTakerID int, assessmentID uuid.UUID) (*model.AssessmentSession, error)
	Create(ctx context.Context, s *model.AssessmentSession) error
	UpdateTheta(ctx context.Context, id uuid.UUID, theta float64) error
	Complete(ctx context.Context, id uuid.UUID, endTime time.Time) error
}

// ResponseStore is the append-only response log.
type ResponseStore interface {
	Create(ctx context.Context, r *model.Response) error
	ListForSession(ctx context.Context, sessionID uuid.UUID) ([]model.ScoredResponse, error)
}

// MasteryStore persists per-skill mastery.
type MasteryStore interface {
	Get(ctx context.Context, testTakerID int, skillID uuid.UUID) (*model.SkillMastery, error)
	Upsert(ctx context.Context, m *model.SkillMastery) error
	ListByTestTaker(ctx context.Context, testTakerID int) ([]model.SkillMastery, error)
}

// Stores is one consistent view over every store. Lookups that match
// nothing return repository.ErrNotFound.
type Stores struct {
	Assessments AssessmentStore
	Questions   QuestionStore
	Sessions    SessionStore
	Responses   ResponseStore
	Mastery     MasteryStore
}

// UnitOfWork runs a group of store operations with all-or-nothing commit.
type UnitOfWork interface {
	// Stores returns stores outside any transaction.
	Stores() Stores
	// Do runs fn in one transaction; an error from fn rolls everything back.
	Do(ctx context.Context, fn func(tx Stores) error) error
}

type pgUnitOfWork struct {
	store *repository.Store
}

// NewUnitOfWork adapts a PostgreSQL store to UnitOfWork.
func NewUnitOfWork(store *repository.Store) UnitOfWork {
	return &pgUnitOfWork{store: store}
}

func (u *pgUnitOfWork) Stores() Stores {
	return storesOf(u.store.Repositories)
}

func (u *pgUnitOfWork) Do(ctx context.Context, fn func(tx Stores) error) error {
	return u.store.WithTx(ctx, func(r *repository.Repositories) error {
		return fn(storesOf(r))
	})
}

func storesOf(r *repository.Repositories) Stores {
	return Stores{
		Assessments: r.Assessments,
		Questions:   r.Questions,
		Sessions:    r.Sessions,
		Responses:   r.Responses,
		Mastery:     r.Mastery,
	}
}
