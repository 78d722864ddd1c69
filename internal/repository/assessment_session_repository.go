package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

const sessionColumns = `id, test_taker_id, assessment_id, current_theta, is_completed, start_time, end_time`

// AssessmentSessionRepository handles assessment session data access.
type AssessmentSessionRepository struct {
	db DBTX
}

// NewAssessmentSessionRepository creates a new AssessmentSessionRepository.
func NewAssessmentSessionRepository(db DBTX) *AssessmentSessionRepository {
	return &AssessmentSessionRepository{db: db}
}

// GetByID retrieves a session by id.
func (r *AssessmentSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error) {
	return r.scanOne(ctx, `SELECT `+sessionColumns+` FROM assessment_sessions WHERE id = $1`, id)
}

// GetForUpdate retrieves a session and locks its row until the surrounding
// transaction ends, serializing concurrent submissions to the same session.
func (r *AssessmentSessionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error) {
	return r.scanOne(ctx, `SELECT `+sessionColumns+` FROM assessment_sessions WHERE id = $1 FOR UPDATE`, id)
}

// FindActive retrieves the incomplete session of a test-taker for an assessment.
func (r *AssessmentSessionRepository) FindActive(ctx context.Context, testTakerID int, assessmentID uuid.UUID) (*model.AssessmentSession, error) {
	return r.scanOne(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE test_taker_id = $1 AND assessment_id = $2 AND NOT is_completed
		 ORDER BY start_time DESC
		 LIMIT 1`, testTakerID, assessmentID)
}

// Create inserts a new active session with theta 0. If a concurrent start
// already created the active session, ErrNotFound is returned and the caller
// should re-read it with FindActive.
func (r *AssessmentSessionRepository) Create(ctx context.Context, s *model.AssessmentSession) error {
	return translate(r.db.QueryRow(ctx,
		`INSERT INTO assessment_sessions (test_taker_id, assessment_id, current_theta)
		 VALUES ($1, $2, 0)
		 ON CONFLICT (test_taker_id, assessment_id) WHERE NOT is_completed DO NOTHING
		 RETURNING id, current_theta, is_completed, start_time`,
		s.TestTakerID, s.AssessmentID,
	).Scan(&s.ID, &s.CurrentTheta, &s.IsCompleted, &s.StartTime))
}

// UpdateTheta stores a new ability estimate.
func (r *AssessmentSessionRepository) UpdateTheta(ctx context.Context, id uuid.UUID, theta float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE assessment_sessions SET current_theta = $1 WHERE id = $2`, theta, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete marks a session as completed.
func (r *AssessmentSessionRepository) Complete(ctx context.Context, id uuid.UUID, endTime time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE assessment_sessions
		 SET is_completed = TRUE, end_time = $1
		 WHERE id = $2 AND NOT is_completed`, endTime, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AssessmentSessionRepository) scanOne(ctx context.Context, sql string, args ...any) (*model.AssessmentSession, error) {
	s := &model.AssessmentSession{}
	err := r.db.QueryRow(ctx, sql, args...).Scan(
		&s.ID, &s.TestTakerID, &s.AssessmentID, &s.CurrentTheta, &s.IsCompleted, &s.StartTime, &s.EndTime,
	)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}
