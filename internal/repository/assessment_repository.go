package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// AssessmentRepository handles assessment data access.
type AssessmentRepository struct {
	db DBTX
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(db DBTX) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// GetByID retrieves an assessment by id.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, is_adaptive, created_at
		 FROM assessments WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.IsAdaptive, &a.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

// Create inserts a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	return translate(r.db.QueryRow(ctx,
		`INSERT INTO assessments (name, is_adaptive)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		a.Name, a.IsAdaptive,
	).Scan(&a.ID, &a.CreatedAt))
}

// ListAdaptiveIDs returns the ids of all adaptive assessments.
func (r *AssessmentRepository) ListAdaptiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM assessments WHERE is_adaptive ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
