package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// MasteryRepository handles per-skill mastery records.
type MasteryRepository struct {
	db DBTX
}

// NewMasteryRepository creates a new MasteryRepository.
func NewMasteryRepository(db DBTX) *MasteryRepository {
	return &MasteryRepository{db: db}
}

// Get retrieves the mastery record of a test-taker on a skill.
func (r *MasteryRepository) Get(ctx context.Context, testTakerID int, skillID uuid.UUID) (*model.SkillMastery, error) {
	m := &model.SkillMastery{}
	err := r.db.QueryRow(ctx,
		`SELECT test_taker_id, skill_id, mastery_probability, next_review, updated_at
		 FROM skill_mastery
		 WHERE test_taker_id = $1 AND skill_id = $2`, testTakerID, skillID,
	).Scan(&m.TestTakerID, &m.SkillID, &m.MasteryProbability, &m.NextReview, &m.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// Upsert creates or replaces a mastery record.
func (r *MasteryRepository) Upsert(ctx context.Context, m *model.SkillMastery) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO skill_mastery (test_taker_id, skill_id, mastery_probability, next_review)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (test_taker_id, skill_id) DO UPDATE
		 SET mastery_probability = EXCLUDED.mastery_probability,
		     next_review = EXCLUDED.next_review,
		     updated_at = NOW()
		 RETURNING updated_at`,
		m.TestTakerID, m.SkillID, m.MasteryProbability, m.NextReview,
	).Scan(&m.UpdatedAt)
}

// ListByTestTaker returns all mastery records of a test-taker, soonest review first.
func (r *MasteryRepository) ListByTestTaker(ctx context.Context, testTakerID int) ([]model.SkillMastery, error) {
	rows, err := r.db.Query(ctx,
		`SELECT test_taker_id, skill_id, mastery_probability, next_review, updated_at
		 FROM skill_mastery
		 WHERE test_taker_id = $1
		 ORDER BY next_review`, testTakerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SkillMastery
	for rows.Next() {
		var m model.SkillMastery
		if err := rows.Scan(&m.TestTakerID, &m.SkillID, &m.MasteryProbability, &m.NextReview, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
