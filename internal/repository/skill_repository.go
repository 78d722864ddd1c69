package repository

import (
	"context"

	"github.com/stemsi/exstem-adaptive/internal/model"
)

// SkillRepository handles skill data access.
type SkillRepository struct {
	db DBTX
}

// NewSkillRepository creates a new SkillRepository.
func NewSkillRepository(db DBTX) *SkillRepository {
	return &SkillRepository{db: db}
}

// Upsert inserts a skill by name, or returns the existing one.
func (r *SkillRepository) Upsert(ctx context.Context, s *model.Skill) error {
	return translate(r.db.QueryRow(ctx,
		`INSERT INTO skills (name, description)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, created_at`,
		s.Name, s.Description,
	).Scan(&s.ID, &s.CreatedAt))
}
