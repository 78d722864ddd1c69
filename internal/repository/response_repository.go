package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// ResponseRepository handles the append-only response log.
type ResponseRepository struct {
	db DBTX
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(db DBTX) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Create appends a response. Answering the same question twice in a session
// returns ErrDuplicate.
func (r *ResponseRepository) Create(ctx context.Context, resp *model.Response) error {
	hints := resp.HintsUsed
	if len(hints) == 0 {
		hints = []byte("{}")
	}
	return translate(r.db.QueryRow(ctx,
		`INSERT INTO responses (session_id, question_id, is_correct, time_spent_ms, hints_used)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		resp.SessionID, resp.QuestionID, resp.IsCorrect, resp.TimeSpentMs, hints,
	).Scan(&resp.ID, &resp.CreatedAt))
}

// ListForSession returns every response of a session joined with the
// calibration and skill of its question, oldest first.
func (r *ResponseRepository) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]model.ScoredResponse, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.session_id, r.question_id, r.is_correct, r.time_spent_ms, r.hints_used, r.created_at,
		        q.skill_id, q.irt_difficulty, q.irt_discrimination
		 FROM responses r
		 JOIN questions q ON q.id = r.question_id
		 WHERE r.session_id = $1
		 ORDER BY r.created_at, r.id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScoredResponse
	for rows.Next() {
		var s model.ScoredResponse
		if err := rows.Scan(
			&s.ID, &s.SessionID, &s.QuestionID, &s.IsCorrect, &s.TimeSpentMs, &s.HintsUsed, &s.CreatedAt,
			&s.SkillID, &s.Difficulty, &s.Discrimination,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
