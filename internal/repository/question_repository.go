package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

const questionColumns = `q.id, q.skill_id, q.content, q.options, q.correct_answer, q.irt_difficulty, q.irt_discrimination`

// QuestionRepository handles calibrated question data access.
type QuestionRepository struct {
	db DBTX
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(db DBTX) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// FindCandidates returns the questions of an assessment whose ids are not in
// exclude, ordered by id.
func (r *QuestionRepository) FindCandidates(ctx context.Context, assessmentID uuid.UUID, exclude []uuid.UUID) ([]model.Question, error) {
	if exclude == nil {
		// A NULL array would make the NOT ... ANY predicate NULL for every row.
		exclude = []uuid.UUID{}
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions q
		 JOIN assessment_questions aq ON aq.question_id = q.id
		 WHERE aq.assessment_id = $1 AND NOT (q.id = ANY($2::uuid[]))
		 ORDER BY q.id`, assessmentID, exclude,
	)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListByAssessment returns the full pool of an assessment, ordered by id.
func (r *QuestionRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	return r.FindCandidates(ctx, assessmentID, nil)
}

// FindByID retrieves a question by id.
func (r *QuestionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+questionColumns+` FROM questions q WHERE q.id = $1`, id)
	if err != nil {
		return nil, err
	}
	questions, err := collectQuestions(rows)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNotFound
	}
	return &questions[0], nil
}

// InAssessment reports whether the question belongs to the assessment's pool.
func (r *QuestionRepository) InAssessment(ctx context.Context, assessmentID, questionID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM assessment_questions
			WHERE assessment_id = $1 AND question_id = $2
		 )`, assessmentID, questionID,
	).Scan(&ok)
	return ok, err
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return translate(r.db.QueryRow(ctx,
		`INSERT INTO questions (skill_id, content, options, correct_answer, irt_difficulty, irt_discrimination)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		q.SkillID, q.Content, q.Options, q.CorrectAnswer, q.Difficulty, q.Discrimination,
	).Scan(&q.ID))
}

// AttachToAssessment adds a question to an assessment's pool (idempotent).
func (r *QuestionRepository) AttachToAssessment(ctx context.Context, assessmentID, questionID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO assessment_questions (assessment_id, question_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, assessmentID, questionID)
	return err
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.SkillID, &q.Content, &q.Options, &q.CorrectAnswer, &q.Difficulty, &q.Discrimination); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
