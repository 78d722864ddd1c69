package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrLockTimeout is returned when a row lock is not granted within the
	// connection's lock_timeout.
	ErrLockTimeout = errors.New("lock timeout")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// can run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups the repositories bound to one DBTX.
type Repositories struct {
	Assessments *AssessmentRepository
	Skills      *SkillRepository
	Questions   *QuestionRepository
	Sessions    *AssessmentSessionRepository
	Responses   *ResponseRepository
	Mastery     *MasteryRepository
}

// NewRepositories binds every repository to db.
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Assessments: NewAssessmentRepository(db),
		Skills:      NewSkillRepository(db),
		Questions:   NewQuestionRepository(db),
		Sessions:    NewAssessmentSessionRepository(db),
		Responses:   NewResponseRepository(db),
		Mastery:     NewMasteryRepository(db),
	}
}

// Store owns the pool and hands out pool-bound or transaction-bound
// repositories.
type Store struct {
	pool *pgxpool.Pool
	*Repositories
}

// NewStore creates a Store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, Repositories: NewRepositories(pool)}
}

// WithTx runs fn in a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(r *Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "55P03":
			return ErrLockTimeout
		}
	}
	return err
}
