package cat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPool struct {
	questions []model.Question
	err       error
	gotExcl   []uuid.UUID
}

func (p *stubPool) FindCandidates(_ context.Context, _ uuid.UUID, exclude []uuid.UUID) ([]model.Question, error) {
	p.gotExcl = exclude
	if p.err != nil {
		return nil, p.err
	}
	skip := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var out []model.Question
	for _, q := range p.questions {
		if !skip[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func item(id string, b, a float64) model.Question {
	return model.Question{ID: uuid.MustParse(id), Difficulty: b, Discrimination: a}
}

func TestSelector_PicksClosestDifficulty(t *testing.T) {
	pool := &stubPool{questions: []model.Question{
		item("00000000-0000-0000-0000-000000000001", -2, 1),
		item("00000000-0000-0000-0000-000000000002", 0.4, 1),
		item("00000000-0000-0000-0000-000000000003", 2, 1),
	}}
	sel := NewSelector(pool)

	q, err := sel.Next(context.Background(), uuid.New(), 0.5, nil)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, pool.questions[1].ID, q.ID)

	q, err = sel.Next(context.Background(), uuid.New(), -1.8, nil)
	require.NoError(t, err)
	assert.Equal(t, pool.questions[0].ID, q.ID)
}

func TestSelector_WeighsDiscrimination(t *testing.T) {
	pool := &stubPool{questions: []model.Question{
		item("00000000-0000-0000-0000-000000000001", 0, 0.5),
		item("00000000-0000-0000-0000-000000000002", 0.3, 2.0),
	}}
	q, err := NewSelector(pool).Next(context.Background(), uuid.New(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, pool.questions[1].ID, q.ID)
}

func TestSelector_ExcludesAnswered(t *testing.T) {
	best := item("00000000-0000-0000-0000-000000000001", 0, 1)
	other := item("00000000-0000-0000-0000-000000000002", 1, 1)
	pool := &stubPool{questions: []model.Question{best, other}}

	q, err := NewSelector(pool).Next(context.Background(), uuid.New(), 0, []uuid.UUID{best.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, q.ID)
	assert.Equal(t, []uuid.UUID{best.ID}, pool.gotExcl)
}

func TestSelector_NoneWhenExhausted(t *testing.T) {
	only := item("00000000-0000-0000-0000-000000000001", 0, 1)
	pool := &stubPool{questions: []model.Question{only}}

	q, err := NewSelector(pool).Next(context.Background(), uuid.New(), 0, []uuid.UUID{only.ID})
	require.NoError(t, err)
	assert.Nil(t, q)

	q, err = NewSelector(&stubPool{}).Next(context.Background(), uuid.New(), 0, nil)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestSelector_PoolError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewSelector(&stubPool{err: boom}).Next(context.Background(), uuid.New(), 0, nil)
	assert.ErrorIs(t, err, boom)
}

func TestBest_TieBreaksByQuestionID(t *testing.T) {
	low := item("00000000-0000-0000-0000-00000000000a", 0.5, 1.2)
	high := item("00000000-0000-0000-0000-00000000000b", 0.5, 1.2)

	got := Best([]model.Question{high, low}, 0, nil)
	require.NotNil(t, got)
	assert.Equal(t, low.ID, got.ID)

	got = Best([]model.Question{low, high}, 0, nil)
	assert.Equal(t, low.ID, got.ID)
}

func TestBest_SkipsExcludedEvenIfReturned(t *testing.T) {
	a := item("00000000-0000-0000-0000-000000000001", 0, 1)
	b := item("00000000-0000-0000-0000-000000000002", 2, 1)
	got := Best([]model.Question{a, b}, 0, []uuid.UUID{a.ID})
	assert.Equal(t, b.ID, got.ID)
	assert.Nil(t, Best([]model.Question{a}, 0, []uuid.UUID{a.ID}))
}
