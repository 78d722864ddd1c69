// Package cat selects the next item of a computerized adaptive test by
// maximizing Fisher information at the current ability estimate.
package cat

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/irt"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// Pool returns the questions of an assessment that are not in exclude.
type Pool interface {
	FindCandidates(ctx context.Context, assessmentID uuid.UUID, exclude []uuid.UUID) ([]model.Question, error)
}

// Selector picks the most informative unanswered question.
type Selector struct {
	pool Pool
}

// NewSelector creates a Selector backed by the given pool.
func NewSelector(pool Pool) *Selector {
	return &Selector{pool: pool}
}

// Next returns the candidate with the greatest information at theta, or
// nil when every question of the assessment has been answered.
func (s *Selector) Next(ctx context.Context, assessmentID uuid.UUID, theta float64, answered []uuid.UUID) (*model.Question, error) {
	candidates, err := s.pool.FindCandidates(ctx, assessmentID, answered)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	return Best(candidates, theta, answered), nil
}

// Best scans candidates in question-id order and returns the first one with
// strictly maximal information. Candidates listed in exclude are skipped.
func Best(candidates []model.Question, theta float64, exclude []uuid.UUID) *model.Question {
	if len(candidates) == 0 {
		return nil
	}

	skip := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	ordered := slices.Clone(candidates)
	slices.SortStableFunc(ordered, func(a, b model.Question) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	var best *model.Question
	maxInfo := -1.0
	for i := range ordered {
		q := &ordered[i]
		if _, done := skip[q.ID]; done {
			continue
		}
		info := irt.Information(theta, q.Difficulty, q.Discrimination)
		if info > maxInfo {
			maxInfo = info
			best = q
		}
	}
	return best
}
