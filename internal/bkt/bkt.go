// Package bkt implements Bayesian Knowledge Tracing: a two-state
// (learned / not learned) filter that turns a prior mastery probability and
// one observed outcome into a posterior mastery probability.
package bkt

import (
	"math"
	"time"
)

// DefaultPrior is the mastery assigned to a skill the first time it is seen.
const DefaultPrior = 0.10

// Params are the fixed BKT model parameters.
type Params struct {
	Learn float64 // T: probability of learning after an opportunity
	Guess float64 // G: probability of a correct answer without mastery
	Slip  float64 // S: probability of a wrong answer despite mastery
	Prior float64 // L0
}

// DefaultParams is the conservative configuration used by the engine.
var DefaultParams = Params{Learn: 0.10, Guess: 0.25, Slip: 0.10, Prior: DefaultPrior}

// Tracker applies BKT updates with a fixed parameter set. The zero value is
// not useful; use NewTracker or DefaultTracker.
type Tracker struct {
	params Params
}

// NewTracker creates a Tracker for the given parameters.
func NewTracker(p Params) Tracker {
	return Tracker{params: p}
}

// DefaultTracker uses DefaultParams.
var DefaultTracker = NewTracker(DefaultParams)

// Params returns the tracker's parameters.
func (t Tracker) Params() Params {
	return t.params
}

// Update returns the posterior mastery after observing one response, with the
// learning transition applied. The result is clamped to [0, 1].
func (t Tracker) Update(current float64, correct bool) float64 {
	p := t.params

	pCorrect := current*(1-p.Slip) + (1-current)*p.Guess

	var posterior float64
	if correct {
		posterior = current * (1 - p.Slip) / pCorrect
	} else {
		posterior = current * p.Slip / (1 - pCorrect)
	}

	next := posterior + (1-posterior)*p.Learn
	return math.Max(0, math.Min(1, next))
}

// Update applies DefaultTracker.
func Update(current float64, correct bool) float64 {
	return DefaultTracker.Update(current, correct)
}

// NextReview schedules the next review of a skill from its mastery: weak
// skills come back the next day, near-mastered ones after two weeks.
func NextReview(now time.Time, mastery float64) time.Time {
	day := 24 * time.Hour
	switch {
	case mastery < 0.4:
		return now.Add(day)
	case mastery < 0.7:
		return now.Add(3 * day)
	case mastery < 0.95:
		return now.Add(7 * day)
	default:
		return now.Add(14 * day)
	}
}
