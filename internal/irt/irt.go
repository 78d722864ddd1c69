// Package irt implements the two-parameter logistic (2PL) item response model:
// probability of a correct answer, item information, and a maximum-likelihood
// ability estimate computed with Newton-Raphson.
package irt

import (
	"errors"
	"math"
)

const (
	MinTheta       = -4.0
	MaxTheta       = 4.0
	MaxIterations  = 20
	Tolerance      = 0.001
	CurvatureFloor = 1e-5
)

// Outcome describes how an ability estimate terminated.
type Outcome string

const (
	OutcomeConverged Outcome = "converged"
	// OutcomeConvergenceSkipped means the second derivative fell below
	// CurvatureFloor and the loop stopped with its best-effort theta.
	OutcomeConvergenceSkipped Outcome = "convergence_skipped"
	OutcomeIterationLimit     Outcome = "iteration_limit"
)

var (
	ErrInvalidDifficulty     = errors.New("difficulty must be a finite number")
	ErrInvalidDiscrimination = errors.New("discrimination must be a finite positive number")
)

// Observation is one scored response as seen by the estimator.
type Observation struct {
	Difficulty     float64 `json:"difficulty"`
	Discrimination float64 `json:"discrimination"`
	Correct        bool    `json:"is_correct"`
}

// Validate rejects calibration values the model is not defined for.
func (o Observation) Validate() error {
	if math.IsNaN(o.Difficulty) || math.IsInf(o.Difficulty, 0) {
		return ErrInvalidDifficulty
	}
	if math.IsNaN(o.Discrimination) || math.IsInf(o.Discrimination, 0) || o.Discrimination <= 0 {
		return ErrInvalidDiscrimination
	}
	return nil
}

// Estimate is the result of a maximum-likelihood ability estimation.
type Estimate struct {
	Theta      float64 `json:"theta"`
	Iterations int     `json:"iterations"`
	Outcome    Outcome `json:"outcome"`
}

// Probability returns P(correct | theta) = 1 / (1 + e^(-a(theta - b))).
func Probability(theta, difficulty, discrimination float64) float64 {
	return 1 / (1 + math.Exp(-discrimination*(theta-difficulty)))
}

// Information returns the Fisher information a²·P·(1-P) of an item at theta.
func Information(theta, difficulty, discrimination float64) float64 {
	p := Probability(theta, difficulty, discrimination)
	return discrimination * discrimination * p * (1 - p)
}

// EstimateAbility returns the maximum-likelihood theta for the given responses.
func EstimateAbility(responses []Observation) float64 {
	return Run(responses).Theta
}

// Run performs the Newton-Raphson iteration starting from theta = 0.
//
// Theta is clamped into [MinTheta, MaxTheta] after every step, before the
// convergence test. An empty history has zero curvature and yields theta = 0
// with OutcomeConvergenceSkipped.
func Run(responses []Observation) Estimate {
	theta := 0.0

	for i := 0; i < MaxIterations; i++ {
		var first, second float64

		for _, r := range responses {
			a := r.Discrimination
			p := Probability(theta, r.Difficulty, a)
			y := 0.0
			if r.Correct {
				y = 1
			}
			first += a * (y - p)
			second -= a * a * p * (1 - p)
		}

		if math.Abs(second) < CurvatureFloor {
			return Estimate{Theta: theta, Iterations: i, Outcome: OutcomeConvergenceSkipped}
		}

		step := first / second
		theta = clamp(theta - step)

		if math.Abs(step) < Tolerance {
			return Estimate{Theta: theta, Iterations: i + 1, Outcome: OutcomeConverged}
		}
	}

	return Estimate{Theta: theta, Iterations: MaxIterations, Outcome: OutcomeIterationLimit}
}

// StandardError returns 1/sqrt(test information) at theta, or +Inf when the
// responses carry no information.
func StandardError(theta float64, responses []Observation) float64 {
	var info float64
	for _, r := range responses {
		info += Information(theta, r.Difficulty, r.Discrimination)
	}
	if info <= 0 {
		return math.Inf(1)
	}
	return 1 / math.Sqrt(info)
}

func clamp(theta float64) float64 {
	return math.Max(MinTheta, math.Min(MaxTheta, theta))
}
