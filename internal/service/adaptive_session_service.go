package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/bkt"
	"github.com/stemsi/exstem-adaptive/internal/cat"
	"github.com/stemsi/exstem-adaptive/internal/irt"
	"github.com/stemsi/exstem-adaptive/internal/metrics"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
)

// CompletionReason names the stopping rule that ended a session.
type CompletionReason string

const (
	CompletionMaxQuestions  CompletionReason = "max_questions"
	CompletionPoolExhausted CompletionReason = "pool_exhausted"
)

// SessionOptions tunes the stopping rule and the mastery prior.
type SessionOptions struct {
	MaxQuestions   int
	DefaultMastery float64
}

// DefaultSessionOptions matches the engine's documented behavior.
var DefaultSessionOptions = SessionOptions{MaxQuestions: 10, DefaultMastery: bkt.DefaultPrior}

// StartResult is returned when a session is started or resumed.
type StartResult struct {
	Session          *model.AssessmentSession    `json:"session"`
	Question         *model.QuestionForTestTaker `json:"question,omitempty"`
	Resumed          bool                        `json:"resumed"`
	AnsweredCount    int                         `json:"answered_count"`
	Completed        bool                        `json:"completed"`
	CompletionReason CompletionReason            `json:"completion_reason,omitempty"`

	// completedHere is set when this call wrote the completion.
	completedHere bool
}

// SubmitAnswerInput carries one answer. TestTakerID, when non-zero, must own
// the session.
type SubmitAnswerInput struct {
	SessionID    uuid.UUID
	QuestionID   uuid.UUID
	ChosenOption string
	TimeSpentMs  int
	HintsUsed    json.RawMessage
	TestTakerID  int
}

// SubmitResult reports the outcome of one answer.
type SubmitResult struct {
	SessionID        uuid.UUID                   `json:"session_id"`
	Correct          bool                        `json:"correct"`
	Theta            float64                     `json:"theta"`
	StandardError    *float64                    `json:"standard_error,omitempty"`
	EstimateStatus   irt.Outcome                 `json:"estimate_status"`
	SkillID          uuid.UUID                   `json:"skill_id"`
	Mastery          float64                     `json:"mastery"`
	AnsweredCount    int                         `json:"answered_count"`
	Completed        bool                        `json:"completed"`
	CompletionReason CompletionReason            `json:"completion_reason,omitempty"`
	NextQuestion     *model.QuestionForTestTaker `json:"next_question,omitempty"`

	completedHere bool
}

// SessionState is a read-only view of a session.
type SessionState struct {
	Session       *model.AssessmentSession `json:"session"`
	Status        model.SessionStatus      `json:"status"`
	AnsweredCount int                      `json:"answered_count"`
}

// AdaptiveSessionService drives a session through start → answer →
// (next question | completed).
type AdaptiveSessionService struct {
	uow      UnitOfWork
	selector *cat.Selector
	tracker  bkt.Tracker
	stats    ItemStatsRecorder
	opts     SessionOptions
	log      zerolog.Logger
	now      func() time.Time
}

// NewAdaptiveSessionService creates a new AdaptiveSessionService. stats may
// be nil.
func NewAdaptiveSessionService(
	uow UnitOfWork,
	selector *cat.Selector,
	stats ItemStatsRecorder,
	opts SessionOptions,
	log zerolog.Logger,
) *AdaptiveSessionService {
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = DefaultSessionOptions.MaxQuestions
	}
	if opts.DefaultMastery < 0 || opts.DefaultMastery > 1 {
		opts.DefaultMastery = DefaultSessionOptions.DefaultMastery
	}
	return &AdaptiveSessionService{
		uow:      uow,
		selector: selector,
		tracker:  bkt.DefaultTracker,
		stats:    stats,
		opts:     opts,
		log:      log.With().Str("component", "adaptive_session_service").Logger(),
		now:      time.Now,
	}
}

// StartSession resumes the test-taker's active session for the assessment, or
// creates a new one with theta 0, and selects the next question.
func (s *AdaptiveSessionService) StartSession(ctx context.Context, testTakerID int, assessmentID uuid.UUID) (*StartResult, error) {
	if _, err := s.uow.Stores().Assessments.GetByID(ctx, assessmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}

	var result *StartResult
	err := s.uow.Do(ctx, func(tx Stores) error {
		sess, err := tx.Sessions.FindActive(ctx, testTakerID, assessmentID)
		if err == nil {
			result, err = s.resume(ctx, tx, sess)
			return err
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find active session: %w", err)
		}

		sess = &model.AssessmentSession{TestTakerID: testTakerID, AssessmentID: assessmentID}
		if err := tx.Sessions.Create(ctx, sess); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("create session: %w", err)
			}
			// A concurrent start created the active session first.
			existing, fetchErr := tx.Sessions.FindActive(ctx, testTakerID, assessmentID)
			if fetchErr != nil {
				return fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			result, err = s.resume(ctx, tx, existing)
			return err
		}

		next, err := s.selector.Next(ctx, assessmentID, sess.CurrentTheta, nil)
		if err != nil {
			return fmt.Errorf("select first question: %w", err)
		}
		result = &StartResult{Session: sess}
		if next == nil {
			return s.complete(ctx, tx, sess, CompletionPoolExhausted, func(r CompletionReason, wrote bool) {
				result.Completed, result.CompletionReason, result.completedHere = true, r, wrote
			})
		}
		result.Question = next.ForTestTaker()
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionsStarted.WithLabelValues(metrics.BoolLabel(result.Resumed)).Inc()
	if result.completedHere {
		metrics.SessionsCompleted.WithLabelValues(string(result.CompletionReason)).Inc()
	}
	s.log.Info().
		Str("session_id", result.Session.ID.String()).
		Str("assessment_id", assessmentID.String()).
		Int("test_taker_id", testTakerID).
		Bool("resumed", result.Resumed).
		Bool("completed", result.Completed).
		Msg("Session started")

	return result, nil
}

// resume locks the session found by FindActive and continues it. A session
// completed by a concurrent request in the meantime is reported as completed.
func (s *AdaptiveSessionService) resume(ctx context.Context, tx Stores, found *model.AssessmentSession) (*StartResult, error) {
	sess, err := tx.Sessions.GetForUpdate(ctx, found.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrSessionNotFound
		case errors.Is(err, repository.ErrLockTimeout):
			return nil, ErrSessionBusy
		}
		return nil, fmt.Errorf("lock session: %w", err)
	}

	history, err := tx.Responses.ListForSession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	answered := answeredIDs(history)

	result := &StartResult{Session: sess, Resumed: true, AnsweredCount: len(answered)}
	markDone := func(r CompletionReason, wrote bool) {
		result.Completed, result.CompletionReason, result.completedHere = true, r, wrote
	}

	if sess.IsCompleted {
		markDone(s.reasonFor(len(answered)), false)
		return result, nil
	}

	if len(answered) >= s.opts.MaxQuestions {
		return result, s.complete(ctx, tx, sess, CompletionMaxQuestions, markDone)
	}

	next, err := s.selector.Next(ctx, sess.AssessmentID, sess.CurrentTheta, answered)
	if err != nil {
		return nil, fmt.Errorf("select next question: %w", err)
	}
	if next == nil {
		return result, s.complete(ctx, tx, sess, CompletionPoolExhausted, markDone)
	}
	result.Question = next.ForTestTaker()
	return result, nil
}

// SubmitAnswer records one answer, re-estimates theta from the whole history,
// updates skill mastery and applies the stopping rule. All writes commit
// together; the session row stays locked for the duration.
func (s *AdaptiveSessionService) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (*SubmitResult, error) {
	var (
		result   *SubmitResult
		estimate irt.Estimate
		question *model.Question
		response *model.Response
	)

	err := s.uow.Do(ctx, func(tx Stores) error {
		sess, err := tx.Sessions.GetForUpdate(ctx, in.SessionID)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return ErrSessionNotFound
			case errors.Is(err, repository.ErrLockTimeout):
				return ErrSessionBusy
			}
			return fmt.Errorf("get session: %w", err)
		}
		if in.TestTakerID != 0 && sess.TestTakerID != in.TestTakerID {
			return ErrNotSessionOwner
		}

		question, err = tx.Questions.FindByID(ctx, in.QuestionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("get question: %w", err)
		}

		if sess.IsCompleted {
			return ErrSessionCompleted
		}

		inPool, err := tx.Questions.InAssessment(ctx, sess.AssessmentID, question.ID)
		if err != nil {
			return fmt.Errorf("check pool membership: %w", err)
		}
		if !inPool {
			return ErrQuestionNotInPool
		}

		history, err := tx.Responses.ListForSession(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("list responses: %w", err)
		}
		for _, h := range history {
			if h.QuestionID == question.ID {
				return ErrQuestionAlreadyAnswered
			}
		}

		// ─── Record the response ──────────────────────────────────────
		response = &model.Response{
			SessionID:   sess.ID,
			QuestionID:  question.ID,
			IsCorrect:   question.CorrectAnswer == in.ChosenOption,
			TimeSpentMs: in.TimeSpentMs,
			HintsUsed:   in.HintsUsed,
		}
		if err := tx.Responses.Create(ctx, response); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrQuestionAlreadyAnswered
			}
			return fmt.Errorf("create response: %w", err)
		}
		history = append(history, model.ScoredResponse{
			Response:       *response,
			SkillID:        question.SkillID,
			Difficulty:     question.Difficulty,
			Discrimination: question.Discrimination,
		})

		// ─── Re-estimate ability (IRT) ────────────────────────────────
		observations, err := toObservations(history)
		if err != nil {
			return err
		}
		estimate = irt.Run(observations)
		if err := tx.Sessions.UpdateTheta(ctx, sess.ID, estimate.Theta); err != nil {
			return fmt.Errorf("update theta: %w", err)
		}
		sess.CurrentTheta = estimate.Theta

		// ─── Update skill mastery (BKT) ───────────────────────────────
		mastery, err := s.updateMastery(ctx, tx, sess.TestTakerID, question.SkillID, response.IsCorrect)
		if err != nil {
			return err
		}

		result = &SubmitResult{
			SessionID:      sess.ID,
			Correct:        response.IsCorrect,
			Theta:          estimate.Theta,
			StandardError:  finite(irt.StandardError(estimate.Theta, observations)),
			EstimateStatus: estimate.Outcome,
			SkillID:        question.SkillID,
			Mastery:        mastery,
			AnsweredCount:  len(history),
		}
		markDone := func(r CompletionReason, wrote bool) {
			result.Completed, result.CompletionReason, result.completedHere = true, r, wrote
		}

		// ─── Stopping rule ────────────────────────────────────────────
		if len(history) >= s.opts.MaxQuestions {
			return s.complete(ctx, tx, sess, CompletionMaxQuestions, markDone)
		}

		next, err := s.selector.Next(ctx, sess.AssessmentID, estimate.Theta, answeredIDs(history))
		if err != nil {
			return fmt.Errorf("select next question: %w", err)
		}
		if next == nil {
			return s.complete(ctx, tx, sess, CompletionPoolExhausted, markDone)
		}
		result.NextQuestion = next.ForTestTaker()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observe(ctx, result, estimate, question, response)
	return result, nil
}

// updateMastery loads (or defaults) the mastery record, applies BKT and
// upserts it with a new review date.
func (s *AdaptiveSessionService) updateMastery(ctx context.Context, tx Stores, testTakerID int, skillID uuid.UUID, correct bool) (float64, error) {
	current := s.opts.DefaultMastery
	record, err := tx.Mastery.Get(ctx, testTakerID, skillID)
	switch {
	case err == nil:
		current = record.MasteryProbability
	case !errors.Is(err, repository.ErrNotFound):
		return 0, fmt.Errorf("get mastery: %w", err)
	}

	next := s.tracker.Update(current, correct)
	if err := tx.Mastery.Upsert(ctx, &model.SkillMastery{
		TestTakerID:        testTakerID,
		SkillID:            skillID,
		MasteryProbability: next,
		NextReview:         bkt.NextReview(s.now(), next),
	}); err != nil {
		return 0, fmt.Errorf("upsert mastery: %w", err)
	}
	return next, nil
}

// complete ends the session. The repository reports ErrNotFound when the
// row is already completed; the session is then reported as completed
// without a second write.
func (s *AdaptiveSessionService) complete(ctx context.Context, tx Stores, sess *model.AssessmentSession, reason CompletionReason, mark func(CompletionReason, bool)) error {
	end := s.now()
	err := tx.Sessions.Complete(ctx, sess.ID, end)
	switch {
	case err == nil:
		sess.IsCompleted = true
		sess.EndTime = &end
		mark(reason, true)
	case errors.Is(err, repository.ErrNotFound):
		sess.IsCompleted = true
		mark(reason, false)
	default:
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// reasonFor infers why an already completed session stopped.
func (s *AdaptiveSessionService) reasonFor(answered int) CompletionReason {
	if answered >= s.opts.MaxQuestions {
		return CompletionMaxQuestions
	}
	return CompletionPoolExhausted
}

// observe runs after commit: metrics, logs and the item statistics queue.
func (s *AdaptiveSessionService) observe(ctx context.Context, result *SubmitResult, est irt.Estimate, q *model.Question, resp *model.Response) {
	metrics.AnswersSubmitted.WithLabelValues(metrics.BoolLabel(result.Correct)).Inc()
	metrics.AbilityEstimates.WithLabelValues(string(est.Outcome)).Inc()
	metrics.EstimateIterations.Observe(float64(est.Iterations))
	if result.completedHere {
		metrics.SessionsCompleted.WithLabelValues(string(result.CompletionReason)).Inc()
	}

	sessLog := s.log.With().
		Str("session_id", result.SessionID.String()).
		Str("question_id", q.ID.String()).
		Logger()

	if est.Outcome == irt.OutcomeConvergenceSkipped {
		sessLog.Warn().
			Float64("theta", est.Theta).
			Int("iterations", est.Iterations).
			Msg("Ability estimate stopped on near-zero curvature")
	}

	sessLog.Info().
		Bool("correct", result.Correct).
		Float64("theta", result.Theta).
		Str("outcome", string(est.Outcome)).
		Float64("mastery", result.Mastery).
		Int("answered", result.AnsweredCount).
		Bool("completed", result.Completed).
		Msg("Answer recorded")

	if s.stats == nil {
		return
	}
	if err := s.stats.Record(ctx, ItemObservation{
		QuestionID:  q.ID,
		Correct:     resp.IsCorrect,
		TimeSpentMs: resp.TimeSpentMs,
	}); err != nil {
		sessLog.Warn().Err(err).Msg("Failed to queue item statistics")
	}
}

// GetSession returns a session with its answered count.
func (s *AdaptiveSessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*SessionState, error) {
	stores := s.uow.Stores()
	sess, err := stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	history, err := stores.Responses.ListForSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return &SessionState{Session: sess, Status: sess.Status(), AnsweredCount: len(history)}, nil
}

// ListMastery returns every mastery record of a test-taker.
func (s *AdaptiveSessionService) ListMastery(ctx context.Context, testTakerID int) ([]model.SkillMastery, error) {
	records, err := s.uow.Stores().Mastery.ListByTestTaker(ctx, testTakerID)
	if err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}
	if records == nil {
		records = []model.SkillMastery{}
	}
	return records, nil
}

func answeredIDs(history []model.ScoredResponse) []uuid.UUID {
	ids := make([]uuid.UUID, len(history))
	for i, h := range history {
		ids[i] = h.QuestionID
	}
	return ids
}

func toObservations(history []model.ScoredResponse) ([]irt.Observation, error) {
	obs := make([]irt.Observation, len(history))
	for i, h := range history {
		obs[i] = irt.Observation{
			Difficulty:     h.Difficulty,
			Discrimination: h.Discrimination,
			Correct:        h.IsCorrect,
		}
		if err := obs[i].Validate(); err != nil {
			return nil, fmt.Errorf("question %s calibration: %w", h.QuestionID, err)
		}
	}
	return obs, nil
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
