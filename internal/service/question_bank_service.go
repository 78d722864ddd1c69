package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/metrics"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"golang.org/x/sync/singleflight"
)

// PoolLoader reads calibrated question pools from the system of record.
type PoolLoader interface {
	ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error)
}

// AdaptiveLister lists assessments whose pools are served adaptively.
type AdaptiveLister interface {
	ListAdaptiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// QuestionBankService serves assessment pools to the selector from Redis,
// falling back to PostgreSQL on a miss.
type QuestionBankService struct {
	loader      PoolLoader
	assessments AdaptiveLister
	rdb         *redis.Client
	ttl         time.Duration
	group       singleflight.Group
	log         zerolog.Logger
}

// NewQuestionBankService creates a new QuestionBankService. A nil rdb
// disables caching.
func NewQuestionBankService(loader PoolLoader, assessments AdaptiveLister, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *QuestionBankService {
	return &QuestionBankService{
		loader:      loader,
		assessments: assessments,
		rdb:         rdb,
		ttl:         ttl,
		log:         log.With().Str("component", "question_bank").Logger(),
	}
}

// FindCandidates returns the pool of an assessment minus the excluded ids.
func (s *QuestionBankService) FindCandidates(ctx context.Context, assessmentID uuid.UUID, exclude []uuid.UUID) ([]model.Question, error) {
	pool, err := s.pool(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if len(exclude) == 0 {
		return pool, nil
	}

	skip := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	out := make([]model.Question, 0, len(pool))
	for _, q := range pool {
		if _, done := skip[q.ID]; !done {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *QuestionBankService) pool(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	if s.rdb == nil {
		return s.loader.ListByAssessment(ctx, assessmentID)
	}

	key := config.CacheKey.AssessmentPoolKey(assessmentID.String())
	if cached, ok := s.readCache(ctx, key); ok {
		metrics.PoolCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.PoolCacheLookups.WithLabelValues("miss").Inc()

	// Concurrent misses for one assessment share a single load.
	v, err, _ := s.group.Do(key, func() (any, error) {
		if cached, ok := s.readCache(ctx, key); ok {
			return cached, nil
		}
		return s.warm(ctx, assessmentID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Question), nil
}

func (s *QuestionBankService) readCache(ctx context.Context, key string) ([]model.Question, bool) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("Pool cache read failed, using database")
		}
		return nil, false
	}
	var pool []model.Question
	if err := json.Unmarshal(data, &pool); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Corrupt pool cache entry, reloading")
		return nil, false
	}
	return pool, true
}

func (s *QuestionBankService) warm(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	pool, err := s.loader.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list pool: %w", err)
	}
	if pool == nil {
		pool = []model.Question{}
	}
	if s.rdb == nil {
		return pool, nil
	}

	data, err := json.Marshal(pool)
	if err != nil {
		return nil, fmt.Errorf("marshal pool: %w", err)
	}
	key := config.CacheKey.AssessmentPoolKey(assessmentID.String())
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		// The pool is still usable; the next lookup retries the write.
		s.log.Warn().Err(err).Str("assessment_id", assessmentID.String()).Msg("Failed to cache pool")
		return pool, nil
	}

	s.log.Debug().
		Str("assessment_id", assessmentID.String()).
		Int("questions", len(pool)).
		Msg("Pool cache warmed")
	return pool, nil
}

// WarmCache loads one assessment pool into Redis.
func (s *QuestionBankService) WarmCache(ctx context.Context, assessmentID uuid.UUID) error {
	_, err := s.warm(ctx, assessmentID)
	return err
}

// PrewarmAllCaches loads every adaptive assessment pool into Redis on startup.
func (s *QuestionBankService) PrewarmAllCaches(ctx context.Context) error {
	ids, err := s.assessments.ListAdaptiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("list adaptive assessments: %w", err)
	}
	if len(ids) == 0 {
		s.log.Info().Msg("No adaptive assessments to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(ids)).Msg("Prewarming assessment pools...")

	warmed := 0
	for _, id := range ids {
		if err := s.WarmCache(ctx, id); err != nil {
			s.log.Warn().
				Err(err).
				Str("assessment_id", id.String()).
				Msg("Failed to warm pool, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(ids)).
		Msg("Prewarming complete")
	return nil
}
