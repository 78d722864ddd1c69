package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/service"
)

const (
	StatsBatchSize    = 50
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

// Execer is satisfied by *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Pusher puts observations back on the queue; *redis.Client satisfies it.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// ItemStatsWorker drains the item statistics queue into item_statistics.
type ItemStatsWorker struct {
	db    Execer
	rdb   *redis.Client
	queue Pusher
	log   zerolog.Logger
}

func NewItemStatsWorker(db Execer, rdb *redis.Client, log zerolog.Logger) *ItemStatsWorker {
	return &ItemStatsWorker{
		db:    db,
		rdb:   rdb,
		queue: rdb,
		log:   log.With().Str("component", "item_stats_worker").Logger(),
	}
}

// itemTally is the aggregate of one question within a batch.
type itemTally struct {
	QuestionID   uuid.UUID `json:"question_id"`
	Administered int64     `json:"administered"`
	Correct      int64     `json:"correct"`
	TotalTimeMs  int64     `json:"total_time_ms"`
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *ItemStatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ItemStatsWorker started")

	batch := make([]service.ItemObservation, 0, StatsBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.PersistItemStatsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var obs service.ItemObservation
			if err := json.Unmarshal([]byte(item[1]), &obs); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, obs)
		}
	}
}

// ----------------------------------------------------------------
// Batch upsert wrapper
// ----------------------------------------------------------------

func (w *ItemStatsWorker) flushSafe(ctx context.Context, batch []service.ItemObservation) {
	if len(batch) == 0 {
		return
	}

	tallies := aggregate(batch)
	if err := w.bulkUpsert(ctx, tallies); err != nil {
		w.log.Warn().Err(err).Msg("bulk item stats upsert failed, using fallback")

		for _, t := range tallies {
			err := w.persistSingle(ctx, t)
			switch {
			case err == nil:
			case permanent(err):
				w.log.Error().
					Err(err).
					Str("question_id", t.QuestionID.String()).
					Int64("administered", t.Administered).
					Msg("persistSingle rejected, observations dropped")
			default:
				w.log.Error().Err(err).Str("question_id", t.QuestionID.String()).Msg("persistSingle failed, requeueing")
				w.requeue(ctx, batch, t.QuestionID)
			}
		}
		return
	}

	w.log.Debug().Int("observations", len(batch)).Int("questions", len(tallies)).Msg("Item stats flushed")
}

// aggregate folds observations per question, in first-seen order. One row
// per question keeps the bulk upsert from touching a row twice.
func aggregate(batch []service.ItemObservation) []itemTally {
	index := make(map[uuid.UUID]int, len(batch))
	var out []itemTally
	for _, obs := range batch {
		i, ok := index[obs.QuestionID]
		if !ok {
			i = len(out)
			index[obs.QuestionID] = i
			out = append(out, itemTally{QuestionID: obs.QuestionID})
		}
		out[i].Administered++
		if obs.Correct {
			out[i].Correct++
		}
		out[i].TotalTimeMs += int64(obs.TimeSpentMs)
	}
	return out
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPSERT using UNNEST
// ----------------------------------------------------------------

func (w *ItemStatsWorker) bulkUpsert(ctx context.Context, tallies []itemTally) error {
	n := len(tallies)
	ids := make([]uuid.UUID, n)
	administered := make([]int64, n)
	correct := make([]int64, n)
	totalTime := make([]int64, n)
	for i, t := range tallies {
		ids[i] = t.QuestionID
		administered[i] = t.Administered
		correct[i] = t.Correct
		totalTime[i] = t.TotalTimeMs
	}

	query := `
		INSERT INTO item_statistics (question_id, administered, correct, total_time_ms, updated_at)
		SELECT u.question_id, u.administered, u.correct, u.total_time_ms, NOW()
		FROM UNNEST(
			$1::uuid[],
			$2::bigint[],
			$3::bigint[],
			$4::bigint[]
		) AS u (question_id, administered, correct, total_time_ms)
		ON CONFLICT (question_id) DO UPDATE
		SET administered  = item_statistics.administered + EXCLUDED.administered,
		    correct       = item_statistics.correct + EXCLUDED.correct,
		    total_time_ms = item_statistics.total_time_ms + EXCLUDED.total_time_ms,
		    updated_at    = NOW()
	`

	_, err := w.db.Exec(ctx, query, ids, administered, correct, totalTime)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single upsert
// ----------------------------------------------------------------

func (w *ItemStatsWorker) persistSingle(ctx context.Context, t itemTally) error {
	_, err := w.db.Exec(ctx,
		`INSERT INTO item_statistics (question_id, administered, correct, total_time_ms, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (question_id) DO UPDATE
		 SET administered  = item_statistics.administered + EXCLUDED.administered,
		     correct       = item_statistics.correct + EXCLUDED.correct,
		     total_time_ms = item_statistics.total_time_ms + EXCLUDED.total_time_ms,
		     updated_at    = NOW()`,
		t.QuestionID, t.Administered, t.Correct, t.TotalTimeMs,
	)
	return err
}

// permanent reports errors a retry cannot fix: data exceptions (class 22)
// and integrity violations (class 23), such as a deleted question.
func permanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
}

func (w *ItemStatsWorker) requeue(ctx context.Context, batch []service.ItemObservation, questionID uuid.UUID) {
	for _, obs := range batch {
		if obs.QuestionID != questionID {
			continue
		}
		raw, _ := json.Marshal(obs)
		if err := w.queue.RPush(ctx, config.WorkerKey.PersistItemStatsQueue, raw).Err(); err != nil {
			w.log.Error().Err(err).Str("question_id", questionID.String()).Msg("Requeue failed, observation dropped")
			return
		}
	}
}
