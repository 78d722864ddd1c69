package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-adaptive/internal/config"
)

// ItemObservation is one administered item, queued for recalibration.
type ItemObservation struct {
	QuestionID  uuid.UUID `json:"question_id"`
	Correct     bool      `json:"correct"`
	TimeSpentMs int       `json:"time_spent_ms"`
}

// ItemStatsRecorder accepts committed responses for item statistics.
type ItemStatsRecorder interface {
	Record(ctx context.Context, obs ItemObservation) error
}

// RedisItemStatsRecorder pushes observations onto the item statistics queue
// drained by worker.ItemStatsWorker.
type RedisItemStatsRecorder struct {
	rdb *redis.Client
}

// NewRedisItemStatsRecorder creates a new RedisItemStatsRecorder.
func NewRedisItemStatsRecorder(rdb *redis.Client) *RedisItemStatsRecorder {
	return &RedisItemStatsRecorder{rdb: rdb}
}

func (r *RedisItemStatsRecorder) Record(ctx context.Context, obs ItemObservation) error {
	payload, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}
	if err := r.rdb.RPush(ctx, config.WorkerKey.PersistItemStatsQueue, payload).Err(); err != nil {
		return fmt.Errorf("push observation: %w", err)
	}
	return nil
}
