package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/degree-backend/internal/service"
)

// RedisRepairQueue pushes repair jobs onto a Redis list consumed by RepairWorker.
type RedisRepairQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisRepairQueue(rdb *redis.Client, key string) *RedisRepairQueue {
	return &RedisRepairQueue{rdb: rdb, key: key}
}

// Enqueue appends job to the tail of the queue.
func (q *RedisRepairQueue) Enqueue(ctx context.Context, job service.RepairJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal repair job: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push repair job: %w", err)
	}
	return nil
}

// Len returns the number of pending jobs.
func (q *RedisRepairQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
