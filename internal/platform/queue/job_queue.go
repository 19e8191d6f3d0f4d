package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contest_judge/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// JobQueue is a FIFO of evaluation jobs on a Redis list: producers LPUSH,
// consumers BRPOP.
type JobQueue struct {
	rdb  *redis.Client
	name string
}

func NewJobQueue(rdb *redis.Client, name string) *JobQueue {
	return &JobQueue{rdb: rdb, name: name}
}

func (q *JobQueue) Name() string { return q.name }

func (q *JobQueue) Enqueue(ctx context.Context, job model.EvaluationJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("failed to push job to queue %s: %w", q.name, err)
	}
	return nil
}

// Dequeue blocks for up to timeout. It returns (nil, nil) when the wait
// expires with nothing to do.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.EvaluationJob, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// res is [queueName, value]
	if len(res) < 2 || res[1] == "" {
		return nil, nil
	}

	var job model.EvaluationJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("malformed job payload %q: %w", res[1], err)
	}
	return &job, nil
}

func (q *JobQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}
