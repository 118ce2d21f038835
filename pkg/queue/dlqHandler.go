package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// FailedTask is a task that exhausted its retries or failed permanently.
type FailedTask struct {
	Task     *Task     `json:"task"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
	Attempts int       `json:"attempts"`
}

type DLQStats struct {
	Size          int64     `json:"size"`
	OldestFailure time.Time `json:"oldest_failure,omitempty"`
	NewestFailure time.Time `json:"newest_failure,omitempty"`
}

// DLQHandler stores failed tasks in Redis: a hash keyed by task id and a
// sorted set ordering the ids by failure time.
type DLQHandler struct {
	client *redis.Client
	hash   string
	index  string
}

func NewDLQHandler(client *redis.Client, name string) *DLQHandler {
	return &DLQHandler{
		client: client,
		hash:   name,
		index:  name + ":index",
	}
}

func (d *DLQHandler) HandleFailedTask(ctx context.Context, task *Task, err error) {
	failed := &FailedTask{
		Task:     task,
		Error:    err.Error(),
		FailedAt: time.Now().UTC(),
		Attempts: task.Attempts,
	}

	data, marshalErr := json.Marshal(failed)
	if marshalErr != nil {
		logrus.WithError(marshalErr).Error("Failed to marshal failed task")
		return
	}

	pipe := d.client.TxPipeline()
	pipe.HSet(ctx, d.hash, task.ID, data)
	pipe.ZAdd(ctx, d.index, &redis.Z{Score: float64(failed.FailedAt.UnixMilli()), Member: task.ID})
	if _, redisErr := pipe.Exec(ctx); redisErr != nil {
		logrus.WithError(redisErr).WithField("task_id", task.ID).Error("Failed to send task to DLQ")
		return
	}

	logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"attempts":  task.Attempts,
		"error":     err.Error(),
	}).Warn("Task moved to DLQ")
}

// GetFailedTasks returns the newest failures first.
func (d *DLQHandler) GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error) {
	if limit <= 0 {
		limit = 50
	}

	ids, err := d.client.ZRevRange(ctx, d.index, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read DLQ index: %w", err)
	}
	if len(ids) == 0 {
		return []*FailedTask{}, nil
	}

	values, err := d.client.HMGet(ctx, d.hash, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read DLQ tasks: %w", err)
	}

	failed := make([]*FailedTask, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var ft FailedTask
		if err := json.Unmarshal([]byte(raw), &ft); err != nil {
			logrus.WithError(err).Warn("Skipping corrupted DLQ entry")
			continue
		}
		failed = append(failed, &ft)
	}
	return failed, nil
}

// Take removes a failed task from the DLQ and returns it.
func (d *DLQHandler) Take(ctx context.Context, taskID string) (*FailedTask, error) {
	raw, err := d.client.HGet(ctx, d.hash, taskID).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read DLQ task: %w", err)
	}

	var ft FailedTask
	if err := json.Unmarshal([]byte(raw), &ft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DLQ task: %w", err)
	}

	pipe := d.client.TxPipeline()
	pipe.HDel(ctx, d.hash, taskID)
	pipe.ZRem(ctx, d.index, taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to remove task from DLQ: %w", err)
	}
	return &ft, nil
}

func (d *DLQHandler) GetDLQStats(ctx context.Context) (*DLQStats, error) {
	size, err := d.client.ZCard(ctx, d.index).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get DLQ size: %w", err)
	}

	stats := &DLQStats{Size: size}
	if size == 0 {
		return stats, nil
	}

	oldest, err := d.client.ZRangeWithScores(ctx, d.index, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest failure: %w", err)
	}
	newest, err := d.client.ZRevRangeWithScores(ctx, d.index, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get newest failure: %w", err)
	}
	if len(oldest) > 0 {
		stats.OldestFailure = time.UnixMilli(int64(oldest[0].Score)).UTC()
	}
	if len(newest) > 0 {
		stats.NewestFailure = time.UnixMilli(int64(newest[0].Score)).UTC()
	}
	return stats, nil
}
