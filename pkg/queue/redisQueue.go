package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries  = 5
	defaultPollTimeout = 5 * time.Second
	defaultDelayedTick = time.Second
	statsTTL           = 24 * time.Hour
)

// RedisQueueConfig names the Redis keys of one queue.
type RedisQueueConfig struct {
	Name        string
	MaxRetries  int
	PollTimeout time.Duration
	DelayedTick time.Duration
}

// Stats is a snapshot of queue sizes and counters.
type Stats struct {
	Ready      int64            `json:"ready"`
	Delayed    int64            `json:"delayed"`
	Processing int64            `json:"processing"`
	Failed     int64            `json:"failed"`
	Counters   map[string]int64 `json:"counters"`
	Timestamp  time.Time        `json:"timestamp"`
}

// RedisQueue keeps ready tasks in a list, delayed tasks in a sorted set
// scored by execution time, and in-flight tasks in a processing list.
type RedisQueue struct {
	client       *redis.Client
	readyKey     string
	delayedKey   string
	processKey   string
	statsKey     string
	cfg          RedisQueueConfig
	retryManager *RetryManager
	dlq          *DLQHandler

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewRedisQueue(client *redis.Client, cfg RedisQueueConfig, retryManager *RetryManager) *RedisQueue {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.DelayedTick <= 0 {
		cfg.DelayedTick = defaultDelayedTick
	}

	q := &RedisQueue{
		client:       client,
		readyKey:     cfg.Name,
		delayedKey:   cfg.Name + ":delayed",
		processKey:   cfg.Name + ":processing",
		statsKey:     cfg.Name + ":stats",
		cfg:          cfg,
		retryManager: retryManager,
		dlq:          NewDLQHandler(client, cfg.Name+":dlq"),
		stopChan:     make(chan struct{}),
	}

	logrus.WithField("queue", cfg.Name).Info("RedisQueue initialized")
	return q
}

func (r *RedisQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(r.cfg.MaxRetries); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if !task.Due(time.Now()) {
		err = r.client.ZAdd(ctx, r.delayedKey, &redis.Z{
			Score:  float64(task.ExecuteAt.UnixMilli()),
			Member: data,
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to publish delayed task: %w", err)
		}
		r.count(ctx, "delayed")
		return nil
	}

	if err := r.client.LPush(ctx, r.readyKey, data).Err(); err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	r.count(ctx, "published")
	return nil
}

// Subscribe recovers tasks abandoned in the processing list and starts the
// consumer and the delayed-task mover. Both stop with ctx or Close.
func (r *RedisQueue) Subscribe(ctx context.Context, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	if err := r.recoverProcessing(ctx); err != nil {
		return err
	}

	r.wg.Add(2)
	go r.moveDelayedLoop(ctx)
	go r.consumeLoop(ctx, handler)

	logrus.WithField("queue", r.cfg.Name).Info("RedisQueue subscriber started")
	return nil
}

func (r *RedisQueue) recoverProcessing(ctx context.Context) error {
	for {
		err := r.client.RPopLPush(ctx, r.processKey, r.readyKey).Err()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to recover in-flight tasks: %w", err)
		}
	}
}

func (r *RedisQueue) consumeLoop(ctx context.Context, handler Handler) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		default:
		}

		if err := r.consumeOne(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Error("Error consuming task")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *RedisQueue) consumeOne(ctx context.Context, handler Handler) error {
	raw, err := r.client.BRPopLPush(ctx, r.readyKey, r.processKey, r.cfg.PollTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to move task to processing list: %w", err)
	}
	defer func() {
		if err := r.client.LRem(context.Background(), r.processKey, 1, raw).Err(); err != nil {
			logrus.WithError(err).Warn("Failed to remove task from processing list")
		}
	}()

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		corrupted := NewTask("corrupted", map[string]interface{}{"raw": raw})
		r.dlq.HandleFailedTask(ctx, corrupted, fmt.Errorf("invalid task format: %w", err))
		return nil
	}

	r.execute(ctx, &task, handler)
	return nil
}

func (r *RedisQueue) execute(ctx context.Context, task *Task, handler Handler) {
	task.Attempts++
	start := time.Now()
	log := logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"attempt":   task.Attempts,
	})

	err := handler(ctx, task)
	if err == nil {
		r.count(ctx, "succeeded")
		log.WithField("duration", time.Since(start).String()).Info("Task completed")
		return
	}

	r.count(ctx, "failed_attempts")
	task.LastError = err.Error()

	retry, delay := r.retryManager.ShouldRetry(task, err)
	if !retry {
		r.count(ctx, "dead_lettered")
		r.dlq.HandleFailedTask(ctx, task, err)
		return
	}

	task.ExecuteAt = time.Now().Add(delay)
	log.WithError(err).WithField("retry_in", delay.String()).Warn("Task failed, scheduling retry")
	if pubErr := r.Publish(ctx, task); pubErr != nil {
		log.WithError(pubErr).Error("Failed to schedule retry")
		r.dlq.HandleFailedTask(ctx, task, err)
	}
}

func (r *RedisQueue) moveDelayedLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.DelayedTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.moveReadyDelayed(ctx); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("Failed to move delayed tasks")
			}
		}
	}
}

// moveReadyDelayed pushes due delayed tasks to the ready list. A task is only
// pushed by the instance whose ZREM removed it.
func (r *RedisQueue) moveReadyDelayed(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	due, err := r.client.ZRangeByScore(ctx, r.delayedKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return fmt.Errorf("failed to read delayed tasks: %w", err)
	}

	for _, raw := range due {
		removed, err := r.client.ZRem(ctx, r.delayedKey, raw).Result()
		if err != nil {
			return fmt.Errorf("failed to claim delayed task: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := r.client.LPush(ctx, r.readyKey, raw).Err(); err != nil {
			return fmt.Errorf("failed to push delayed task: %w", err)
		}
	}
	return nil
}

func (r *RedisQueue) count(ctx context.Context, counter string) {
	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, r.statsKey, counter, 1)
	pipe.Expire(ctx, r.statsKey, statsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Debug("Failed to update queue counters")
	}
}

func (r *RedisQueue) Stats(ctx context.Context) (*Stats, error) {
	pipe := r.client.Pipeline()
	ready := pipe.LLen(ctx, r.readyKey)
	delayed := pipe.ZCard(ctx, r.delayedKey)
	processing := pipe.LLen(ctx, r.processKey)
	counters := pipe.HGetAll(ctx, r.statsKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	dlqStats, err := r.dlq.GetDLQStats(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Ready:      ready.Val(),
		Delayed:    delayed.Val(),
		Processing: processing.Val(),
		Failed:     dlqStats.Size,
		Counters:   make(map[string]int64),
		Timestamp:  time.Now().UTC(),
	}
	for k, v := range counters.Val() {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			stats.Counters[k] = n
		}
	}
	return stats, nil
}

func (r *RedisQueue) FailedTasks(ctx context.Context, limit int) ([]*FailedTask, error) {
	return r.dlq.GetFailedTasks(ctx, limit)
}

// Requeue moves a dead-lettered task back to the ready list with a fresh retry budget.
func (r *RedisQueue) Requeue(ctx context.Context, taskID string) error {
	failed, err := r.dlq.Take(ctx, taskID)
	if err != nil {
		return err
	}

	task := failed.Task
	task.Attempts = 0
	task.ExecuteAt = time.Time{}
	if err := r.Publish(ctx, task); err != nil {
		r.dlq.HandleFailedTask(ctx, task, errors.New(failed.Error))
		return err
	}

	logrus.WithField("task_id", taskID).Info("Task requeued from DLQ")
	return nil
}

// Close stops the background loops. The Redis client is owned by the caller.
func (r *RedisQueue) Close() error {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
	logrus.WithField("queue", r.cfg.Name).Info("RedisQueue closed")
	return nil
}
