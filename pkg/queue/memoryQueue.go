package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MemoryQueue runs tasks in process with the same retry and dead-letter rules
// as RedisQueue. Tasks do not survive a restart.
type MemoryQueue struct {
	maxRetries   int
	retryManager *RetryManager

	mu      sync.Mutex
	ready   chan *Task
	failed  map[string]*FailedTask
	counter map[string]int64

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewMemoryQueue(maxRetries int, retryManager *RetryManager) *MemoryQueue {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &MemoryQueue{
		maxRetries:   maxRetries,
		retryManager: retryManager,
		ready:        make(chan *Task, 256),
		failed:       make(map[string]*FailedTask),
		counter:      make(map[string]int64),
		stopChan:     make(chan struct{}),
	}
}

func (m *MemoryQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(m.maxRetries); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	if delay := time.Until(task.ExecuteAt); delay > 0 {
		m.count("delayed")
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			select {
			case <-time.After(delay):
				m.push(task)
			case <-m.stopChan:
			}
		}()
		return nil
	}

	m.count("published")
	select {
	case m.ready <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemoryQueue) push(task *Task) {
	select {
	case m.ready <- task:
	case <-m.stopChan:
	}
}

func (m *MemoryQueue) Subscribe(ctx context.Context, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopChan:
				return
			case task := <-m.ready:
				m.execute(ctx, task, handler)
			}
		}
	}()
	return nil
}

func (m *MemoryQueue) execute(ctx context.Context, task *Task, handler Handler) {
	task.Attempts++

	err := handler(ctx, task)
	if err == nil {
		m.count("succeeded")
		return
	}

	m.count("failed_attempts")
	task.LastError = err.Error()

	retry, delay := m.retryManager.ShouldRetry(task, err)
	if !retry {
		m.count("dead_lettered")
		entry := logrus.WithFields(logrus.Fields{
			"task_id":   task.ID,
			"task_type": task.Type,
			"attempts":  task.Attempts,
		})
		m.mu.Lock()
		m.failed[task.ID] = &FailedTask{
			Task:     task.clone(),
			Error:    err.Error(),
			FailedAt: time.Now().UTC(),
			Attempts: task.Attempts,
		}
		m.mu.Unlock()
		entry.WithError(err).Warn("Task moved to DLQ")
		return
	}

	task.ExecuteAt = time.Now().Add(delay)
	if pubErr := m.Publish(ctx, task); pubErr != nil {
		logrus.WithError(pubErr).WithField("task_id", task.ID).Error("Failed to schedule retry")
	}
}

func (m *MemoryQueue) count(counter string) {
	m.mu.Lock()
	m.counter[counter]++
	m.mu.Unlock()
}

func (m *MemoryQueue) Stats(_ context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]int64, len(m.counter))
	for k, v := range m.counter {
		counters[k] = v
	}
	return &Stats{
		Ready:     int64(len(m.ready)),
		Failed:    int64(len(m.failed)),
		Counters:  counters,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (m *MemoryQueue) FailedTasks(_ context.Context, limit int) ([]*FailedTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	failed := make([]*FailedTask, 0, len(m.failed))
	for _, ft := range m.failed {
		c := *ft
		c.Task = ft.Task.clone()
		failed = append(failed, &c)
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].FailedAt.After(failed[j].FailedAt) })
	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}
	return failed, nil
}

func (m *MemoryQueue) Requeue(ctx context.Context, taskID string) error {
	m.mu.Lock()
	ft, ok := m.failed[taskID]
	delete(m.failed, taskID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	task := ft.Task.clone()
	task.Attempts = 0
	task.ExecuteAt = time.Time{}
	return m.Publish(ctx, task)
}

func (m *MemoryQueue) Close() error {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.wg.Wait()
	return nil
}
