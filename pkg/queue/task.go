package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTaskNotFound is returned when a task id is not in the dead-letter queue.
var ErrTaskNotFound = errors.New("task not found in DLQ")

type TaskType string

const (
	// TaskTypeCascadeDelete removes the bookings left behind by a deleted resource.
	TaskTypeCascadeDelete TaskType = "cascade_delete"
	// TaskTypeSendNotification delivers an admin notification.
	TaskTypeSendNotification TaskType = "send_notification"
)

// Task is a unit of work in the queue
type Task struct {
	ID         string                 `json:"id"`
	Type       TaskType               `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	CreatedAt  time.Time              `json:"created_at"`
	Attempts   int                    `json:"attempts"`
	MaxRetries int                    `json:"max_retries"`
	LastError  string                 `json:"last_error,omitempty"`
}

// Handler executes a task. Returning a Permanent error skips the remaining retries.
type Handler func(ctx context.Context, task *Task) error

type Queue interface {
	Publish(ctx context.Context, task *Task) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

func NewTask(taskType TaskType, data map[string]interface{}) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the task and fills in defaults.
func (t *Task) Validate(defaultRetries int) error {
	if strings.TrimSpace(string(t.Type)) == "" {
		return fmt.Errorf("task type is required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.MaxRetries <= 0 {
		t.MaxRetries = defaultRetries
	}
	if t.Data == nil {
		t.Data = make(map[string]interface{})
	}
	return nil
}

// clone copies the task and its top-level data map.
func (t *Task) clone() *Task {
	c := *t
	if t.Data != nil {
		c.Data = make(map[string]interface{}, len(t.Data))
		for k, v := range t.Data {
			c.Data[k] = v
		}
	}
	return &c
}

func (t *Task) GetString(key string) string {
	if val, ok := t.Data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (t *Task) Due(now time.Time) bool {
	return t.ExecuteAt.IsZero() || !t.ExecuteAt.After(now)
}
