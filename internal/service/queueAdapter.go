package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ds124wfegd/campusres/pkg/queue"
	"github.com/sirupsen/logrus"
)

// TaskPublisher is the part of the task queue the services need.
type TaskPublisher interface {
	Publish(ctx context.Context, task *queue.Task) error
}

// QueueAdapter adapts queue.Queue to TaskPublisher. A nil queue drops tasks.
type QueueAdapter struct {
	queue queue.Queue
}

func NewQueueAdapter(q queue.Queue) *QueueAdapter {
	return &QueueAdapter{queue: q}
}

func (a *QueueAdapter) Publish(ctx context.Context, task *queue.Task) error {
	if a == nil || a.queue == nil {
		logrus.WithField("type", task.Type).Warn("Task queue is not configured, task dropped")
		return nil
	}
	return a.queue.Publish(ctx, task)
}

var errMissingTaskField = errors.New("task is missing a required field")

// TaskDispatcher executes the tasks the services enqueue.
type TaskDispatcher struct {
	resources ResourceService
	notifier  Notifier
}

func NewTaskDispatcher(resources ResourceService, notifier Notifier) *TaskDispatcher {
	return &TaskDispatcher{resources: resources, notifier: notifier}
}

// Handle is a queue.Handler.
func (d *TaskDispatcher) Handle(ctx context.Context, task *queue.Task) error {
	log := logrus.WithFields(logrus.Fields{
		"task_id": task.ID,
		"type":    task.Type,
		"attempt": task.Attempts + 1,
	})

	switch task.Type {
	case queue.TaskTypeCascadeDelete:
		resourceID := task.GetString("resource_id")
		if resourceID == "" {
			return queue.Permanent(fmt.Errorf("%w: resource_id", errMissingTaskField))
		}
		removed, err := d.resources.RemoveResourceBookings(ctx, resourceID)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"resource_id": resourceID, "removed": removed}).Info("Cascade delete completed")
		return nil

	case queue.TaskTypeSendNotification:
		text := task.GetString("text")
		if text == "" {
			return queue.Permanent(fmt.Errorf("%w: text", errMissingTaskField))
		}
		if d.notifier == nil {
			log.Debug("Notifier is not configured, notification skipped")
			return nil
		}
		return d.notifier.Notify(ctx, text)

	default:
		return queue.Permanent(fmt.Errorf("unknown task type: %s", task.Type))
	}
}
