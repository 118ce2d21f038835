package worker

import (
	"context"

	"github.com/ds124wfegd/campusres/pkg/queue"
	"github.com/sirupsen/logrus"
)

// TaskWorker consumes the task queue until its context is cancelled.
type TaskWorker struct {
	queue   queue.Queue
	handler queue.Handler
}

func NewTaskWorker(q queue.Queue, handler queue.Handler) *TaskWorker {
	return &TaskWorker{queue: q, handler: handler}
}

func (w *TaskWorker) Start(ctx context.Context) error {
	if err := w.queue.Subscribe(ctx, w.handler); err != nil {
		return err
	}
	logrus.Info("Task worker started")

	<-ctx.Done()
	logrus.Info("Task worker stopped")
	return nil
}
