package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/queue"
	"github.com/sirupsen/logrus"
)

// Notifier delivers a text message to the administrators.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

const notificationTimeout = 10 * time.Second

// notifications routes messages through the task queue when one is
// available so that a failing notifier is retried, and straight to the
// notifier otherwise.
type notifications struct {
	tasks    TaskPublisher
	notifier Notifier
}

func newNotifications(tasks TaskPublisher, notifier Notifier) *notifications {
	return &notifications{tasks: tasks, notifier: notifier}
}

func (n *notifications) send(ctx context.Context, text string) {
	if n == nil || n.notifier == nil {
		return
	}

	if n.tasks != nil {
		task := queue.NewTask(queue.TaskTypeSendNotification, map[string]interface{}{"text": text})
		err := n.tasks.Publish(ctx, task)
		if err == nil {
			return
		}
		logrus.WithError(err).Warn("Failed to queue notification, sending directly")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()
		if err := n.notifier.Notify(ctx, text); err != nil {
			logrus.WithError(err).Warn("Failed to send notification")
		}
	}()
}

func bookingCreatedMessage(b *entity.Booking, resourceName string) string {
	return fmt.Sprintf(
		"New booking request\n\nResource: %s\nDate: %s\nSlot: %s\nUser: %s\nBooking: %s",
		resourceName, b.Date, b.TimeSlot, b.UserEmail, b.ID,
	)
}

func bookingStatusMessage(b *entity.Booking) string {
	return fmt.Sprintf(
		"Booking %s is now %s\n\nDate: %s\nSlot: %s\nUser: %s",
		b.ID, b.Status, b.Date, b.TimeSlot, b.UserEmail,
	)
}
