package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ds124wfegd/campusres/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskDispatcher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dispatcher := NewTaskDispatcher(f.resources, f.notifier)

	tests := []struct {
		name          string
		task          *queue.Task
		wantErr       bool
		wantPermanent bool
	}{
		{
			name: "notification",
			task: queue.NewTask(queue.TaskTypeSendNotification, map[string]interface{}{"text": "hello"}),
		},
		{
			name:          "notification without text",
			task:          queue.NewTask(queue.TaskTypeSendNotification, nil),
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:          "cascade without resource",
			task:          queue.NewTask(queue.TaskTypeCascadeDelete, map[string]interface{}{}),
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name: "cascade of unknown resource",
			task: queue.NewTask(queue.TaskTypeCascadeDelete, map[string]interface{}{"resource_id": "gone"}),
		},
		{
			name:          "unknown type",
			task:          queue.NewTask("reindex", nil),
			wantErr:       true,
			wantPermanent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dispatcher.Handle(ctx, tt.task)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantPermanent, queue.IsPermanent(err))
		})
	}

	assert.Equal(t, []string{"hello"}, f.notifier.messages)
}

func TestNotifierFailureIsRetried(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("telegram is down")}
	dispatcher := NewTaskDispatcher(nil, notifier)

	err := dispatcher.Handle(context.Background(), queue.NewTask(queue.TaskTypeSendNotification, map[string]interface{}{"text": "hi"}))
	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err))
}
