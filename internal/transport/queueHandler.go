package transport

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/campusres/pkg/queue"
	"github.com/gin-gonic/gin"
)

// QueueInspector exposes the task queue state to administrators.
// Both queue.RedisQueue and queue.MemoryQueue implement it.
type QueueInspector interface {
	Stats(ctx context.Context) (*queue.Stats, error)
	FailedTasks(ctx context.Context, limit int) ([]*queue.FailedTask, error)
	Requeue(ctx context.Context, taskID string) error
}

// WorkerReporter is a background worker that reports its counters.
type WorkerReporter interface {
	GetStats() map[string]interface{}
}

type QueueHandler struct {
	queue   QueueInspector
	workers []WorkerReporter
}

func NewQueueHandler(q QueueInspector, workers ...WorkerReporter) *QueueHandler {
	return &QueueHandler{queue: q, workers: workers}
}

func (h *QueueHandler) GetStats(c *gin.Context) {
	stats, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	workers := make([]map[string]interface{}, 0, len(h.workers))
	for _, w := range h.workers {
		workers = append(workers, w.GetStats())
	}
	respond(c, http.StatusOK, "", gin.H{"queue": stats, "workers": workers})
}

func (h *QueueHandler) GetFailedTasks(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	failed, err := h.queue.FailedTasks(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", failed)
}

func (h *QueueHandler) Requeue(c *gin.Context) {
	if err := h.queue.Requeue(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "task requeued", nil)
}
