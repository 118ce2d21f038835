package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ds124wfegd/campusres/internal/service"
	"github.com/sirupsen/logrus"
)

// OrphanSweeper removes bookings whose resource was deleted without its
// bookings, e.g. when the cascade step and all its retries failed.
type OrphanSweeper struct {
	resourceService service.ResourceService

	mu      sync.Mutex
	runs    int
	failed  int
	removed int64
	lastRun time.Time
}

func NewOrphanSweeper(resourceService service.ResourceService) *OrphanSweeper {
	return &OrphanSweeper{resourceService: resourceService}
}

// Run performs one sweep. It matches scheduler.Job.
func (w *OrphanSweeper) Run(ctx context.Context) error {
	logrus.Debug("Starting orphaned bookings sweep")

	removed, err := w.resourceService.SweepOrphanedBookings(ctx)

	w.mu.Lock()
	w.runs++
	w.lastRun = time.Now().UTC()
	if err != nil {
		w.failed++
	} else {
		w.removed += removed
	}
	w.mu.Unlock()

	if err != nil {
		return err
	}
	if removed > 0 {
		logrus.WithField("removed", removed).Warn("Orphaned bookings removed")
	} else {
		logrus.Debug("No orphaned bookings found")
	}
	return nil
}

func (w *OrphanSweeper) GetStats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return map[string]interface{}{
		"worker_type": "orphan_sweeper",
		"runs":        w.runs,
		"failed":      w.failed,
		"removed":     w.removed,
		"last_run":    w.lastRun,
	}
}
