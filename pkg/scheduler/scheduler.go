package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is a periodic unit of work.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron specs. A job whose previous run is still in
// progress is skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
}

func NewScheduler() *Scheduler {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		ctx:  ctx,
		stop: cancel,
	}
}

// Register adds a job under name on a cron spec such as "*/5 * * * *" or "@every 10m".
func (s *Scheduler) Register(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		log := logrus.WithField("job", name)
		if err := job(s.ctx); err != nil {
			log.WithError(err).Error("Scheduled job failed")
			return
		}
		log.WithField("duration", time.Since(start).String()).Debug("Scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	logrus.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("Job scheduled")
	return nil
}

// Start runs the scheduler until ctx is cancelled, then waits for running jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	s.stop()
	<-s.cron.Stop().Done()
	logrus.Info("Scheduler stopped")
}
