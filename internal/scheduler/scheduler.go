package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"pulseai/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Job is one named scheduled task.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler drives the periodic jobs. Each job runs at most once
// concurrently and failures stay contained to the failing job.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
	ctx    context.Context
}

// New creates a scheduler. Jobs run with the given base context.
func New(ctx context.Context, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: log,
		ctx:    ctx,
	}
}

// Register adds a job under its cron spec.
func (s *Scheduler) Register(job Job) error {
	if job.Spec == "" {
		return fmt.Errorf("job %q has no cron spec", job.Name)
	}

	var running atomic.Bool
	_, err := s.cron.AddFunc(job.Spec, func() {
		if !running.CompareAndSwap(false, true) {
			s.logger.Warn("Skipping job run, previous run still in progress",
				logger.StringField("job", job.Name),
			)
			return
		}
		defer running.Store(false)
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to register job %q: %w", job.Name, err)
	}

	s.logger.Info("Job registered",
		logger.StringField("job", job.Name),
		logger.StringField("spec", job.Spec),
	)
	return nil
}

func (s *Scheduler) runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job panicked",
				logger.StringField("job", job.Name),
				logger.Field("panic", r),
			)
		}
	}()

	start := time.Now()
	s.logger.Info("Job started", logger.StringField("job", job.Name))

	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("Job failed",
			logger.StringField("job", job.Name),
			logger.DurationField("duration", time.Since(start)),
			logger.ErrorField(err),
		)
		return
	}

	s.logger.Info("Job complete",
		logger.StringField("job", job.Name),
		logger.DurationField("duration", time.Since(start)),
	)
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped")
}
