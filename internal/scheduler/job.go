package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"facilitywatch/internal/service"
)

// SyncRunner is the single entry point both the timer and manual triggers go
// through; the single-flight guard lives behind it.
type SyncRunner interface {
	RunOnce(ctx context.Context) (service.SyncSummary, error)
	Cancel()
}

// Job drives recurring sensor sync cycles.
type Job struct {
	runner   SyncRunner
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

// NewJob returns a stopped job with the given cycle interval.
func NewJob(runner SyncRunner, interval time.Duration, logger *zap.Logger) *Job {
	return &Job{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start registers the recurring trigger and runs one cycle immediately.
// Calling Start on a running job is a no-op.
func (j *Job) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.scheduler != nil {
		j.logger.Info("sync job already running")
		return
	}

	j.logger.Info("starting sync job", zap.Duration("interval", j.interval))

	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(j.interval).StartImmediately().Do(j.tick); err != nil {
		j.logger.Error("failed to schedule sync job", zap.Error(err))
		return
	}
	s.StartAsync()
	j.scheduler = s
}

// Stop deregisters the timer and cancels any in-flight fetch. Idempotent.
func (j *Job) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.scheduler == nil {
		return
	}

	j.scheduler.Stop()
	j.scheduler = nil
	j.runner.Cancel()
	j.logger.Info("sync job stopped")
}

// IsRunning reports whether the recurring timer is registered.
func (j *Job) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.scheduler != nil
}

// Interval returns the configured cycle period.
func (j *Job) Interval() time.Duration {
	return j.interval
}

func (j *Job) tick() {
	if _, err := j.runner.RunOnce(context.Background()); err != nil {
		j.logger.Error("sync cycle failed", zap.Error(err))
	}
}
