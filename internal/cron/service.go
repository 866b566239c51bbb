package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding the lock.
type Service struct {
	ServiceParams
}

func NewService(params ServiceParams) (*Service, error) {
	var missing []error
	if params.Logger == nil {
		missing = append(missing, errors.New("logger required"))
	}
	if params.Lock == nil {
		missing = append(missing, errors.New("lock required"))
	}
	if params.Registry == nil {
		missing = append(missing, errors.New("job registry required"))
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}
	if params.Interval <= 0 {
		params.Interval = defaultInterval
	}
	return &Service{ServiceParams: params}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.Logger.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.Logger.Info(ctx, "cron.stopping")
			return ctx.Err()
		}
	}
}

// RunOnce runs one cycle. A held lock skips the cycle without error. Job
// failures are logged and counted; they do not stop later jobs.
func (s *Service) RunOnce(ctx context.Context) error {
	acquired, err := s.Lock.Acquire(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("lock acquire: %w", err)
	case !acquired:
		s.Logger.Info(ctx, "cron.cycle_skipped_locked")
		return nil
	}
	defer s.release(ctx)

	for _, job := range s.Registry.Jobs() {
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) release(ctx context.Context) {
	// The cycle context may already be cancelled; the lease must still go.
	if err := s.Lock.Release(context.WithoutCancel(ctx)); err != nil {
		s.Logger.Error(ctx, "cron.lock_release_failed", err)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	ctx = s.Logger.WithField(ctx, "job", name)

	started := time.Now()
	err := job.Run(ctx)
	took := time.Since(started)
	s.Metrics.ObserveRun(name, took, err)

	ctx = s.Logger.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.Logger.Error(ctx, "cron.job_failed", err)
		return
	}
	s.Logger.Info(ctx, "cron.job_completed")
}
