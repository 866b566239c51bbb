package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
)

const defaultRetentionDays = 30

type outboxMaintenanceRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountExhausted(ctx context.Context, maxAttempts int) (int64, error)
}

// NewOutboxRetentionJob deletes published outbox rows older than
// retentionDays. Unpublished rows are never touched.
func NewOutboxRetentionJob(repo outboxMaintenanceRepo, retentionDays int, logg *logger.Logger) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	return &outboxRetentionJob{repo: repo, retention: retentionDays, logg: logg, now: time.Now}, nil
}

type outboxRetentionJob struct {
	repo      outboxMaintenanceRepo
	retention int
	logg      *logger.Logger
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete published outbox rows: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}), "outbox.retention_complete")
	return nil
}

// NewOutboxExhaustedJob reports rows the publisher has given up on. They need
// manual replay after the cause is fixed.
func NewOutboxExhaustedJob(repo outboxMaintenanceRepo, maxAttempts int, m *metrics.CronJobMetrics, logg *logger.Logger) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if maxAttempts <= 0 {
		return nil, errors.New("max attempts must be positive")
	}
	return &outboxExhaustedJob{repo: repo, maxAttempts: maxAttempts, metrics: m, logg: logg}, nil
}

type outboxExhaustedJob struct {
	repo        outboxMaintenanceRepo
	maxAttempts int
	metrics     *metrics.CronJobMetrics
	logg        *logger.Logger
}

func (j *outboxExhaustedJob) Name() string { return "outbox-exhausted" }

func (j *outboxExhaustedJob) Run(ctx context.Context) error {
	count, err := j.repo.CountExhausted(ctx, j.maxAttempts)
	if err != nil {
		return fmt.Errorf("count exhausted outbox rows: %w", err)
	}
	j.metrics.SetExhausted(count)
	if count > 0 {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"exhausted":    count,
			"max_attempts": j.maxAttempts,
		}), "outbox.exhausted_events")
	}
	return nil
}
