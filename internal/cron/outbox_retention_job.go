package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/metrics"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDeadAttempts    = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttempts int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Outbox    outboxPruner
	Retention time.Duration
	// DeadAttempts marks unpublished rows as dead once they failed this often.
	DeadAttempts int
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	outbox       outboxPruner
	retention    time.Duration
	deadAttempts int
	now          func() time.Time
}

func NewOutboxRetentionJob(p OutboxRetentionJobParams) (Job, error) {
	switch {
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case p.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	if p.Retention <= 0 {
		p.Retention = defaultOutboxRetention
	}
	if p.DeadAttempts <= 0 {
		p.DeadAttempts = defaultDeadAttempts
	}
	return &outboxRetentionJob{
		logg:         p.Logger,
		db:           p.DB,
		outbox:       p.Outbox,
		retention:    p.Retention,
		deadAttempts: p.DeadAttempts,
		now:          time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return metrics.CronJobOutboxRetention }

// Run deletes published events older than the retention window, along with
// rows that exhausted their publish attempts.
func (j *outboxRetentionJob) Run(ctx context.Context) (Report, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	report := Report{Unit: "events_pruned"}
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.outbox.DeletePublishedBefore(ctx, tx, cutoff, j.deadAttempts)
		report.Items = n
		return err
	})
	if err != nil {
		return Report{Unit: report.Unit}, fmt.Errorf("prune outbox: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"dead_attempts": j.deadAttempts,
		"rows_deleted":  report.Items,
	}), "outbox pruned")
	return report, nil
}
