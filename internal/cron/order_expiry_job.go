package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/petfinder-app/petfinder-backend/internal/orders"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/metrics"
)

const defaultPendingTTL = 72 * time.Hour

type pendingExpirer interface {
	ExpireStalePending(ctx context.Context, cutoff time.Time) (*orders.ExpiryResult, error)
}

type OrderExpiryJobParams struct {
	Logger *logger.Logger
	Orders pendingExpirer
	// TTL is how long an order may stay pending before it is cancelled.
	TTL time.Duration
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders pendingExpirer
	ttl    time.Duration
	now    func() time.Time
}

func NewOrderExpiryJob(p OrderExpiryJobParams) (Job, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if p.TTL <= 0 {
		p.TTL = defaultPendingTTL
	}
	return &orderExpiryJob{logg: p.Logger, orders: p.Orders, ttl: p.TTL, now: time.Now}, nil
}

func (j *orderExpiryJob) Name() string { return metrics.CronJobOrderExpiry }

// Run cancels orders left pending past the TTL. Orders expired before a
// failure stay expired and are reported.
func (j *orderExpiryJob) Run(ctx context.Context) (Report, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	res, err := j.orders.ExpireStalePending(ctx, cutoff)
	report := Report{Unit: "orders_expired"}
	fields := map[string]any{"cutoff": cutoff}
	if res != nil {
		report.Items = int64(len(res.Expired))
		fields["scanned"] = res.Scanned
		fields["expired"] = len(res.Expired)
	}
	logCtx := j.logg.WithFields(ctx, fields)
	if err != nil {
		return report, fmt.Errorf("expire pending orders: %w", err)
	}
	if report.Items > 0 {
		j.logg.Info(logCtx, "stale pending orders cancelled")
	}
	return report, nil
}
