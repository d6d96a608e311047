package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronMetrics
	Interval time.Duration
}

// Service runs the registered jobs once per interval, only on the worker
// holding the lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case p.Lock == nil:
		return nil, fmt.Errorf("lock required")
	}
	if p.Registry == nil {
		p.Registry = &Registry{names: map[string]struct{}{}}
	}
	if p.Interval <= 0 {
		p.Interval = defaultInterval
	}
	return &Service{
		logg:     p.Logger,
		registry: p.Registry,
		lock:     p.Lock,
		metrics:  p.Metrics,
		interval: p.Interval,
		now:      time.Now,
	}, nil
}

// Run starts with a cycle right away, then ticks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.runCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	s.metrics.ObserveCycle(!held)
	if !held {
		s.logg.Debug(ctx, "another worker holds the cron lock")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	start := s.now()
	report, err := job.Run(jobCtx)
	took := s.now().Sub(start)
	s.metrics.ObserveRun(job.Name(), took, report.Items, report.Unit, err)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms": took.Milliseconds(),
		"items":       report.Items,
		"unit":        report.Unit,
	})
	if err != nil {
		s.logg.Error(jobCtx, "cron job failed", err)
		return
	}
	s.logg.Debug(jobCtx, "cron job finished")
}
