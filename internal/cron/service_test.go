package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/metrics"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type countingJob struct {
	name  string
	items int64
	err   error
	runs  int
	onRun func()
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) (Report, error) {
	c.runs++
	if c.onRun != nil {
		c.onRun()
	}
	return Report{Items: c.items, Unit: "rows"}, c.err
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(&countingJob{name: "a"}, nil, &countingJob{name: "a"})
	require.Error(t, err)

	reg, err := NewRegistry(&countingJob{name: "a"}, nil, &countingJob{name: "b"})
	require.NoError(t, err)
	require.Len(t, reg.Jobs(), 2)
}

func TestRunCycleRunsEveryJobAndRecordsOutcome(t *testing.T) {
	expiry := &countingJob{name: metrics.CronJobOrderExpiry, items: 2}
	retention := &countingJob{name: metrics.CronJobOutboxRetention, items: 1, err: errors.New("boom")}
	reg, err := NewRegistry(expiry, retention)
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronMetrics(promReg, metrics.CronJobOrderExpiry, metrics.CronJobOutboxRetention)
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{Logger: testLogger(), Registry: reg, Lock: lock, Metrics: cronMetrics})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	require.Equal(t, 1, expiry.runs)
	require.Equal(t, 1, retention.runs, "a failing job does not stop the cycle")
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)

	runs, items := gatherCron(t, promReg)
	require.Equal(t, float64(1), runs[metrics.CronJobOrderExpiry+"/ok"])
	require.Equal(t, float64(0), runs[metrics.CronJobOrderExpiry+"/failed"])
	require.Equal(t, float64(1), runs[metrics.CronJobOutboxRetention+"/failed"])
	require.Equal(t, float64(2), items[metrics.CronJobOrderExpiry])
	require.Equal(t, float64(1), items[metrics.CronJobOutboxRetention])
}

func gatherCron(t *testing.T, reg *prometheus.Registry) (runs, items map[string]float64) {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	runs, items = map[string]float64{}, map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			switch mf.GetName() {
			case "petfinder_cron_job_runs_total":
				runs[labels["job"]+"/"+labels["outcome"]] = m.GetCounter().GetValue()
			case "petfinder_cron_job_items_total":
				items[labels["job"]] = m.GetCounter().GetValue()
			}
		}
	}
	return runs, items
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "ok"}
	reg, err := NewRegistry(job)
	require.NoError(t, err)
	lock := &fakeLock{held: true}
	svc, err := NewService(ServiceParams{Logger: testLogger(), Registry: reg, Lock: lock})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	require.Zero(t, job.runs)
	require.Zero(t, lock.releases)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &countingJob{name: "first", onRun: cancel}
	second := &countingJob{name: "second"}
	reg, err := NewRegistry(first, second)
	require.NoError(t, err)
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{Logger: testLogger(), Registry: reg, Lock: lock, Interval: time.Hour})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
	require.Equal(t, 1, first.runs, "first cycle runs before waiting")
	require.Zero(t, second.runs, "jobs after cancellation are skipped")
	require.Equal(t, 1, lock.releases, "lock is released even after cancellation")
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}
