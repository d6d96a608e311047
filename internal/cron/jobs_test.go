package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/internal/orders"
)

type fakePruner struct {
	cutoff  time.Time
	dead    int
	calls   int
	deleted int64
	err     error
}

func (f *fakePruner) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	f.dead = minAttempts
	return f.deleted, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func TestOutboxRetentionJobUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pruner := &fakePruner{deleted: 3}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:    testLogger(),
		DB:        passthroughTx{},
		Outbox:    pruner,
		Retention: 48 * time.Hour,
	})
	require.NoError(t, err)
	job.(*outboxRetentionJob).now = func() time.Time { return now }

	require.Equal(t, "outbox_retention", job.Name())
	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Report{Items: 3, Unit: "events_pruned"}, report)
	require.Equal(t, 1, pruner.calls)
	require.True(t, pruner.cutoff.Equal(now.Add(-48*time.Hour)))
	require.Equal(t, defaultDeadAttempts, pruner.dead)
}

func TestOutboxRetentionJobPropagatesErrors(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: testLogger(),
		DB:     passthroughTx{},
		Outbox: &fakePruner{err: errors.New("db down")},
	})
	require.NoError(t, err)
	report, err := job.Run(context.Background())
	require.ErrorContains(t, err, "db down")
	require.Zero(t, report.Items)
}

type fakeExpirer struct {
	cutoff time.Time
	res    *orders.ExpiryResult
	err    error
}

func (f *fakeExpirer) ExpireStalePending(_ context.Context, cutoff time.Time) (*orders.ExpiryResult, error) {
	f.cutoff = cutoff
	return f.res, f.err
}

func TestOrderExpiryJobComputesCutoffFromTTL(t *testing.T) {
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	expirer := &fakeExpirer{res: &orders.ExpiryResult{Scanned: 2, Expired: []uuid.UUID{uuid.New()}}}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: testLogger(), Orders: expirer, TTL: 24 * time.Hour})
	require.NoError(t, err)
	job.(*orderExpiryJob).now = func() time.Time { return now }

	require.Equal(t, "order_expiry", job.Name())
	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Report{Items: 1, Unit: "orders_expired"}, report)
	require.True(t, expirer.cutoff.Equal(now.Add(-24*time.Hour)))
}

func TestOrderExpiryJobReturnsPartialFailure(t *testing.T) {
	expirer := &fakeExpirer{
		res: &orders.ExpiryResult{Scanned: 3, Expired: []uuid.UUID{uuid.New(), uuid.New()}},
		err: errors.New("one order failed"),
	}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: testLogger(), Orders: expirer})
	require.NoError(t, err)
	report, err := job.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, int64(2), report.Items, "orders expired before the failure are still reported")
}

type memStore struct {
	values map[string]string
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockReleasesOnlyOwnLease(t *testing.T) {
	ctx := context.Background()
	store := &memStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "pf:lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "pf:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// simulate the first lease expiring and the second worker taking over
	delete(store.values, "pf:lock:cron")
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, first.Release(ctx))
	require.Contains(t, store.values, "pf:lock:cron")
	require.NoError(t, second.Release(ctx))
	require.NotContains(t, store.values, "pf:lock:cron")
}
