package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxPause       = 10 * time.Second
	pauseJitter    = 250 * time.Millisecond
)

type pinger interface {
	Ping(context.Context) error
}

type txRunner interface {
	pinger
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
	MarkDead(ctx context.Context, id uuid.UUID, cause error, attempts int) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// relayDeps are the collaborators a relay needs. Rows binds the repository
// to the batch transaction so the FOR UPDATE SKIP LOCKED rows stay locked
// until their outcome is written; when nil the plain repository is used.
type relayDeps struct {
	Logger       *logger.Logger
	DB           txRunner
	Broker       pinger
	Repository   outboxRepository
	Rows         func(tx *gorm.DB) outboxRepository
	Events       eventResolver
	PublisherFor func(topic string) publisher
}

// relay moves committed outbox rows (order lifecycle, low stock, lost pet
// reports) onto their Pub/Sub topics.
type relay struct {
	deps        relayDeps
	batchSize   int
	maxAttempts int
	idle        time.Duration
}

type verdict int

const (
	delivered verdict = iota
	retryLater
	giveUp
)

// delivery tracks one row through resolve, publish and record.
type delivery struct {
	row      models.OutboxEvent
	resolved *registry.ResolvedEvent
	pending  publishResult
	cancel   context.CancelFunc
	verdict  verdict
	cause    error
}

func newRelay(cfg config.OutboxConfig, deps relayDeps) (*relay, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("outbox relay: logger is required")
	case deps.DB == nil:
		return nil, errors.New("outbox relay: database is required")
	case deps.Broker == nil:
		return nil, errors.New("outbox relay: pubsub client is required")
	case deps.Repository == nil:
		return nil, errors.New("outbox relay: repository is required")
	case deps.Events == nil:
		return nil, errors.New("outbox relay: event registry is required")
	case deps.PublisherFor == nil:
		return nil, errors.New("outbox relay: publisher lookup is required")
	}
	if deps.Rows == nil {
		repo := deps.Repository
		deps.Rows = func(*gorm.DB) outboxRepository { return repo }
	}
	r := &relay{
		deps:        deps,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		idle:        time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	if r.idle <= 0 {
		r.idle = 500 * time.Millisecond
	}
	return r, nil
}

// Run drains the outbox until ctx ends. A full batch is followed straight
// away by the next; an empty one waits for the poll interval and a failed
// one doubles the wait up to maxPause.
func (r *relay) Run(ctx context.Context) error {
	logg := r.deps.Logger
	if err := r.deps.DB.Ping(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	if err := r.deps.Broker.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not reachable: %w", err)
	}

	pause := r.idle
	for ctx.Err() == nil {
		handled, err := r.drainOnce(ctx)
		switch {
		case err != nil:
			logg.Error(ctx, "outbox batch aborted", err)
			pause = min(pause*2, maxPause)
		case handled >= r.batchSize:
			pause = r.idle
			continue
		default:
			pause = r.idle
		}
		if err := wait(ctx, pause+rand.N(pauseJitter)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// drainOnce handles one batch inside a transaction and reports how many rows
// it claimed. Publish failures are recorded per row; only a failure to read
// or record rows aborts the batch.
func (r *relay) drainOnce(ctx context.Context) (int, error) {
	handled := 0
	err := r.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		rows := r.deps.Rows(tx)
		claimed, err := rows.FetchUnpublished(ctx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		handled = len(claimed)

		batch := make([]*delivery, 0, len(claimed))
		defer func() {
			for _, d := range batch {
				if d.cancel != nil {
					d.cancel()
				}
			}
		}()
		for _, row := range claimed {
			d := &delivery{row: row}
			r.send(ctx, d)
			batch = append(batch, d)
		}
		for _, d := range batch {
			r.settle(ctx, d)
			if err := r.record(ctx, rows, d); err != nil {
				return err
			}
		}
		return nil
	})
	return handled, err
}

// send resolves the row and hands it to the topic publisher without waiting,
// so Pub/Sub can batch the whole claim.
func (r *relay) send(ctx context.Context, d *delivery) {
	resolved, err := r.deps.Events.Resolve(d.row)
	if err != nil {
		d.verdict, d.cause = giveUp, err
		return
	}
	d.resolved = resolved

	topic := resolved.Descriptor.Topic
	pub := r.deps.PublisherFor(topic)
	if pub == nil {
		d.verdict, d.cause = giveUp, fmt.Errorf("no publisher for topic %q", topic)
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	d.cancel = cancel
	d.pending = pub.Publish(pubCtx, messageFor(d.row, resolved))
	if d.pending == nil {
		d.verdict, d.cause = giveUp, fmt.Errorf("publisher for %q returned no result", topic)
	}
}

func (r *relay) settle(ctx context.Context, d *delivery) {
	if d.pending == nil {
		return
	}
	_, err := d.pending.Get(ctx)
	var terminal registry.NonRetryableError
	switch {
	case err == nil:
		d.verdict = delivered
	case errors.As(err, &terminal):
		d.verdict, d.cause = giveUp, err
	case d.row.AttemptCount+1 >= r.maxAttempts:
		d.verdict, d.cause = giveUp, fmt.Errorf("gave up after %d attempts: %w", d.row.AttemptCount+1, err)
	default:
		d.verdict, d.cause = retryLater, err
	}
}

func (r *relay) record(ctx context.Context, rows outboxRepository, d *delivery) error {
	logg := r.deps.Logger
	logCtx := logg.WithFields(ctx, rowFields(d))
	switch d.verdict {
	case delivered:
		if err := rows.MarkPublished(ctx, d.row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", d.row.ID, err)
		}
		logg.Info(logCtx, "outbox event published")
	case retryLater:
		if err := rows.MarkFailed(ctx, d.row.ID, d.cause); err != nil {
			return fmt.Errorf("mark %s failed: %w", d.row.ID, err)
		}
		logg.Warn(logg.WithField(logCtx, "publish_error", d.cause.Error()), "outbox publish failed, will retry")
	case giveUp:
		if err := rows.MarkDead(ctx, d.row.ID, d.cause, r.maxAttempts); err != nil {
			return fmt.Errorf("mark %s dead: %w", d.row.ID, err)
		}
		logg.Error(logCtx, "outbox event dead-lettered", d.cause)
	}
	return nil
}

// messageFor carries the stored envelope unchanged; attributes let
// subscribers filter without decoding it.
func messageFor(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func rowFields(d *delivery) map[string]any {
	fields := map[string]any{
		"outbox_id":     d.row.ID.String(),
		"event_type":    d.row.EventType,
		"aggregate_id":  d.row.AggregateID.String(),
		"attempt_count": d.row.AttemptCount,
	}
	if d.resolved != nil {
		fields["topic"] = d.resolved.Descriptor.Topic
		fields["event_id"] = d.resolved.Envelope.EventID
	}
	return fields
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// topicPublisher adapts the Pub/Sub client to the publisher interface.
type topicPublisher struct {
	p *gcppubsub.Publisher
}

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return t.p.Publish(ctx, msg)
}

// publishersFrom caches one Pub/Sub publisher per topic; creating them per
// message would defeat client side batching. stop flushes and releases them.
func publishersFrom(client interface {
	Publisher(name string) *gcppubsub.Publisher
}) (lookup func(topic string) publisher, stop func()) {
	cache := map[string]*gcppubsub.Publisher{}
	lookup = func(topic string) publisher {
		raw, ok := cache[topic]
		if !ok {
			if raw = client.Publisher(topic); raw == nil {
				return nil
			}
			cache[topic] = raw
		}
		return topicPublisher{p: raw}
	}
	stop = func() {
		for _, raw := range cache {
			raw.Stop()
		}
	}
	return lookup, stop
}

var _ outboxRepository = (*outbox.Repository)(nil)
