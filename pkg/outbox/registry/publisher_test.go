package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	orderID := uuid.New()
	event := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.OrderCreatedEvent{
			OrderID:     orderID,
			OrderNumber: "PF-20251001-ABC123",
			TotalCents:  49000,
			Currency:    enums.CurrencyCOP,
		})),
	}

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	require.Equal(t, "orders-topic", resolved.Descriptor.Topic)

	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	require.Equal(t, orderID, payload.OrderID)
	require.Equal(t, int64(49000), payload.TotalCents)
	require.NotEmpty(t, resolved.Envelope.EventID)
	require.False(t, resolved.Envelope.OccurredAt.IsZero())
}

func TestEventRegistryRoutesByAggregate(t *testing.T) {
	reg := newTestEventRegistry(t)

	stock := models.OutboxEvent{
		EventType:     enums.EventStockLow,
		AggregateType: enums.AggregateProduct,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"sku":"collar-qr-m","stock":2}`)),
	}
	resolved, err := reg.Resolve(stock)
	require.NoError(t, err)
	require.Equal(t, "catalog-topic", resolved.Descriptor.Topic)

	lost := models.OutboxEvent{
		EventType:     enums.EventPetReportedLost,
		AggregateType: enums.AggregatePet,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"qr_id":"AbC123xyZ789","name":"Luna"}`)),
	}
	resolved, err = reg.Resolve(lost)
	require.NoError(t, err)
	require.Equal(t, "pets-topic", resolved.Descriptor.Topic)

	require.ElementsMatch(t, []string{"orders-topic", "catalog-topic", "pets-topic"}, reg.Topics())
}

func TestEventRegistryResolveRejects(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("cart_abandoned"),
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregatePet,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"corrupt envelope": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			require.True(t, errors.As(err, &nonRetry), "expected non-retryable error, got %T", err)
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	require.Error(t, err)
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		OrdersTopic:  "orders-topic",
		CatalogTopic: "catalog-topic",
		PetsTopic:    "pets-topic",
	})
	require.NoError(t, err)
	return reg
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	require.NoError(t, err)
	return data
}
