//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func TestCreateChannel_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("chatflow-test"))
	require.NoError(t, err)

	defer func() { assert.NoError(t, container.Terminate(context.Background())) }()

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	t.Setenv("KAFKA_BROKERS", brokers[0])

	logger := log.Discard()

	pub, sub, err := CreateChannel(watermill.NewSlogLogger(logger), "chatflow-test", false)
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(logger, pub, sub)

	defer func() { _ = bus.Close() }()

	received := make(chan *events.WorkflowStarted, 1)

	require.NoError(t, bus.Handle(events.WorkflowStartedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowStarted)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "acme:1", events.WorkflowStarted{
		BaseEvent: events.BaseEvent{
			ID:         bus.GenerateID(),
			Type:       events.WorkflowStartedEvent,
			Timestamp:  time.Now().UTC(),
			CompanyID:  "acme",
			ContactKey: "acme:1",
			WorkflowID: "survey",
		},
	}))

	select {
	case event := <-received:
		assert.Equal(t, "acme:1", event.ContactKey)
		assert.Equal(t, "survey", event.WorkflowID)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}
