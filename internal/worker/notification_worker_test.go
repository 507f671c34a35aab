package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/user-directory/internal/events"
	"github.com/spec-kit/user-directory/internal/service"
)

type countingBroker struct {
	published int
}

func (b *countingBroker) Publish(context.Context, string, []byte) error {
	b.published++
	return nil
}

func (b *countingBroker) Close() error { return nil }

func TestStartEventWorkers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher()
	broker := &countingBroker{}

	StartEventWorkers(dispatcher,
		service.NewNotificationService(dispatcher, logger),
		events.NewForwarder(broker, "users", logger))

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventUserDeleted, UserID: "u1"}))

	assert.Equal(t, 1, broker.published)
	require.Equal(t, 1, logs.FilterMessage("UserDeleted").Len())
	assert.Equal(t, "u1", logs.FilterMessage("UserDeleted").All()[0].ContextMap()["user_id"])
}

func TestStartEventWorkersWithoutBroker(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	StartEventWorkers(dispatcher, nil, nil)
	StartEventWorkers(nil, nil, nil)

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventUserCreated}))
}
