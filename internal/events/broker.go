package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/config"
)

// Broker publishes encoded events to an external channel.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte) error
	Close() error
}

// Forwarder relays dispatched events to a Broker as JSON.
type Forwarder struct {
	broker  Broker
	channel string
	logger  *zap.Logger
}

// NewForwarder constructs a forwarder.
func NewForwarder(broker Broker, channel string, logger *zap.Logger) *Forwarder {
	return &Forwarder{broker: broker, channel: channel, logger: logger}
}

// Register subscribes the forwarder to every user event.
func (f *Forwarder) Register(dispatcher Dispatcher) {
	if f == nil || f.broker == nil || dispatcher == nil {
		return
	}
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, f.forward)
	}
}

// Close closes the underlying broker.
func (f *Forwarder) Close() error {
	if f == nil || f.broker == nil {
		return nil
	}
	return f.broker.Close()
}

func (f *Forwarder) forward(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := f.broker.Publish(ctx, f.channel, data); err != nil {
		f.logger.Warn("event forward failed",
			zap.String("event_type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Error(err))
		return err
	}
	return nil
}

// NewBroker builds the broker selected by cfg.Backend. It returns nil for the none backend.
func NewBroker(cfg config.EventsConfig, redis RedisPublisher) (Broker, error) {
	switch cfg.Backend {
	case config.EventsBackendRedis:
		if redis == nil {
			return nil, fmt.Errorf("redis broker requires a redis client")
		}
		return NewRedisBroker(redis), nil
	case config.EventsBackendRabbitMQ:
		return NewRabbitMQBroker(cfg.RabbitMQURL)
	default:
		return nil, nil
	}
}
