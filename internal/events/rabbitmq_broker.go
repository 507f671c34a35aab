package events

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQBroker publishes events to a durable queue named after the channel.
type RabbitMQBroker struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	mu       sync.Mutex
	declared map[string]struct{}
}

// NewRabbitMQBroker dials RabbitMQ and opens a channel.
func NewRabbitMQBroker(url string) (*RabbitMQBroker, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQBroker{
		conn:     conn,
		channel:  ch,
		declared: map[string]struct{}{},
	}, nil
}

// Publish sends data to the named queue.
func (r *RabbitMQBroker) Publish(ctx context.Context, channel string, data []byte) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	// amqp channels are not safe for concurrent publishing.
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.declared[channel]; !ok {
		if _, err := r.channel.QueueDeclare(channel, true, false, false, false, nil); err != nil {
			return err
		}
		r.declared[channel] = struct{}{}
	}

	return r.channel.PublishWithContext(ctx, "", channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Body:         data,
	})
}

// Close closes the channel and connection.
func (r *RabbitMQBroker) Close() error {
	var errs []error
	if r.channel != nil {
		errs = append(errs, r.channel.Close())
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
	}
	return errors.Join(errs...)
}
