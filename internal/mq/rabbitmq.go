package mq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rosterhq/playerapi/config"
	"github.com/rosterhq/playerapi/types"
)

// RabbitMQClient publishes player events to queues on the default exchange
// with publisher confirms and consumes them with manual acknowledgement.
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel

	durable       bool
	autoDelete    bool
	prefetchCount int

	mu       sync.Mutex
	declared map[string]struct{}
}

// NewRabbitMQClient dials the broker and puts the channel in confirm mode.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	return &RabbitMQClient{
		conn:          conn,
		channel:       ch,
		durable:       cfg.QueueDurable,
		autoDelete:    cfg.QueueAutoDelete,
		prefetchCount: cfg.PrefetchCount,
		declared:      make(map[string]struct{}),
	}, nil
}

// Publish sends an event to the named queue and waits for the broker to
// confirm it.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}
	if err := r.ensureQueue(channel); err != nil {
		return "", err
	}

	msg := eventPublishing(data, attrs, r.durable, time.Now())
	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(ctx, "", channel, false, false, msg)
	if err != nil {
		return "", err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", err
	}
	if !acked {
		return "", fmt.Errorf("rabbitmq rejected message %s", msg.MessageId)
	}
	return msg.MessageId, nil
}

// Subscribe consumes the named queue until ctx is done. At most
// prefetchCount deliveries are unacknowledged at a time.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}
	if err := r.ensureQueue(channel); err != nil {
		return err
	}
	if r.prefetchCount > 0 {
		if err := r.channel.Qos(r.prefetchCount, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	consumerTag := "roster-" + uuid.NewString()
	deliveries, err := r.channel.Consume(channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := settle(delivery, handler(ctx, deliveryMessage(delivery))); err != nil {
				return fmt.Errorf("settle delivery %d: %w", delivery.DeliveryTag, err)
			}
		}
	}
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) ensureQueue(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.declared[name]; ok {
		return nil
	}
	if _, err := r.channel.QueueDeclare(name, r.durable, r.autoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	r.declared[name] = struct{}{}
	return nil
}

// eventPublishing maps event attributes onto AMQP properties. The event type
// becomes the message type and the player id travels as an integer header.
func eventPublishing(data []byte, attrs map[string]string, persistent bool, now time.Time) amqp.Publishing {
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		if key == types.EventPlayerIDAttribute {
			if id, err := strconv.ParseInt(value, 10, 64); err == nil {
				headers[key] = id
				continue
			}
		}
		headers[key] = value
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		MessageId:    uuid.NewString(),
		Timestamp:    now.UTC(),
		Type:         attrs[types.EventTypeAttribute],
		Headers:      headers,
		Body:         data,
	}
	if persistent {
		msg.DeliveryMode = amqp.Persistent
	}
	return msg
}

func deliveryMessage(delivery amqp.Delivery) Message {
	attrs := headersToAttributes(delivery.Headers)
	if delivery.Type != "" {
		if attrs == nil {
			attrs = make(map[string]string, 1)
		}
		if _, ok := attrs[types.EventTypeAttribute]; !ok {
			attrs[types.EventTypeAttribute] = delivery.Type
		}
	}
	return Message{ID: delivery.MessageId, Data: delivery.Body, Attributes: attrs}
}

// settle acknowledges a handled delivery. Failed deliveries are requeued
// once; a second failure or ErrDiscard drops them.
func settle(delivery amqp.Delivery, handlerErr error) error {
	switch {
	case handlerErr == nil:
		return delivery.Ack(false)
	case errors.Is(handlerErr, ErrDiscard):
		return delivery.Reject(false)
	default:
		return delivery.Nack(false, !delivery.Redelivered)
	}
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
