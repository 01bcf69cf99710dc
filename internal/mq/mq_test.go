package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/playerapi/config"
)

type stubBackend struct {
	published []string
	closed    bool
}

func (b *stubBackend) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	b.published = append(b.published, channel+":"+string(data))
	return "id-1", nil
}

func (b *stubBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return handler(ctx, Message{ID: "id-1", Data: []byte(channel)})
}

func (b *stubBackend) Close() error {
	b.closed = true
	return nil
}

func TestOpenWithoutBackendDisablesEvents(t *testing.T) {
	broker, err := Open(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	assert.Nil(t, broker)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "kafka"})
	require.Error(t, err)
}

func TestOpenRabbitMQRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "rabbitmq"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq url is required")
}

func TestOpenPubSubRequiresProject(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "pubsub"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project id is required")
}

func TestMQDelegatesToBackend(t *testing.T) {
	backend := &stubBackend{}
	broker := New(backend)

	id, err := broker.Publish(context.Background(), "player-events", []byte("{}"), nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, []string{"player-events:{}"}, backend.published)

	var received Message
	err = broker.Subscribe(context.Background(), "player-events", func(_ context.Context, msg Message) error {
		received = msg
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "player-events", string(received.Data))

	require.NoError(t, broker.Close())
	assert.True(t, backend.closed)
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))

	attrs := headersToAttributes(amqp.Table{
		"type":     "player.created",
		"playerId": []byte("7"),
		"attempt":  int32(2),
	})
	assert.Equal(t, map[string]string{
		"type":     "player.created",
		"playerId": "7",
		"attempt":  "2",
	}, attrs)
}
