package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rosterhq/playerapi/types"
)

// EventPublisher is the broker operation needed to announce roster changes.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// PlayerEvents publishes player lifecycle events. A nil *PlayerEvents
// publishes nothing.
type PlayerEvents struct {
	publisher EventPublisher
	channel   string
	logger    *slog.Logger
	now       func() time.Time
}

func NewPlayerEvents(publisher EventPublisher, channel string, logger *slog.Logger) *PlayerEvents {
	return &PlayerEvents{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		now:       time.Now,
	}
}

// publish is best effort: the write already committed, so failures are
// logged and swallowed.
func (e *PlayerEvents) publish(ctx context.Context, eventType types.PlayerEventType, playerID int64, player *types.Player) {
	if e == nil || e.publisher == nil {
		return
	}

	event := types.PlayerEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		PlayerID:   playerID,
		Player:     player,
		OccurredAt: e.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("encode player event", slog.String("type", string(eventType)), slog.Any("error", err))
		return
	}

	attrs := map[string]string{
		types.EventTypeAttribute:     string(eventType),
		types.EventPlayerIDAttribute: strconv.FormatInt(playerID, 10),
	}
	if _, err := e.publisher.Publish(ctx, e.channel, data, attrs); err != nil {
		e.logger.Warn("publish player event",
			slog.String("type", string(eventType)),
			slog.Int64("player_id", playerID),
			slog.Any("error", err),
		)
	}
}

// DecodePlayerEvent parses an event payload as published by PlayerEvents.
func DecodePlayerEvent(data []byte) (types.PlayerEvent, error) {
	var event types.PlayerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return types.PlayerEvent{}, fmt.Errorf("decode player event: %w", err)
	}
	switch event.Type {
	case types.PlayerCreated, types.PlayerUpdated, types.PlayerDeleted:
	default:
		return types.PlayerEvent{}, fmt.Errorf("unknown player event type %q", event.Type)
	}
	if event.PlayerID < 1 {
		return types.PlayerEvent{}, fmt.Errorf("player event %s has no player id", event.ID)
	}
	return event, nil
}
