package types

import "time"

// PlayerEventType identifies a roster change.
type PlayerEventType string

const (
	PlayerCreated PlayerEventType = "player.created"
	PlayerUpdated PlayerEventType = "player.updated"
	PlayerDeleted PlayerEventType = "player.deleted"
)

// Message attributes carried alongside every player event.
const (
	EventTypeAttribute     = "type"
	EventPlayerIDAttribute = "playerId"
)

// PlayerEvent is published to the message broker after a successful write.
type PlayerEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	Type     PlayerEventType `json:"type"`
	PlayerID int64           `json:"playerId"`

	// Player is the state after the change. Nil for deletions.
	Player *Player `json:"player,omitempty"`

	OccurredAt time.Time `json:"occurredAt"`
}
