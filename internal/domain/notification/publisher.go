package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is the payload pushed to clients over WebSocket.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Publisher implements the payment Notifier contract on top of the hub.
type Publisher struct {
	hub *Hub
}

// NewPublisher creates a publisher. A nil hub disables delivery.
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// Notify pushes an event to all of the user's active connections. Delivery
// is best-effort: failures are logged, never surfaced to the caller's flow.
func (p *Publisher) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
	if p == nil || p.hub == nil {
		return
	}

	payload := Event{
		Type:      event,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.hub.SendToUser(userID, payload); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("event", event).
			Msg("Failed to deliver notification")
	}
}
