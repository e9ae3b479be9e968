package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// EventType names a session lifecycle transition.
type EventType string

const (
	EventLogin   EventType = "login"
	EventReissue EventType = "reissue"
	EventLogout  EventType = "logout"
)

// Topic is the message topic a given event type is published on.
func Topic(t EventType) string {
	return "auth." + string(t)
}

// SessionEvent is published after a successful login, reissue or logout.
type SessionEvent struct {
	Type       EventType `json:"type"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers session events to other services.
type Publisher interface {
	PublishSessionEvent(ctx context.Context, ev SessionEvent) error
}

// WatermillPublisher implements Publisher on any Watermill message.Publisher
// (Redis Streams in production, gochannel in tests).
type WatermillPublisher struct {
	publisher message.Publisher
}

func NewWatermillPublisher(p message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: p}
}

func (p *WatermillPublisher) PublishSessionEvent(ctx context.Context, ev SessionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(Topic(ev.Type), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the underlying Watermill publisher.
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishSessionEvent(context.Context, SessionEvent) error { return nil }
