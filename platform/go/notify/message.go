// Package notify delivers fire-and-forget webhook notifications.
//
// Producers enqueue Messages into an Outbox in the same unit of work as the data
// change they announce. A Dispatcher drains the outbox in the background and hands
// each message to a Sender, so delivery is at-least-once and never blocks or rolls
// back the producer.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topic selects the webhook a message is delivered to.
type Topic string

const (
	// TopicScheduleSaved announces a created or updated report schedule.
	TopicScheduleSaved Topic = "schedule.saved"
	// TopicScheduleTest requests a one-off test report email.
	TopicScheduleTest Topic = "schedule.test"
)

// Message is one notification waiting for, or undergoing, delivery.
type Message struct {
	ID        uuid.UUID
	Topic     Topic
	Payload   json.RawMessage
	RequestID string
	// Attempts counts completed delivery rounds that failed.
	Attempts  int
	CreatedAt time.Time
}

// NewMessage encodes payload as JSON and stamps a fresh id.
func NewMessage(topic Topic, payload any, requestID string, now time.Time) (Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	return Message{
		ID:        uuid.New(),
		Topic:     topic,
		Payload:   body,
		RequestID: requestID,
		CreatedAt: now.UTC(),
	}, nil
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
