package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"credstore/internal/platform/kafka"
)

// MessageProducer is the subset of kafka.Producer used to stream events.
type MessageProducer interface {
	ProduceAsync(msg *kafka.Message) error
}

// StreamingStore appends to a primary Store and then forwards each event to
// a Kafka topic. The primary store stays the source of truth; a failed
// forward is logged and does not fail the append.
type StreamingStore struct {
	Store
	producer MessageProducer
	topic    string
	logger   *slog.Logger
}

func NewStreamingStore(primary Store, producer MessageProducer, topic string, logger *slog.Logger) *StreamingStore {
	return &StreamingStore{
		Store:    primary,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

type eventMessage struct {
	Timestamp  time.Time `json:"timestamp"`
	Resource   string    `json:"resource"`
	ResourceID int64     `json:"resource_id"`
	Action     Action    `json:"action"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (s *StreamingStore) Append(ctx context.Context, event Event) error {
	if err := s.Store.Append(ctx, event); err != nil {
		return err
	}

	msg, err := newMessage(s.topic, event)
	if err == nil {
		err = s.producer.ProduceAsync(msg)
	}
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to stream audit event",
			"error", err,
			"resource", event.Resource,
			"resource_id", event.ResourceID,
			"action", event.Action,
		)
	}
	return nil
}

// newMessage keys records by resource and id so every event for one
// resource lands on the same partition in order.
func newMessage(topic string, event Event) (*kafka.Message, error) {
	value, err := json.Marshal(eventMessage{
		Timestamp:  event.Timestamp.UTC(),
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		Action:     event.Action,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode audit event: %w", err)
	}
	return &kafka.Message{
		Topic: topic,
		Key:   fmt.Appendf(nil, "%s:%d", event.Resource, event.ResourceID),
		Value: value,
		Headers: map[string]string{
			"action": string(event.Action),
		},
	}, nil
}
