package events

import (
	"context"
	"fmt"

	"labbook/pkg/kafka"
	"labbook/pkg/middleware"
)

// MessagePublisher is the part of *kafka.Producer the publisher needs.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer MessagePublisher
}

func NewKafkaPublisher(producer MessagePublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys events by device so every event for one device lands on the same
// partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, event *BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.DeviceID).
		WithValue(event).
		WithEventType(string(event.Type)).
		WithSource(Source).
		WithSchemaVersion(SchemaVersion).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", event.Type, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Decode reads a BookingEvent back out of a consumed message.
func Decode(msg kafka.Message) (*BookingEvent, error) {
	var event BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return nil, kafka.NewPermanentError("failed to decode booking event", err)
	}
	if event.Type == "" {
		event.Type = Type(msg.GetEventType())
	}
	if event.BookingID == "" {
		return nil, kafka.NewPermanentError("booking event has no booking_id", nil)
	}
	return &event, nil
}
