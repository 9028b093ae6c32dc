// Package events publishes booking lifecycle events.
package events

import (
	"context"
	"time"

	"labbook/pkg/model"
)

type Type string

const (
	TypeBookingCreated       Type = "booking.created"
	TypeBookingStatusChanged Type = "booking.status_changed"
	TypeBookingDeleted       Type = "booking.deleted"
)

const (
	Source        = "bookings"
	SchemaVersion = "1"
)

type BookingEvent struct {
	Type       Type                `json:"type"`
	BookingID  string              `json:"booking_id"`
	DeviceID   string              `json:"device_id"`
	OwnerID    string              `json:"owner_id"`
	ActorID    string              `json:"actor_id"`
	FromStatus model.BookingStatus `json:"from_status,omitempty"`
	ToStatus   model.BookingStatus `json:"to_status,omitempty"`
	Start      time.Time           `json:"start_time"`
	End        time.Time           `json:"end_time"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func NewBookingEvent(t Type, b *model.Booking, actorID string) *BookingEvent {
	return &BookingEvent{
		Type:       t,
		BookingID:  b.ID,
		DeviceID:   b.DeviceID,
		OwnerID:    b.OwnerID,
		ActorID:    actorID,
		ToStatus:   b.Status,
		Start:      b.Start,
		End:        b.End,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers booking events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event *BookingEvent) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *BookingEvent) error {
	return nil
}
