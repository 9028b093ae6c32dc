// Package notifier consumes booking events and writes them to the audit log.
package notifier

import (
	"context"
	"fmt"
	"time"

	"labbook/internal/events"
	"labbook/pkg/kafka"
	"labbook/pkg/logger"
)

type Auditor struct {
	log *logger.Logger
	now func() time.Time
}

func NewAuditor(log *logger.Logger) *Auditor {
	return &Auditor{
		log: log,
		now: time.Now,
	}
}

// Handle records one booking event. Undecodable messages and unknown event types
// are permanent failures so the consumer parks them in the DLQ without retrying.
func (a *Auditor) Handle(ctx context.Context, msg kafka.Message) error {
	event, err := events.Decode(msg)
	if err != nil {
		return err
	}

	switch event.Type {
	case events.TypeBookingCreated, events.TypeBookingStatusChanged, events.TypeBookingDeleted:
	default:
		return kafka.NewPermanentError(fmt.Sprintf("unknown booking event type %q", event.Type), nil)
	}

	args := []any{
		"event_type", event.Type,
		"event_id", msg.GetEventID(),
		"correlation_id", msg.GetCorrelationID(),
		"booking_id", event.BookingID,
		"device_id", event.DeviceID,
		"owner_id", event.OwnerID,
		"actor_id", event.ActorID,
		"start_time", event.Start,
		"end_time", event.End,
		"to_status", event.ToStatus,
	}
	if event.FromStatus != "" {
		args = append(args, "from_status", event.FromStatus)
	}
	if !event.OccurredAt.IsZero() {
		args = append(args, "lag_ms", a.now().Sub(event.OccurredAt).Milliseconds())
	}

	a.log.InfoContext(ctx, "Booking audit", args...)
	return nil
}
