package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"labbook/internal/events"
	"labbook/pkg/kafka"
	"labbook/pkg/logger"
	"labbook/pkg/model"
)

func newTestAuditor(buf *bytes.Buffer, now time.Time) *Auditor {
	a := NewAuditor(logger.New(logger.Config{
		Level:   "info",
		Format:  logger.JSON,
		Output:  buf,
		Service: "test",
	}))
	a.now = func() time.Time { return now }
	return a
}

func buildMessage(t *testing.T, event *events.BookingEvent) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().
		WithKey(event.DeviceID).
		WithValue(event).
		WithEventType(string(event.Type)).
		WithCorrelationID("req-1").
		Build()
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	return msg
}

func TestHandle_WritesAuditLine(t *testing.T) {
	occurred := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	a := newTestAuditor(&buf, occurred.Add(1500*time.Millisecond))

	event := &events.BookingEvent{
		Type:       events.TypeBookingStatusChanged,
		BookingID:  "b1",
		DeviceID:   "d1",
		OwnerID:    "u1",
		ActorID:    "admin",
		FromStatus: model.StatusPending,
		ToStatus:   model.StatusApproved,
		Start:      occurred.Add(time.Hour),
		End:        occurred.Add(2 * time.Hour),
		OccurredAt: occurred,
	}

	if err := a.Handle(context.Background(), buildMessage(t, event)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("audit line is not JSON: %v: %s", err, buf.String())
	}

	want := map[string]any{
		"msg":            "Booking audit",
		"event_type":     "booking.status_changed",
		"booking_id":     "b1",
		"from_status":    "PENDING",
		"to_status":      "APPROVED",
		"correlation_id": "req-1",
	}
	for key, value := range want {
		if line[key] != value {
			t.Errorf("%s = %v, want %v", key, line[key], value)
		}
	}
	if line["lag_ms"] != float64(1500) {
		t.Errorf("lag_ms = %v, want 1500", line["lag_ms"])
	}
}

func TestHandle_CreatedHasNoFromStatus(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAuditor(&buf, time.Now())

	b := &model.Booking{ID: "b1", DeviceID: "d1", OwnerID: "u1", Status: model.StatusPending}
	event := events.NewBookingEvent(events.TypeBookingCreated, b, "u1")

	if err := a.Handle(context.Background(), buildMessage(t, event)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := line["from_status"]; ok {
		t.Errorf("created event should not log from_status")
	}
}

func TestHandle_PermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		msg  kafka.Message
	}{
		{
			name: "not json",
			msg:  kafka.Message{Value: []byte("not-json"), Headers: map[string]string{}},
		},
		{
			name: "missing booking id",
			msg:  kafka.Message{Value: []byte(`{"type":"booking.created"}`), Headers: map[string]string{}},
		},
		{
			name: "unknown type",
			msg:  kafka.Message{Value: []byte(`{"type":"booking.archived","booking_id":"b1"}`), Headers: map[string]string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			a := newTestAuditor(&buf, time.Now())

			err := a.Handle(context.Background(), tt.msg)
			var kerr *kafka.KafkaError
			if !errors.As(err, &kerr) || kerr.Type != kafka.ErrorTypePermanent {
				t.Fatalf("Handle() error = %v, want permanent KafkaError", err)
			}
			if kafka.ShouldRetry(err, 0, 3) {
				t.Error("permanent failure must not be retried")
			}
			if buf.Len() != 0 {
				t.Errorf("nothing should be audited, got %s", buf.String())
			}
		})
	}
}
