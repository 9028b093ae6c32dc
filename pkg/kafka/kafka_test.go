package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"labbook/pkg/logger"

	kafkago "github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func headerValue(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func testMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey("device-1").
		WithValue(map[string]string{"booking_id": "b1"}).
		WithEventType("booking.created").
		WithSource("bookings").
		Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return msg
}

func TestMessageBuilder(t *testing.T) {
	msg := testMessage(t)

	if msg.GetEventID() == "" {
		t.Error("expected a generated event id")
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Error("expected a timestamp header")
	}
	var payload map[string]string
	if err := msg.DecodeValue(&payload); err != nil || payload["booking_id"] != "b1" {
		t.Errorf("unexpected payload %v (err %v)", payload, err)
	}

	if _, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build(); err == nil {
		t.Error("expected an encoding error for an unencodable value")
	}
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	if got := msg.GetRetryCount(); got != 12 {
		t.Errorf("retry count = %d, want 12", got)
	}
}

func TestProducer_Publish(t *testing.T) {
	log := logger.Discard()
	writer := &fakeWriter{}
	p := newProducer(writer, nil, "booking-events", "", log)

	var order []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "outer")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "inner")
		if msg.Topic != "booking-events" {
			t.Errorf("middleware saw topic %q", msg.Topic)
		}
		return next(ctx, msg)
	})

	if err := p.Publish(context.Background(), testMessage(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 written message, got %d", len(writer.messages))
	}
	if headerValue(writer.messages[0], HeaderEventType) != "booking.created" {
		t.Error("event type header not written")
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("unexpected middleware order: %v", order)
	}
}

func TestProducer_RejectsInvalidMessages(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "t", "", logger.Discard())

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}

	_ = p.Close()
	if err := p.Publish(context.Background(), testMessage(t)); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestProducer_FailedWriteGoesToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	writer := &fakeWriter{err: writeErr}
	dlq := &fakeWriter{}
	p := newProducer(writer, dlq, "booking-events", "dlq-booking-events", logger.Discard())

	msg := testMessage(t)
	err := p.Publish(context.Background(), msg)
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(dlq.messages))
	}
	if headerValue(dlq.messages[0], HeaderOriginalTopic) != "booking-events" {
		t.Error("DLQ message should record the original topic")
	}
	if _, ok := msg.Headers[HeaderDLQError]; ok {
		t.Error("caller's headers must not be modified")
	}
}

type fakeReader struct{}

func (fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}
func (fakeReader) CommitMessages(context.Context, ...kafkago.Message) error { return nil }
func (fakeReader) Close() error { return nil }

func TestConsumer_RetriesTransientThenDLQ(t *testing.T) {
	dlq := &fakeWriter{}
	calls := 0
	handler := func(ctx context.Context, msg Message) error {
		calls++
		return NewTransientError("mongo unavailable", errors.New("connection refused"))
	}
	c := newConsumer(fakeReader{}, dlq, "booking-events", "notifier", "dlq", handler, logger.Discard())
	c.maxRetries = 2
	c.retryBackoff = 0

	err := c.processMessage(context.Background(), testMessage(t))
	if err == nil {
		t.Fatal("expected the handler error")
	}
	if calls != 3 {
		t.Errorf("expected 1 attempt plus 2 retries, got %d calls", calls)
	}
	if len(dlq.messages) != 1 || headerValue(dlq.messages[0], HeaderDLQGroup) != "notifier" {
		t.Errorf("expected the message in the DLQ with the group header, got %v", dlq.messages)
	}
}

func TestConsumer_PermanentErrorSkipsRetries(t *testing.T) {
	calls := 0
	handler := func(ctx context.Context, msg Message) error {
		calls++
		return NewPermanentError("bad payload", nil)
	}
	c := newConsumer(fakeReader{}, nil, "booking-events", "notifier", "", handler, logger.Discard())

	if err := c.processMessage(context.Background(), testMessage(t)); err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("permanent errors should not be retried, got %d calls", calls)
	}
}

func TestConsumer_StartStopsOnCancel(t *testing.T) {
	c := newConsumer(fakeReader{}, nil, "t", "g", "", func(context.Context, Message) error { return nil }, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrConsumerClosed) {
		t.Errorf("expected ErrConsumerClosed, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypeUnknown},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorTypeTransient},
		{name: "refused", err: errors.New("dial tcp: Connection Refused"), want: ErrorTypeTransient},
		{name: "typed permanent", err: NewPermanentError("bad", nil), want: ErrorTypePermanent},
		{name: "unknown", err: errors.New("schema mismatch"), want: ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}
