package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"farsisub/internal/config"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func TestDisabledPublisherOnlyLogs(t *testing.T) {
	p := New(config.Events{Enabled: false, Topic: "t"}, nil, nil)
	if p.Enabled() {
		t.Fatal("expected disabled publisher")
	}
	if err := p.Publish(context.Background(), Event{Type: TypePreloadCompleted}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEnabledWithoutBrokersStaysDisabled(t *testing.T) {
	if New(config.Events{Enabled: true, Topic: "t"}, nil, nil).Enabled() {
		t.Fatal("expected publisher without brokers to stay disabled")
	}
}

func TestPublishWritesKeyedMessage(t *testing.T) {
	writer := &captureWriter{}
	p := &Publisher{writer: writer, topic: "farsisub.preload", enabled: true, logger: New(config.Events{}, nil, nil).logger}

	event := Event{Type: TypePreloadCompleted, RequestID: "req-1", UserID: "user-9", Segments: 3}
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(writer.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.msgs))
	}
	msg := writer.msgs[0]
	if string(msg.Key) != "user-9" {
		t.Fatalf("key = %q", msg.Key)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RequestID != "req-1" || decoded.Segments != 3 || decoded.At.IsZero() {
		t.Fatalf("unexpected payload %+v", decoded)
	}
	if err := p.Close(); err != nil || !writer.closed {
		t.Fatalf("Close: err=%v closed=%v", err, writer.closed)
	}
}

func TestPublishSurfacesWriteErrors(t *testing.T) {
	writer := &captureWriter{err: errors.New("broker down")}
	p := &Publisher{writer: writer, enabled: true, logger: New(config.Events{}, nil, nil).logger}
	if err := p.Publish(context.Background(), Event{Type: TypePreloadFailed}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	if err := p.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
