// Package events publishes preload lifecycle events to Kafka. When Kafka is
// disabled the publisher only logs the events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"farsisub/internal/config"
	"farsisub/internal/logging"
	"farsisub/internal/metrics"
)

// Event types.
const (
	TypePreloadCompleted = "preload.completed"
	TypePreloadFailed    = "preload.failed"
	TypeQuotaRejected    = "preload.quota_rejected"
)

// Event describes the outcome of one preload request.
type Event struct {
	Type           string    `json:"type"`
	RequestID      string    `json:"requestId"`
	UserID         string    `json:"userId"`
	VideoURL       string    `json:"videoUrl"`
	ErrorKind      string    `json:"errorKind,omitempty"`
	Error          string    `json:"error,omitempty"`
	Segments       int       `json:"segments"`
	FailedSegments int       `json:"failedSegments"`
	UsedSeconds    int64     `json:"usedSeconds"`
	LimitSeconds   int64     `json:"limitSeconds"`
	DurationMillis int64     `json:"durationMs"`
	At             time.Time `json:"at"`
}

// Sink accepts events.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes events to a Kafka topic keyed by user id.
type Publisher struct {
	writer  messageWriter
	topic   string
	enabled bool
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a publisher from the events config section.
func New(cfg config.Events, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "events")
	p := &Publisher{topic: cfg.Topic, logger: logger, metrics: m}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Debug("kafka disabled; events are logged only")
		return p
	}

	writeTimeout := time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{DialTimeout: 10 * time.Second, ClientID: "farsisub"},
	}
	p.enabled = true
	logger.Info("kafka publisher initialized",
		logging.String("brokers", strings.Join(cfg.Brokers, ",")),
		logging.String("topic", cfg.Topic),
	)
	return p
}

// Enabled reports whether events reach Kafka.
func (p *Publisher) Enabled() bool {
	return p != nil && p.enabled
}

// Publish writes event. With Kafka disabled it only logs at debug level.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.logger.Debug("publishing event",
		logging.String(logging.FieldEventType, event.Type),
		logging.String(logging.FieldRequestID, event.RequestID),
		logging.String("topic", p.topic),
	)
	if !p.enabled || p.writer == nil {
		p.metrics.RecordEvent(event.Type, nil)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.Type)},
			{Key: "requestId", Value: []byte(event.RequestID)},
		},
	}
	err = p.writer.WriteMessages(ctx, msg)
	p.metrics.RecordEvent(event.Type, err)
	if err != nil {
		logging.WarnWithContext(p.logger, "event publish failed", "event_publish_failed",
			logging.String("topic", p.topic),
			logging.String(logging.FieldErrorHint, "check events.brokers and topic permissions"),
			logging.Error(err),
		)
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
