package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig holds Kafka producer settings.
type ProducerConfig struct {
	Brokers      []string
	ClientID     string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	// MaxAttempts bounds delivery attempts per batch.
	MaxAttempts int
}

// DefaultProducerConfig returns storefront defaults for brokers.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		ClientID:     "storefront",
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  3,
	}
}

// Producer writes events with a kafka-go writer, keyed by aggregate ID.
type Producer struct {
	writer *kafka.Writer
	dialer *kafka.Dialer
	cfg    ProducerConfig
	logger *slog.Logger
}

// NewProducer creates a producer. Connections are opened lazily on the
// first write.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           cfg.BatchTimeout,
			WriteTimeout:           cfg.WriteTimeout,
			MaxAttempts:            cfg.MaxAttempts,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			Transport:              &kafka.Transport{ClientID: cfg.ClientID},
		},
		dialer: &kafka.Dialer{ClientID: cfg.ClientID, Timeout: cfg.WriteTimeout},
		cfg:    cfg,
		logger: logger,
	}
}

// Publish writes e to topic and waits for the brokers to acknowledge it.
func (p *Producer) Publish(ctx context.Context, topic string, e *Event) error {
	msg, err := toMessage(topic, e)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to %s: %w", e.Type, topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_id", e.ID),
		slog.String("aggregate_id", e.Aggregate.ID),
	)
	return nil
}

// toMessage encodes e with its routing metadata copied into headers so
// consumers can filter without decoding the body.
func toMessage(topic string, e *Event) (kafka.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", e.ID, err)
	}

	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(e.Type)},
		{Key: "aggregate_type", Value: []byte(e.Aggregate.Type)},
	}
	if e.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation_id", Value: []byte(e.CorrelationID)})
	}

	return kafka.Message{
		Topic:   topic,
		Key:     []byte(e.Aggregate.ID),
		Value:   body,
		Headers: headers,
		Time:    e.OccurredAt,
	}, nil
}

// Ping asks the brokers for cluster metadata; one answer is enough.
func (p *Producer) Ping(ctx context.Context) error {
	if len(p.cfg.Brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	var errs []error
	for _, addr := range p.cfg.Brokers {
		conn, err := p.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_, err = conn.Brokers()
			_ = conn.Close()
		}
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return fmt.Errorf("kafka ping: %w", errors.Join(errs...))
}

// Close flushes buffered messages and releases the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
