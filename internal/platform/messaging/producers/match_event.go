package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bank-reconciliation/internal/config"
	"github.com/bank-reconciliation/internal/domain/match"
)

// MatchEvent is the payload published for every committed match operation.
// Downstream consumers (reporting, audit) replay the stream to rebuild the
// matched ledger without touching the engine.
type MatchEvent struct {
	Scenario      match.Scenario      `json:"scenario"`
	Pairs         []match.MatchedPair `json:"pairs"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// MatchEventProducer publishes match events to the configured Kafka topic
type MatchEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewMatchEventProducer creates a match-event producer and ensures its topic
// exists. Writes are asynchronous; a broker hiccup is logged by the completion
// callback and never blocks a match request.
func NewMatchEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*MatchEventProducer, error) {
	if cfg.MatchEventsTopic == "" {
		return nil, fmt.Errorf("kafka match events topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for match event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.MatchEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure match events topic %s exists: %w", cfg.MatchEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.MatchEventsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write match events asynchronously", "topic", cfg.MatchEventsTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote match events asynchronously", "topic", cfg.MatchEventsTopic, "count", len(messages))
			}
		},
	}

	return &MatchEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.MatchEventsTopic,
	}, nil
}

// Publish serializes the value and writes it keyed by the given key
func (p *MatchEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal match event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish match event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish match event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published match event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

// Close flushes and closes the underlying writer
func (p *MatchEventProducer) Close() error {
	p.logger.Info("Closing match event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
